package mortality

import (
	"time"

	"github.com/google/uuid"
)

// PatientRecord is the raw flat JSON object posted by callers. Values are
// strings, JSON numbers, booleans or nil.
type PatientRecord map[string]any

// FeatureVector is the numeric input handed to the classifier, ordered exactly
// like the training columns.
type FeatureVector struct {
	Columns []string
	Values  []float64
}

// Len reports the number of features.
func (v FeatureVector) Len() int {
	return len(v.Values)
}

// Fallback records a categorical label that was not known at fit time and was
// replaced by the table's fallback code.
type Fallback struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Code  int    `json:"code"`
}

// Prepared is the outcome of feature preparation. Fallbacks and Imputed are the
// side channel describing degraded inputs; they never leak into Vector.
type Prepared struct {
	Vector    FeatureVector
	Fallbacks []Fallback
	Imputed   []string
}

// Degraded reports whether any substitution happened.
func (p Prepared) Degraded() bool {
	return len(p.Fallbacks) > 0 || len(p.Imputed) > 0
}

// ClassProbabilities is the binary class distribution returned by a classifier.
type ClassProbabilities struct {
	Negative float64 `json:"negative"`
	Positive float64 `json:"positive"`
}

// Response is serialized back to API consumers.
type Response struct {
	MortalityChance string     `json:"mortality_chance"`
	Fallbacks       []Fallback `json:"fallbacks,omitempty"`
	Imputed         []string   `json:"imputed,omitempty"`
	RequestID       string     `json:"request_id,omitempty"`
}

// AuditRecord is persisted for every successful prediction so degraded inputs
// can be reviewed later.
type AuditRecord struct {
	ID          uuid.UUID  `json:"id"`
	CreatedAt   time.Time  `json:"createdAt"`
	Probability float64    `json:"probability"`
	Features    []float64  `json:"features"`
	Fallbacks   []Fallback `json:"fallbacks,omitempty"`
	Imputed     []string   `json:"imputed,omitempty"`
}

// Degraded reports whether the audited prediction relied on substitutions.
func (r AuditRecord) Degraded() bool {
	return len(r.Fallbacks) > 0 || len(r.Imputed) > 0
}

// FallbackStat counts how often an unknown label was substituted.
type FallbackStat struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Count int64  `json:"count"`
}
