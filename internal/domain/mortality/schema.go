package mortality

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// FieldKind tells Prepare how to turn a raw value into a number.
type FieldKind string

const (
	FieldOrdinal     FieldKind = "ordinal"
	FieldCategorical FieldKind = "categorical"
	FieldNumeric     FieldKind = "numeric"
)

// Column is one training column.
type Column struct {
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`
}

// Schema is the frozen training-time layout: column order, the closed
// ordinal tables and per-column imputation constants.
type Schema struct {
	Columns    []Column                      `json:"columns"`
	Ordinal    map[string]map[string]float64 `json:"ordinal"`
	Imputation map[string]float64            `json:"imputation"`
}

// DefaultSchema describes the disease symptom and patient profile dataset the
// mortality model is trained on.
func DefaultSchema() Schema {
	yesNo := map[string]float64{"Yes": 1, "No": 0}
	level := map[string]float64{"Low": 0, "Normal": 1, "High": 2}
	return Schema{
		Columns: []Column{
			{Name: "Disease", Kind: FieldCategorical},
			{Name: "Fever", Kind: FieldOrdinal},
			{Name: "Cough", Kind: FieldOrdinal},
			{Name: "Fatigue", Kind: FieldOrdinal},
			{Name: "Difficulty Breathing", Kind: FieldOrdinal},
			{Name: "Age", Kind: FieldNumeric},
			{Name: "Gender", Kind: FieldCategorical},
			{Name: "Blood Pressure", Kind: FieldOrdinal},
			{Name: "Cholesterol Level", Kind: FieldOrdinal},
		},
		Ordinal: map[string]map[string]float64{
			"Fever":                yesNo,
			"Cough":                yesNo,
			"Fatigue":              yesNo,
			"Difficulty Breathing": yesNo,
			"Blood Pressure":       level,
			"Cholesterol Level":    level,
		},
		Imputation: map[string]float64{},
	}
}

// DecodeSchema reads a schema document emitted by the training job.
func DecodeSchema(r io.Reader) (Schema, error) {
	var schema Schema
	if err := json.NewDecoder(r).Decode(&schema); err != nil {
		return Schema{}, fmt.Errorf("decode schema: %w", err)
	}
	if schema.Imputation == nil {
		schema.Imputation = map[string]float64{}
	}
	if err := schema.Validate(); err != nil {
		return Schema{}, err
	}
	return schema, nil
}

// ColumnNames returns the training column order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// ColumnsOf lists the columns of the given kind in training order.
func (s Schema) ColumnsOf(kind FieldKind) []string {
	var names []string
	for _, col := range s.Columns {
		if col.Kind == kind {
			names = append(names, col.Name)
		}
	}
	return names
}

// Validate ensures the schema is usable for serving.
func (s Schema) Validate() error {
	if len(s.Columns) == 0 {
		return errors.New("schema has no columns")
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, col := range s.Columns {
		name := strings.TrimSpace(col.Name)
		if name == "" {
			return errors.New("schema column name cannot be empty")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("schema column %q is duplicated", name)
		}
		seen[name] = struct{}{}
		switch col.Kind {
		case FieldOrdinal:
			if len(s.Ordinal[col.Name]) == 0 {
				return fmt.Errorf("ordinal column %q has no value table", col.Name)
			}
		case FieldCategorical, FieldNumeric:
		default:
			return fmt.Errorf("schema column %q has unknown kind %q", col.Name, col.Kind)
		}
	}
	return nil
}
