package mortality

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// UnknownLabel is reserved at fit time and receives the fallback code.
const UnknownLabel = "Unknown"

// EncoderTable is a frozen bijection between categorical labels and the dense
// integer codes 0..n-1 assigned by lexicographic rank at fit time.
type EncoderTable struct {
	codes    map[string]int
	labels   []string
	fallback int
}

// FitEncoder builds a table from training values, adding the reserved
// UnknownLabel so novel categories have somewhere to go.
func FitEncoder(values []string) *EncoderTable {
	distinct := map[string]struct{}{UnknownLabel: {}}
	for _, v := range values {
		distinct[v] = struct{}{}
	}
	labels := make([]string, 0, len(distinct))
	for label := range distinct {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	codes := make(map[string]int, len(labels))
	for i, label := range labels {
		codes[label] = i
	}
	return &EncoderTable{codes: codes, labels: labels, fallback: codes[UnknownLabel]}
}

// NewEncoderTable validates a persisted label->code document.
func NewEncoderTable(codes map[string]int, fallbackLabel string) (*EncoderTable, error) {
	if len(codes) == 0 {
		return nil, errors.New("encoder table is empty")
	}
	labels := make([]string, len(codes))
	assigned := make([]bool, len(codes))
	for label, code := range codes {
		if code < 0 || code >= len(codes) {
			return nil, fmt.Errorf("code %d for %q is outside 0..%d", code, label, len(codes)-1)
		}
		if assigned[code] {
			return nil, fmt.Errorf("code %d is assigned to both %q and %q", code, labels[code], label)
		}
		labels[code] = label
		assigned[code] = true
	}
	fallback, ok := codes[fallbackLabel]
	if !ok {
		return nil, fmt.Errorf("fallback label %q missing from encoder table", fallbackLabel)
	}
	copied := make(map[string]int, len(codes))
	for label, code := range codes {
		copied[label] = code
	}
	return &EncoderTable{codes: copied, labels: labels, fallback: fallback}, nil
}

// Lookup returns the code for a known label.
func (t *EncoderTable) Lookup(label string) (int, bool) {
	code, ok := t.codes[label]
	return code, ok
}

// FallbackCode is the code substituted for labels absent from the table.
func (t *EncoderTable) FallbackCode() int {
	return t.fallback
}

// Labels returns the labels ordered by code.
func (t *EncoderTable) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

// Len is the number of known labels.
func (t *EncoderTable) Len() int {
	return len(t.labels)
}

// MarshalJSON emits the same {label: code} document DecodeEncoders reads.
func (t *EncoderTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.codes)
}

// Encoders maps a categorical field name to its table.
type Encoders map[string]*EncoderTable

// DecodeEncoders reads {"Field": {"label": code}} as written by the training job.
func DecodeEncoders(r io.Reader, fallbackLabel string) (Encoders, error) {
	var raw map[string]map[string]int
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode encoders: %w", err)
	}
	out := make(Encoders, len(raw))
	for field, codes := range raw {
		table, err := NewEncoderTable(codes, fallbackLabel)
		if err != nil {
			return nil, fmt.Errorf("encoder %q: %w", field, err)
		}
		out[field] = table
	}
	return out, nil
}
