package mortality

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Preparer turns raw patient records into classifier feature vectors. It only
// reads the schema and encoder tables it was built with.
type Preparer struct {
	schema   Schema
	encoders Encoders
	columns  []string
	allowed  map[string][]string
}

// NewPreparer checks that schema and encoders agree.
func NewPreparer(schema Schema, encoders Encoders) (*Preparer, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	for _, name := range schema.ColumnsOf(FieldCategorical) {
		if encoders[name] == nil {
			return nil, fmt.Errorf("no encoder table for categorical column %q", name)
		}
	}
	allowed := make(map[string][]string, len(schema.Ordinal))
	for field, table := range schema.Ordinal {
		labels := make([]string, 0, len(table))
		for label := range table {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		allowed[field] = labels
	}
	return &Preparer{
		schema:   schema,
		encoders: encoders,
		columns:  schema.ColumnNames(),
		allowed:  allowed,
	}, nil
}

// Columns returns the training column order.
func (p *Preparer) Columns() []string {
	out := make([]string, len(p.columns))
	copy(out, p.columns)
	return out
}

// Prepare encodes raw into the training layout. Unknown categorical labels are
// substituted with the fallback code and reported in Prepared.Fallbacks;
// unmapped ordinal labels and absent columns are rejected.
func (p *Preparer) Prepare(raw PatientRecord) (Prepared, error) {
	out := Prepared{
		Vector: FeatureVector{
			Columns: p.Columns(),
			Values:  make([]float64, len(p.schema.Columns)),
		},
	}
	for i, col := range p.schema.Columns {
		value, ok := raw[col.Name]
		if !ok {
			return Prepared{}, &ValidationError{Kind: KindMissingField, Field: col.Name}
		}

		var (
			number  float64
			present bool
		)
		switch col.Kind {
		case FieldOrdinal:
			code, err := p.encodeOrdinal(col.Name, value)
			if err != nil {
				return Prepared{}, err
			}
			number, present = code, true
		case FieldCategorical:
			code, fallback := p.encodeCategorical(col.Name, value)
			if fallback != nil {
				out.Fallbacks = append(out.Fallbacks, *fallback)
			}
			number, present = float64(code), true
		default:
			number, present = coerceNumber(value)
		}

		if !present {
			number = p.schema.Imputation[col.Name]
			out.Imputed = append(out.Imputed, col.Name)
		}
		out.Vector.Values[i] = number
	}
	return out, nil
}

func (p *Preparer) encodeOrdinal(field string, value any) (float64, error) {
	label, ok := value.(string)
	if ok {
		if code, known := p.schema.Ordinal[field][strings.TrimSpace(label)]; known {
			return code, nil
		}
	}
	return 0, &ValidationError{
		Kind:    KindUnmappedOrdinalValue,
		Field:   field,
		Value:   value,
		Allowed: p.allowed[field],
	}
}

func (p *Preparer) encodeCategorical(field string, value any) (int, *Fallback) {
	table := p.encoders[field]
	label := labelOf(value)
	if code, ok := table.Lookup(label); ok {
		return code, nil
	}
	code := table.FallbackCode()
	return code, &Fallback{Field: field, Label: label, Code: code}
}

func labelOf(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// coerceNumber reports false for anything that is not a finite number.
func coerceNumber(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
