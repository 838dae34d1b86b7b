package mortality

import "fmt"

// ValidationKind classifies rejected patient input.
type ValidationKind string

const (
	// KindUnmappedOrdinalValue means an ordinal field carried a label outside its closed table.
	KindUnmappedOrdinalValue ValidationKind = "UnmappedOrdinalValue"
	// KindMissingField means a training column was absent from the record.
	KindMissingField ValidationKind = "MissingField"
)

// ValidationError is returned by Prepare before any model call.
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Value   any
	Allowed []string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindMissingField:
		return fmt.Sprintf("missing required field: %s", e.Field)
	case KindUnmappedOrdinalValue:
		return fmt.Sprintf("invalid value %v for %s, expected one of %v", e.Value, e.Field, e.Allowed)
	default:
		return fmt.Sprintf("invalid field %s", e.Field)
	}
}
