package mortality

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPreparer(t *testing.T, mutate ...func(*Schema)) *Preparer {
	t.Helper()
	schema := DefaultSchema()
	for _, fn := range mutate {
		fn(&schema)
	}
	p, err := NewPreparer(schema, testEncoders())
	require.NoError(t, err)
	return p
}

func testEncoders() Encoders {
	return Encoders{
		"Disease": FitEncoder([]string{"Asthma", "Common Cold", "Eczema", "Influenza"}),
		"Gender":  FitEncoder([]string{"Female", "Male"}),
	}
}

func validRecord() PatientRecord {
	return PatientRecord{
		"Disease":              "Influenza",
		"Fever":                "Yes",
		"Cough":                "No",
		"Fatigue":              "Yes",
		"Difficulty Breathing": "No",
		"Age":                  float64(19),
		"Gender":               "Female",
		"Blood Pressure":       "Low",
		"Cholesterol Level":    "Normal",
	}
}

func TestPrepareEncodesInTrainingOrder(t *testing.T) {
	p := newTestPreparer(t)

	got, err := p.Prepare(validRecord())
	require.NoError(t, err)
	require.Equal(t, DefaultSchema().ColumnNames(), got.Vector.Columns)
	require.Equal(t, []float64{3, 1, 0, 1, 0, 19, 0, 0, 1}, got.Vector.Values)
	require.Empty(t, got.Fallbacks)
	require.Empty(t, got.Imputed)
	require.False(t, got.Degraded())
}

func TestPrepareIsDeterministic(t *testing.T) {
	p := newTestPreparer(t)
	record := validRecord()

	first, err := p.Prepare(record)
	require.NoError(t, err)
	second, err := p.Prepare(record)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestPrepareUnknownCategoryUsesFallback(t *testing.T) {
	p := newTestPreparer(t)
	record := validRecord()
	record["Disease"] = "NeverSeenDisease"

	got, err := p.Prepare(record)
	require.NoError(t, err)
	require.Equal(t, float64(4), got.Vector.Values[0])
	require.Equal(t, []Fallback{{Field: "Disease", Label: "NeverSeenDisease", Code: 4}}, got.Fallbacks)
	require.True(t, got.Degraded())
}

func TestPrepareUnmappedOrdinalIsValidationError(t *testing.T) {
	p := newTestPreparer(t)
	record := validRecord()
	record["Fever"] = "Maybe"

	_, err := p.Prepare(record)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, KindUnmappedOrdinalValue, verr.Kind)
	require.Equal(t, "Fever", verr.Field)
	require.Equal(t, []string{"No", "Yes"}, verr.Allowed)
	require.Contains(t, verr.Error(), "Maybe")
}

func TestPrepareOrdinalRejectsNumbers(t *testing.T) {
	p := newTestPreparer(t)
	record := validRecord()
	record["Blood Pressure"] = float64(1)

	_, err := p.Prepare(record)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, KindUnmappedOrdinalValue, verr.Kind)
}

func TestPrepareMissingFieldIsValidationError(t *testing.T) {
	p := newTestPreparer(t)
	record := validRecord()
	delete(record, "Gender")

	_, err := p.Prepare(record)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, KindMissingField, verr.Kind)
	require.Equal(t, "missing required field: Gender", verr.Error())
}

func TestPrepareImputesUncoercibleNumbers(t *testing.T) {
	p := newTestPreparer(t, func(s *Schema) {
		s.Imputation["Age"] = 46.3
	})

	for _, raw := range []any{"", "abc", nil, true, "NaN"} {
		record := validRecord()
		record["Age"] = raw
		got, err := p.Prepare(record)
		require.NoError(t, err)
		require.Equal(t, 46.3, got.Vector.Values[5])
		require.Equal(t, []string{"Age"}, got.Imputed)
	}
}

func TestPrepareImputationDefaultsToZero(t *testing.T) {
	p := newTestPreparer(t)
	record := validRecord()
	record["Age"] = "n/a"

	got, err := p.Prepare(record)
	require.NoError(t, err)
	require.Equal(t, float64(0), got.Vector.Values[5])
}

func TestPrepareAcceptsNumericStrings(t *testing.T) {
	p := newTestPreparer(t)
	record := validRecord()
	record["Age"] = " 42 "

	got, err := p.Prepare(record)
	require.NoError(t, err)
	require.Equal(t, float64(42), got.Vector.Values[5])
	require.Empty(t, got.Imputed)
}

func TestPrepareDoesNotMutateEncoders(t *testing.T) {
	encoders := testEncoders()
	p, err := NewPreparer(DefaultSchema(), encoders)
	require.NoError(t, err)
	before := encoders["Disease"].Labels()

	record := validRecord()
	record["Disease"] = "Brand New"
	_, err = p.Prepare(record)
	require.NoError(t, err)
	require.Equal(t, before, encoders["Disease"].Labels())
	_, known := encoders["Disease"].Lookup("Brand New")
	require.False(t, known)
}

func TestNewPreparerRequiresCategoricalEncoders(t *testing.T) {
	_, err := NewPreparer(DefaultSchema(), Encoders{"Disease": FitEncoder(nil)})
	require.ErrorContains(t, err, "Gender")
}

func TestDecodeSchema(t *testing.T) {
	doc := `{
		"columns": [{"name": "Fever", "kind": "ordinal"}, {"name": "Age", "kind": "numeric"}],
		"ordinal": {"Fever": {"Yes": 1, "No": 0}},
		"imputation": {"Age": 38.5}
	}`
	schema, err := DecodeSchema(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, []string{"Fever", "Age"}, schema.ColumnNames())
	require.Equal(t, 38.5, schema.Imputation["Age"])

	_, err = DecodeSchema(strings.NewReader(`{"columns":[{"name":"Fever","kind":"ordinal"}]}`))
	require.ErrorContains(t, err, "no value table")
}
