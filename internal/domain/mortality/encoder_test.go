package mortality

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFitEncoderAssignsLexicographicDenseCodes(t *testing.T) {
	table := FitEncoder([]string{"Influenza", "Asthma", "Eczema", "Asthma", "Common Cold"})

	require.Equal(t, []string{"Asthma", "Common Cold", "Eczema", "Influenza", "Unknown"}, table.Labels())
	require.Equal(t, 5, table.Len())
	code, ok := table.Lookup("Eczema")
	require.True(t, ok)
	require.Equal(t, 2, code)
	require.Equal(t, 4, table.FallbackCode())
}

func TestNewEncoderTableValidation(t *testing.T) {
	_, err := NewEncoderTable(map[string]int{}, UnknownLabel)
	require.Error(t, err)

	_, err = NewEncoderTable(map[string]int{"Male": 0, "Unknown": 2}, UnknownLabel)
	require.ErrorContains(t, err, "outside")

	_, err = NewEncoderTable(map[string]int{"Male": 0, "Female": 0}, UnknownLabel)
	require.ErrorContains(t, err, "assigned to both")

	_, err = NewEncoderTable(map[string]int{"Female": 0, "Male": 1}, UnknownLabel)
	require.ErrorContains(t, err, "fallback label")

	table, err := NewEncoderTable(map[string]int{"Female": 0, "Male": 1, "Unknown": 2}, UnknownLabel)
	require.NoError(t, err)
	require.Equal(t, 2, table.FallbackCode())
}

func TestDecodeEncodersRoundTripsFittedTables(t *testing.T) {
	fitted := Encoders{
		"Disease": FitEncoder([]string{"Asthma", "Influenza"}),
		"Gender":  FitEncoder([]string{"Female", "Male"}),
	}
	raw, err := json.Marshal(fitted)
	require.NoError(t, err)

	decoded, err := DecodeEncoders(strings.NewReader(string(raw)), UnknownLabel)
	require.NoError(t, err)
	require.Equal(t, fitted["Disease"].Labels(), decoded["Disease"].Labels())
	require.Equal(t, fitted["Gender"].FallbackCode(), decoded["Gender"].FallbackCode())
}

func TestDecodeEncodersRejectsTableWithoutFallback(t *testing.T) {
	_, err := DecodeEncoders(strings.NewReader(`{"Gender":{"Female":0,"Male":1}}`), UnknownLabel)
	require.ErrorContains(t, err, `encoder "Gender"`)
}
