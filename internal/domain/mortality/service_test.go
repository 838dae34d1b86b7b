package mortality

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/careops/pkg/errors"
	"github.com/yanqian/careops/pkg/metrics"
)

func TestFormatPercent(t *testing.T) {
	cases := map[float64]string{
		0:      "0.0%",
		0.5:    "50.0%",
		0.999:  "99.9%",
		0.9999: "100.0%",
		0.0004: "0.0%",
		1:      "100.0%",
	}
	for p, want := range cases {
		require.Equal(t, want, FormatPercent(p), "p=%v", p)
	}
}

func TestServicePredictSuccess(t *testing.T) {
	classifier := &stubClassifier{probs: ClassProbabilities{Negative: 0.5, Positive: 0.5}}
	audits := &memoryAudits{}
	svc := newTestService(t, classifier, &memoryFallbacks{}, audits)

	resp, err := svc.Predict(context.Background(), validRecord())
	require.NoError(t, err)
	require.Equal(t, "50.0%", resp.MortalityChance)
	require.Empty(t, resp.Fallbacks)
	require.NotEmpty(t, resp.RequestID)
	require.Equal(t, 1, classifier.calls)
	require.Equal(t, []float64{3, 1, 0, 1, 0, 19, 0, 0, 1}, classifier.last.Values)
	require.Len(t, audits.records, 1)
	require.Equal(t, 0.5, audits.records[0].Probability)
}

func TestServicePredictIsIdempotent(t *testing.T) {
	classifier := &stubClassifier{probs: ClassProbabilities{Negative: 0.25, Positive: 0.75}}
	svc := newTestService(t, classifier, &memoryFallbacks{}, &memoryAudits{})

	first, err := svc.Predict(context.Background(), validRecord())
	require.NoError(t, err)
	second, err := svc.Predict(context.Background(), validRecord())
	require.NoError(t, err)
	require.Equal(t, first.MortalityChance, second.MortalityChance)
	require.Equal(t, first.Fallbacks, second.Fallbacks)
}

func TestServicePredictRecordsFallbacks(t *testing.T) {
	classifier := &stubClassifier{probs: ClassProbabilities{Positive: 0.1, Negative: 0.9}}
	fallbacks := &memoryFallbacks{}
	svc := newTestService(t, classifier, fallbacks, &memoryAudits{})

	record := validRecord()
	record["Disease"] = "NeverSeenDisease"
	resp, err := svc.Predict(context.Background(), record)
	require.NoError(t, err)
	require.Equal(t, "10.0%", resp.MortalityChance)
	require.Equal(t, []Fallback{{Field: "Disease", Label: "NeverSeenDisease", Code: 4}}, resp.Fallbacks)
	require.Equal(t, resp.Fallbacks, fallbacks.recorded)
	require.Equal(t, float64(4), classifier.last.Values[0])
}

func TestServicePredictFailureDoesNotRecordFallbacks(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("model server unavailable")}
	fallbacks := &memoryFallbacks{}
	svc := newTestService(t, classifier, fallbacks, &memoryAudits{})

	record := validRecord()
	record["Disease"] = "NeverSeenDisease"
	for i := 0; i < 3; i++ {
		_, err := svc.Predict(context.Background(), record)
		require.True(t, apperrors.IsCode(err, apperrors.CodeInferenceFailed))
	}
	require.Empty(t, fallbacks.recorded)

	classifier.err = nil
	classifier.probs = ClassProbabilities{Positive: 0.2, Negative: 0.8}
	_, err := svc.Predict(context.Background(), record)
	require.NoError(t, err)
	require.Len(t, fallbacks.recorded, 1)
}

func TestServicePredictValidationNeverReachesClassifier(t *testing.T) {
	classifier := &stubClassifier{}
	svc := newTestService(t, classifier, &memoryFallbacks{}, &memoryAudits{})

	record := validRecord()
	record["Fever"] = "Maybe"
	_, err := svc.Predict(context.Background(), record)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Zero(t, classifier.calls)
}

func TestServicePredictWrapsClassifierError(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("model exploded: tensor shape mismatch")}
	audits := &memoryAudits{}
	svc := newTestService(t, classifier, &memoryFallbacks{}, audits)

	_, err := svc.Predict(context.Background(), validRecord())
	require.True(t, apperrors.IsCode(err, apperrors.CodeInferenceFailed))
	require.Equal(t, PredictionFailedMessage, apperrors.MessageOf(err))
	require.Empty(t, audits.records)
}

func TestServicePredictRecoversClassifierPanic(t *testing.T) {
	classifier := &stubClassifier{panicWith: "index out of range"}
	svc := newTestService(t, classifier, &memoryFallbacks{}, &memoryAudits{})

	_, err := svc.Predict(context.Background(), validRecord())
	require.True(t, apperrors.IsCode(err, apperrors.CodeInferenceFailed))
	require.Equal(t, PredictionFailedMessage, apperrors.MessageOf(err))
}

func TestServicePredictRejectsOutOfRangeProbability(t *testing.T) {
	classifier := &stubClassifier{probs: ClassProbabilities{Positive: 1.7}}
	svc := newTestService(t, classifier, &memoryFallbacks{}, &memoryAudits{})

	_, err := svc.Predict(context.Background(), validRecord())
	require.True(t, apperrors.IsCode(err, apperrors.CodeInferenceFailed))
}

func TestServiceAuditFailureDoesNotFailPrediction(t *testing.T) {
	classifier := &stubClassifier{probs: ClassProbabilities{Positive: 0.3, Negative: 0.7}}
	svc := newTestService(t, classifier, &memoryFallbacks{}, &memoryAudits{err: errors.New("db down")})

	resp, err := svc.Predict(context.Background(), validRecord())
	require.NoError(t, err)
	require.Equal(t, "30.0%", resp.MortalityChance)
}

func newTestService(t *testing.T, classifier Classifier, fallbacks FallbackStore, audits AuditRepository) Service {
	t.Helper()
	preparer, err := NewPreparer(DefaultSchema(), testEncoders())
	require.NoError(t, err)
	return NewService(preparer, classifier, fallbacks, audits, metrics.Noop{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type stubClassifier struct {
	probs     ClassProbabilities
	err       error
	panicWith any
	calls     int
	last      FeatureVector
}

func (s *stubClassifier) PredictProbability(_ context.Context, features FeatureVector) (ClassProbabilities, error) {
	s.calls++
	s.last = features
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	if s.err != nil {
		return ClassProbabilities{}, s.err
	}
	return s.probs, nil
}

type memoryFallbacks struct {
	recorded []Fallback
}

func (m *memoryFallbacks) RecordFallback(_ context.Context, fb Fallback) error {
	m.recorded = append(m.recorded, fb)
	return nil
}

func (m *memoryFallbacks) TopFallbacks(context.Context, int) ([]FallbackStat, error) {
	return nil, nil
}

type memoryAudits struct {
	records []AuditRecord
	err     error
}

func (m *memoryAudits) Append(_ context.Context, record AuditRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, record)
	return nil
}

func (m *memoryAudits) ListRecent(context.Context, int, bool) ([]AuditRecord, error) {
	return m.records, nil
}
