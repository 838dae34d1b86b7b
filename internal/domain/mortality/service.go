package mortality

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/careops/pkg/errors"
	"github.com/yanqian/careops/pkg/metrics"
)

// PredictionFailedMessage is the only detail callers see when the classifier fails.
const PredictionFailedMessage = "An error occurred while making the prediction"

// Service exposes mortality risk inference.
type Service interface {
	Predict(ctx context.Context, record PatientRecord) (Response, error)
	FallbackStats(ctx context.Context, limit int) ([]FallbackStat, error)
	Audits(ctx context.Context, limit int, degradedOnly bool) ([]AuditRecord, error)
}

type service struct {
	preparer   *Preparer
	classifier Classifier
	fallbacks  FallbackStore
	audits     AuditRepository
	metrics    metrics.Recorder
	logger     *slog.Logger
	now        func() time.Time
	newID      func() uuid.UUID
}

// NewService wires up the mortality domain.
func NewService(preparer *Preparer, classifier Classifier, fallbacks FallbackStore, audits AuditRepository, recorder metrics.Recorder, logger *slog.Logger) Service {
	return &service{
		preparer:   preparer,
		classifier: classifier,
		fallbacks:  fallbacks,
		audits:     audits,
		metrics:    recorder,
		logger:     logger.With("component", "mortality.service"),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.New,
	}
}

func (s *service) Predict(ctx context.Context, record PatientRecord) (Response, error) {
	start := s.now()
	prepared, err := s.preparer.Prepare(record)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.metrics.Count("mortality.validation_error", 1, "kind:"+string(verr.Kind))
			return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, verr.Error(), verr)
		}
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid patient record", err)
	}
	if len(prepared.Imputed) > 0 {
		s.logger.Info("imputed missing numeric values", "columns", prepared.Imputed)
	}

	probs, err := s.classify(ctx, prepared.Vector)
	if err != nil {
		s.metrics.Count("mortality.inference_failure", 1)
		s.logger.Error("classifier call failed", "error", err)
		return Response{}, apperrors.Wrap(apperrors.CodeInferenceFailed, PredictionFailedMessage, err)
	}
	p := probs.Positive
	if math.IsNaN(p) || p < 0 || p > 1 {
		s.metrics.Count("mortality.inference_failure", 1)
		s.logger.Error("classifier returned invalid probability", "positive", p)
		return Response{}, apperrors.Wrap(apperrors.CodeInferenceFailed, PredictionFailedMessage, fmt.Errorf("probability %v outside [0,1]", p))
	}

	// Fallbacks are counted once per answered prediction; failed attempts may be replayed.
	s.observeFallbacks(ctx, prepared.Fallbacks)

	audit := AuditRecord{
		ID:          s.newID(),
		CreatedAt:   s.now(),
		Probability: p,
		Features:    prepared.Vector.Values,
		Fallbacks:   prepared.Fallbacks,
		Imputed:     prepared.Imputed,
	}
	if err := s.audits.Append(ctx, audit); err != nil {
		s.logger.Warn("audit append failed", "id", audit.ID, "error", err)
	}
	s.metrics.Timing("mortality.predict", s.now().Sub(start))

	return Response{
		MortalityChance: FormatPercent(p),
		Fallbacks:       prepared.Fallbacks,
		Imputed:         prepared.Imputed,
		RequestID:       audit.ID.String(),
	}, nil
}

func (s *service) FallbackStats(ctx context.Context, limit int) ([]FallbackStat, error) {
	return s.fallbacks.TopFallbacks(ctx, limit)
}

func (s *service) Audits(ctx context.Context, limit int, degradedOnly bool) ([]AuditRecord, error) {
	return s.audits.ListRecent(ctx, limit, degradedOnly)
}

func (s *service) observeFallbacks(ctx context.Context, fallbacks []Fallback) {
	for _, fb := range fallbacks {
		s.logger.Warn("unknown category replaced with fallback code", "field", fb.Field, "label", fb.Label, "code", fb.Code)
		s.metrics.Count("mortality.fallback", 1, "field:"+fb.Field)
		if err := s.fallbacks.RecordFallback(ctx, fb); err != nil {
			s.logger.Warn("record fallback failed", "field", fb.Field, "error", err)
		}
	}
}

// classify shields callers from classifier panics.
func (s *service) classify(ctx context.Context, features FeatureVector) (probs ClassProbabilities, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return s.classifier.PredictProbability(ctx, features)
}

// FormatPercent renders a probability the way clients display it, e.g. 0.5 -> "50.0%".
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}
