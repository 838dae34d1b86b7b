package mortality

import "context"

// Classifier is the trained model. Implementations must tolerate concurrent
// read-only calls; loaders wrapping a non thread-safe model serialize access
// themselves.
type Classifier interface {
	PredictProbability(ctx context.Context, features FeatureVector) (ClassProbabilities, error)
}

// FallbackStore keeps counters of unknown-category substitutions.
type FallbackStore interface {
	RecordFallback(ctx context.Context, fallback Fallback) error
	TopFallbacks(ctx context.Context, limit int) ([]FallbackStat, error)
}

// AuditRepository persists prediction audit records.
type AuditRepository interface {
	Append(ctx context.Context, record AuditRecord) error
	ListRecent(ctx context.Context, limit int, degradedOnly bool) ([]AuditRecord, error)
}
