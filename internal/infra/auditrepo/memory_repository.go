package auditrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/careops/internal/domain/mortality"
)

const defaultCapacity = 1000

// MemoryRepository keeps the most recent audit records in memory for tests/dev.
type MemoryRepository struct {
	mu       sync.RWMutex
	records  []mortality.AuditRecord
	capacity int
}

// NewMemoryRepository constructs a bounded in-memory repository.
func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryRepository{capacity: capacity}
}

// Append stores a copy of the record, evicting the oldest when full.
func (r *MemoryRepository) Append(_ context.Context, record mortality.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, clone(record))
	if over := len(r.records) - r.capacity; over > 0 {
		r.records = append([]mortality.AuditRecord(nil), r.records[over:]...)
	}
	return nil
}

// ListRecent returns the newest records first.
func (r *MemoryRepository) ListRecent(_ context.Context, limit int, degradedOnly bool) ([]mortality.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	out := make([]mortality.AuditRecord, 0, min(limit, len(r.records)))
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if degradedOnly && !r.records[i].Degraded() {
			continue
		}
		out = append(out, clone(r.records[i]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func clone(record mortality.AuditRecord) mortality.AuditRecord {
	record.Features = append([]float64(nil), record.Features...)
	if record.Fallbacks != nil {
		record.Fallbacks = append([]mortality.Fallback(nil), record.Fallbacks...)
	}
	if record.Imputed != nil {
		record.Imputed = append([]string(nil), record.Imputed...)
	}
	return record
}

var _ mortality.AuditRepository = (*MemoryRepository)(nil)
