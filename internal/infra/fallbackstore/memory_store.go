package fallbackstore

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/careops/internal/domain/mortality"
)

type key struct {
	field string
	label string
}

// MemoryStore is an in-memory fallback counter for tests/dev.
type MemoryStore struct {
	mu     sync.RWMutex
	counts map[key]int64
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[key]int64)}
}

// RecordFallback implements mortality.FallbackStore.
func (s *MemoryStore) RecordFallback(_ context.Context, fallback mortality.Fallback) error {
	if fallback.Field == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key{field: fallback.Field, label: fallback.Label}]++
	return nil
}

// TopFallbacks returns the most frequent unseen labels.
func (s *MemoryStore) TopFallbacks(_ context.Context, limit int) ([]mortality.FallbackStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = len(s.counts)
	}
	items := make([]mortality.FallbackStat, 0, len(s.counts))
	for k, count := range s.counts {
		items = append(items, mortality.FallbackStat{Field: k.field, Label: k.label, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		if items[i].Field != items[j].Field {
			return items[i].Field < items[j].Field
		}
		return items[i].Label < items[j].Label
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

var _ mortality.FallbackStore = (*MemoryStore)(nil)
