package auditrepo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/careops/internal/domain/mortality"
)

func auditAt(minute int, degraded bool) mortality.AuditRecord {
	record := mortality.AuditRecord{
		ID:          uuid.New(),
		CreatedAt:   time.Date(2024, 5, 1, 10, minute, 0, 0, time.UTC),
		Probability: 0.5,
		Features:    []float64{1, 2, 3},
	}
	if degraded {
		record.Fallbacks = []mortality.Fallback{{Field: "Disease", Label: "Dengue", Code: 4}}
	}
	return record
}

func TestMemoryRepositoryListsNewestFirst(t *testing.T) {
	repo := NewMemoryRepository(10)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, repo.Append(ctx, auditAt(i, i%2 == 1)))
	}

	recent, err := repo.ListRecent(ctx, 2, false)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, 3, recent[0].CreatedAt.Minute())
	require.Equal(t, 2, recent[1].CreatedAt.Minute())

	degraded, err := repo.ListRecent(ctx, 10, true)
	require.NoError(t, err)
	require.Len(t, degraded, 2)
	for _, record := range degraded {
		require.True(t, record.Degraded())
	}
}

func TestMemoryRepositoryEvictsOldest(t *testing.T) {
	repo := NewMemoryRepository(2)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Append(ctx, auditAt(i, false)))
	}
	all, err := repo.ListRecent(ctx, 10, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, 1, all[1].CreatedAt.Minute())
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository(0)
	ctx := context.Background()
	record := auditAt(0, false)
	require.NoError(t, repo.Append(ctx, record))
	record.Features[0] = 99

	stored, err := repo.ListRecent(ctx, 1, false)
	require.NoError(t, err)
	require.Equal(t, 1.0, stored[0].Features[0])
}
