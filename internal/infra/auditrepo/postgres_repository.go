package auditrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/careops/internal/domain/mortality"
)

// PostgresRepository implements mortality.AuditRepository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Append inserts one audit row.
func (r *PostgresRepository) Append(ctx context.Context, record mortality.AuditRecord) error {
	fallbacks, err := json.Marshal(nonNilFallbacks(record.Fallbacks))
	if err != nil {
		return fmt.Errorf("encode fallbacks: %w", err)
	}
	imputed := record.Imputed
	if imputed == nil {
		imputed = []string{}
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO prediction_audits (id, created_at, probability, features, fallbacks, imputed, degraded)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, record.ID, record.CreatedAt, record.Probability, record.Features, fallbacks, imputed, record.Degraded())
	return err
}

// ListRecent returns the newest audit rows first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int, degradedOnly bool) ([]mortality.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, created_at, probability, features, fallbacks, imputed
		FROM prediction_audits
		WHERE ($2 = false OR degraded)
		ORDER BY created_at DESC
		LIMIT $1
	`, limit, degradedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []mortality.AuditRecord
	for rows.Next() {
		record, err := scanAuditRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuditRecord(row rowScanner) (mortality.AuditRecord, error) {
	var (
		record    mortality.AuditRecord
		fallbacks []byte
	)
	if err := row.Scan(&record.ID, &record.CreatedAt, &record.Probability, &record.Features, &fallbacks, &record.Imputed); err != nil {
		return mortality.AuditRecord{}, err
	}
	if len(fallbacks) > 0 {
		if err := json.Unmarshal(fallbacks, &record.Fallbacks); err != nil {
			return mortality.AuditRecord{}, fmt.Errorf("decode fallbacks: %w", err)
		}
	}
	if len(record.Fallbacks) == 0 {
		record.Fallbacks = nil
	}
	if len(record.Imputed) == 0 {
		record.Imputed = nil
	}
	return record, nil
}

func nonNilFallbacks(in []mortality.Fallback) []mortality.Fallback {
	if in == nil {
		return []mortality.Fallback{}
	}
	return in
}

var _ mortality.AuditRepository = (*PostgresRepository)(nil)
