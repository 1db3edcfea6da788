package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"parsemill/internal/domain"
	"parsemill/internal/port"
)

type parseRunRepo struct {
	db *sqlx.DB
}

// NewParseRunRepo creates a new PostgreSQL-backed RunArchive.
func NewParseRunRepo(db *sqlx.DB) port.RunArchive {
	return &parseRunRepo{db: db}
}

func (r *parseRunRepo) Record(ctx context.Context, run *domain.ParseRun) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO parse_runs (id, path, strategy, criteria, success, cache_hit, merged,
		                         confidence, page_count, element_count, duration_ms, memory_mb, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		run.ID, run.Path, run.Strategy, run.Criteria, run.Success, run.CacheHit, run.Merged,
		run.Confidence, run.PageCount, run.ElementCount, run.DurationMS, run.MemoryMB, run.Error, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("parseRunRepo.Record: %w", err)
	}
	return nil
}

func (r *parseRunRepo) List(ctx context.Context, limit int) ([]domain.ParseRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []domain.ParseRun
	err := r.db.SelectContext(ctx, &runs,
		`SELECT * FROM parse_runs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("parseRunRepo.List: %w", err)
	}
	return runs, nil
}

func (r *parseRunRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
