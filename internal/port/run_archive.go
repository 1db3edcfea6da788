package port

import (
	"context"

	"parsemill/internal/domain"
)

// RunArchive persists orchestrated parse runs for reporting.
type RunArchive interface {
	Record(ctx context.Context, run *domain.ParseRun) error
	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]domain.ParseRun, error)
	Ping(ctx context.Context) error
}
