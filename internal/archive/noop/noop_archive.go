package noop

import (
	"context"
	"log"

	"parsemill/internal/domain"
	"parsemill/internal/port"
)

type noopArchive struct{}

// NewArchive creates a no-op RunArchive that logs run summaries to stdout.
// Reads report the archive as disabled.
func NewArchive() port.RunArchive {
	return &noopArchive{}
}

func (a *noopArchive) Record(_ context.Context, run *domain.ParseRun) error {
	if run.Success {
		log.Printf("[NOOP ARCHIVE] run %s: %s via %s, confidence %.2f, %dms", run.ID, run.Path, run.Strategy, run.Confidence, run.DurationMS)
	} else {
		log.Printf("[NOOP ARCHIVE] run %s: %s failed: %s", run.ID, run.Path, run.Error)
	}
	return nil
}

func (a *noopArchive) List(_ context.Context, _ int) ([]domain.ParseRun, error) {
	return nil, domain.ErrArchiveDisabled
}

func (a *noopArchive) Ping(_ context.Context) error {
	return domain.ErrArchiveDisabled
}
