package orchestrator

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"parsemill/internal/domain"
)

// BatchItem is the per-document outcome of a batch run. Exactly one of
// Outcome and Err is set.
type BatchItem struct {
	Path    string
	Outcome *Outcome
	Err     error
}

// ParseBatch parses the given documents concurrently, bounded by the
// configured concurrency limit. One document failing never aborts the rest;
// each item carries its own outcome or error, in input order.
func (o *Orchestrator) ParseBatch(ctx context.Context, paths []string, criteria domain.SelectionCriteria, useCache bool) []BatchItem {
	items := make([]BatchItem, len(paths))
	if len(paths) == 0 {
		return items
	}

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(o.cfg.MaxConcurrency)

	for i, path := range paths {
		items[i].Path = path
		g.Go(func() error {
			out, err := o.dispatch(ctx, path, criteria, useCache, "")
			items[i].Outcome = out
			items[i].Err = err
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
		}
	}
	log.Printf("orchestrator: batch of %d finished in %s, %d failed", len(paths), time.Since(start).Round(time.Millisecond), failed)
	return items
}
