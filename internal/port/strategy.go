package port

import (
	"context"

	"parsemill/internal/domain"
)

// Strategy is a single parsing approach (native text, PDF extraction, office
// conversion, ...). Implementations must be safe for concurrent Execute calls
// and must honor context cancellation.
type Strategy interface {
	// Name returns the stable identity used in cache keys and metrics.
	Name() string
	// CanHandle reports whether the strategy can parse the given document.
	CanHandle(path string, sizeMB float64) bool
	// EstimateResources predicts the cost of parsing without doing any work.
	EstimateResources(path string, sizeMB float64) domain.ResourceEstimate
	// Execute parses the document. It must return promptly once ctx is done.
	Execute(ctx context.Context, path string) (*domain.Result, error)
}
