package strategy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"parsemill/internal/domain"
)

const TextStrategyName = "text"

const (
	textMaxSizeMB    = 100
	textLinesPerPage = 50
)

var textStrategyExtensions = map[string]bool{
	".txt": true, ".md": true, ".log": true, ".csv": true,
	".tsv": true, ".json": true, ".xml": true,
}

// TextStrategy reads plain-text documents directly. It is the cheapest and
// most certain strategy for the formats it claims.
type TextStrategy struct{}

func NewTextStrategy() *TextStrategy { return &TextStrategy{} }

func (s *TextStrategy) Name() string { return TextStrategyName }

func (s *TextStrategy) CanHandle(path string, sizeMB float64) bool {
	return textStrategyExtensions[strings.ToLower(filepath.Ext(path))] && sizeMB <= textMaxSizeMB
}

func (s *TextStrategy) EstimateResources(_ string, sizeMB float64) domain.ResourceEstimate {
	return domain.ResourceEstimate{
		MemoryMB: sizeMB*2 + 10,
		Seconds:  sizeMB*0.05 + 0.05,
	}
}

func (s *TextStrategy) Execute(ctx context.Context, path string) (*domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("text: read %s: %w", path, err)
	}

	content := string(b)
	elements := countElements(content)

	confidence := 0.95
	if !utf8.Valid(b) {
		confidence = 0.4
	}

	ext := strings.ToLower(filepath.Ext(path))
	return &domain.Result{
		Content:      content,
		Confidence:   confidence,
		PageCount:    elements/textLinesPerPage + 1,
		ElementCount: elements,
		HasTables:    ext == ".csv" || ext == ".tsv",
		Strategy:     TextStrategyName,
	}, nil
}
