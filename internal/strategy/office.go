package strategy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"

	"parsemill/internal/domain"
)

const OfficeStrategyName = "office"

const (
	officeMaxSizeMB    = 200
	officeLinesPerPage = 40
	officeConfidence   = 0.8
)

var officeStrategyExtensions = map[string]bool{
	".doc": true, ".docx": true, ".odt": true, ".rtf": true,
	".pptx": true, ".html": true, ".htm": true,
}

// OfficeStrategy converts word-processing and presentation formats to text
// via docconv.
type OfficeStrategy struct{}

func NewOfficeStrategy() *OfficeStrategy { return &OfficeStrategy{} }

func (s *OfficeStrategy) Name() string { return OfficeStrategyName }

func (s *OfficeStrategy) CanHandle(path string, sizeMB float64) bool {
	return officeStrategyExtensions[strings.ToLower(filepath.Ext(path))] && sizeMB <= officeMaxSizeMB
}

func (s *OfficeStrategy) EstimateResources(_ string, sizeMB float64) domain.ResourceEstimate {
	return domain.ResourceEstimate{
		MemoryMB: sizeMB*4 + 80,
		Seconds:  sizeMB*1.2 + 1.0,
	}
}

func (s *OfficeStrategy) Execute(ctx context.Context, path string) (*domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	mimeType := docconv.MimeTypeByExtension(path)
	readability := ext == ".html" || ext == ".htm"

	// docconv converts synchronously; run it aside so cancellation is honored.
	type converted struct {
		res *docconv.Response
		err error
	}
	ch := make(chan converted, 1)
	go func() {
		f, err := os.Open(path)
		if err != nil {
			ch <- converted{err: fmt.Errorf("office: open %s: %w", path, err)}
			return
		}
		defer f.Close()
		res, err := docconv.Convert(f, mimeType, readability)
		ch <- converted{res: res, err: err}
	}()

	var res *docconv.Response
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-ch:
		if out.err != nil {
			return nil, fmt.Errorf("office: convert %s: %w", path, out.err)
		}
		res = out.res
	}

	content := strings.TrimSpace(res.Body)
	if content == "" {
		return nil, fmt.Errorf("office: conversion of %s produced no text", path)
	}

	elements := countElements(content)
	return &domain.Result{
		Content:      content,
		Confidence:   officeConfidence,
		PageCount:    elements/officeLinesPerPage + 1,
		ElementCount: elements,
		Strategy:     OfficeStrategyName,
	}, nil
}
