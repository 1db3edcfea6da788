package strategy

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"parsemill/internal/domain"
)

const PDFStrategyName = "pdf_native"

const pdfMaxSizeMB = 500

// PDFStrategy extracts the embedded text layer of a PDF. Scanned documents
// without a text layer fail here and are left to other strategies.
type PDFStrategy struct{}

func NewPDFStrategy() *PDFStrategy { return &PDFStrategy{} }

func (s *PDFStrategy) Name() string { return PDFStrategyName }

func (s *PDFStrategy) CanHandle(path string, sizeMB float64) bool {
	return strings.ToLower(filepath.Ext(path)) == ".pdf" && sizeMB <= pdfMaxSizeMB
}

func (s *PDFStrategy) EstimateResources(_ string, sizeMB float64) domain.ResourceEstimate {
	return domain.ResourceEstimate{
		MemoryMB: sizeMB*3 + 50,
		Seconds:  sizeMB*0.8 + 0.5,
	}
}

func (s *PDFStrategy) Execute(ctx context.Context, path string) (result *domain.Result, err error) {
	// The pdf package panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("pdf_native: reader panic on %s: %v", path, r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdf_native: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("pdf_native: stat %s: %w", path, err)
	}

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("pdf_native: read %s: %w", path, err)
	}

	totalPages := reader.NumPage()
	var sb strings.Builder
	extracted := 0

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("strategy.pdf_native: page %d of %s: %v", i, path, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
		extracted++
	}

	content := sb.String()
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("pdf_native: no extractable text in %s (likely scanned)", path)
	}

	// Confidence scales with how many pages actually yielded text.
	ratio := 1.0
	if totalPages > 0 {
		ratio = float64(extracted) / float64(totalPages)
	}
	confidence := 0.35 + 0.6*ratio

	return &domain.Result{
		Content:      content,
		Confidence:   confidence,
		PageCount:    totalPages,
		ElementCount: countElements(content),
		HasImages:    ratio < 1.0,
		Strategy:     PDFStrategyName,
	}, nil
}
