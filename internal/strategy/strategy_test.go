package strategy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func TestTextStrategy_CanHandle(t *testing.T) {
	s := NewTextStrategy()

	tests := []struct {
		path   string
		sizeMB float64
		want   bool
	}{
		{"notes.txt", 1, true},
		{"README.md", 1, true},
		{"data.csv", 1, true},
		{"config.JSON", 1, true},
		{"medium.txt", 100, true},
		{"huge.txt", 101, false},
		{"report.pdf", 1, false},
		{"slides.pptx", 1, false},
		{"noext", 1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.CanHandle(tt.path, tt.sizeMB), "%s at %.0fMB", tt.path, tt.sizeMB)
	}
}

func TestTextStrategy_Execute(t *testing.T) {
	content := "first line\n\nsecond line\n   \nthird line\n"
	path := writeFile(t, "notes.txt", []byte(content))

	res, err := NewTextStrategy().Execute(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, content, res.Content)
	assert.Equal(t, 3, res.ElementCount)
	assert.Equal(t, 1, res.PageCount)
	assert.Equal(t, 0.95, res.Confidence)
	assert.Equal(t, TextStrategyName, res.Strategy)
	assert.False(t, res.HasTables)
}

func TestTextStrategy_ExecuteCSVFlagsTables(t *testing.T) {
	path := writeFile(t, "data.csv", []byte("a,b,c\n1,2,3\n"))

	res, err := NewTextStrategy().Execute(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.HasTables)
}

func TestTextStrategy_ExecuteInvalidUTF8LowersConfidence(t *testing.T) {
	path := writeFile(t, "mixed.log", []byte{'o', 'k', '\n', 0xff, 0xfe, 0xfd})

	res, err := NewTextStrategy().Execute(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0.4, res.Confidence)
}

func TestTextStrategy_ExecutePaginatesLongFiles(t *testing.T) {
	lines := make([]string, 120)
	for i := range lines {
		lines[i] = "line"
	}
	path := writeFile(t, "long.txt", []byte(strings.Join(lines, "\n")))

	res, err := NewTextStrategy().Execute(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 120, res.ElementCount)
	assert.Equal(t, 3, res.PageCount)
}

func TestTextStrategy_ExecuteMissingFile(t *testing.T) {
	_, err := NewTextStrategy().Execute(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	assert.Error(t, err)
}

func TestTextStrategy_ExecuteHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTextStrategy().Execute(ctx, "irrelevant.txt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPDFStrategy_CanHandle(t *testing.T) {
	s := NewPDFStrategy()

	assert.True(t, s.CanHandle("scan.pdf", 10))
	assert.True(t, s.CanHandle("SCAN.PDF", 10))
	assert.False(t, s.CanHandle("scan.pdf", 501))
	assert.False(t, s.CanHandle("scan.docx", 10))
}

func TestPDFStrategy_ExecuteRejectsGarbage(t *testing.T) {
	path := writeFile(t, "fake.pdf", []byte("this is not a pdf at all"))

	res, err := NewPDFStrategy().Execute(context.Background(), path)
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestPDFStrategy_ExecuteMissingFile(t *testing.T) {
	_, err := NewPDFStrategy().Execute(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"))
	assert.Error(t, err)
}

func TestOfficeStrategy_CanHandle(t *testing.T) {
	s := NewOfficeStrategy()

	assert.True(t, s.CanHandle("letter.docx", 10))
	assert.True(t, s.CanHandle("page.html", 10))
	assert.True(t, s.CanHandle("old.rtf", 10))
	assert.False(t, s.CanHandle("letter.docx", 201))
	assert.False(t, s.CanHandle("notes.txt", 10))
}

func TestOfficeStrategy_ExecuteHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewOfficeStrategy().Execute(ctx, "irrelevant.docx")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimatesScaleWithSize(t *testing.T) {
	text := NewTextStrategy()
	small := text.EstimateResources("a.txt", 1)
	large := text.EstimateResources("a.txt", 50)
	assert.Greater(t, large.MemoryMB, small.MemoryMB)
	assert.Greater(t, large.Seconds, small.Seconds)

	pdf := NewPDFStrategy()
	office := NewOfficeStrategy()
	// PDFs and office docs cost more than plain text at the same size.
	assert.Greater(t, pdf.EstimateResources("a.pdf", 10).MemoryMB, text.EstimateResources("a.txt", 10).MemoryMB)
	assert.Greater(t, office.EstimateResources("a.docx", 10).Seconds, pdf.EstimateResources("a.pdf", 10).Seconds)
}

func TestCountElements(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"\n\n\n", 0},
		{"one", 1},
		{"one\ntwo\nthree", 3},
		{"one\n\n  \ntwo\n", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, countElements(tt.content), "%q", tt.content)
	}
}
