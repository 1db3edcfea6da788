package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"parsemill/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row (14 columns).
var columns = []string{
	"Run ID",
	"Path",
	"Strategy",
	"Criteria",
	"Success",
	"Cache Hit",
	"Merged",
	"Confidence",
	"Page Count",
	"Element Count",
	"Duration (ms)",
	"Memory (MB)",
	"Error",
	"Created At",
}

// CSVWriter wraps csv.Writer for exporting parse runs as CSV.
type CSVWriter struct {
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter that writes CSV to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{csv: csv.NewWriter(w)}
}

// WriteHeader writes the 14-column header row.
func (w *CSVWriter) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteRuns converts a batch of parse runs to CSV rows and writes them.
func (w *CSVWriter) WriteRuns(runs []domain.ParseRun) error {
	for i := range runs {
		row := runToRow(&runs[i])
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *CSVWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *CSVWriter) Error() error {
	return w.csv.Error()
}

// runToRow converts a single parse run to a 14-element string slice.
func runToRow(run *domain.ParseRun) []string {
	row := make([]string, len(columns))
	row[0] = run.ID.String()
	row[1] = run.Path
	row[2] = run.Strategy
	row[3] = string(run.Criteria)
	row[4] = formatBool(run.Success)
	row[5] = formatBool(run.CacheHit)
	row[6] = formatBool(run.Merged)
	row[7] = strconv.FormatFloat(run.Confidence, 'f', 2, 64)
	row[8] = strconv.Itoa(run.PageCount)
	row[9] = strconv.Itoa(run.ElementCount)
	row[10] = strconv.FormatInt(run.DurationMS, 10)
	row[11] = strconv.FormatFloat(run.MemoryMB, 'f', 1, 64)
	row[12] = run.Error
	row[13] = run.CreatedAt.Format(time.RFC3339)
	return row
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// BuildFilename returns a filename for the Content-Disposition header.
// Format: {prefix}_{YYYY-MM-DD}.{ext}
func BuildFilename(prefix, ext string) string {
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s.%s", prefix, date, ext)
}
