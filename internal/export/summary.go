package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"parsemill/internal/domain"
)

// summaryColumns defines the header row for strategy summary exports.
var summaryColumns = []string{
	"Strategy",
	"Runs",
	"Success Rate",
	"Avg Duration (ms)",
	"Avg Memory (MB)",
	"Avg Elements",
	"Last Run At",
}

// SummaryWriter exports per-strategy aggregates as CSV.
type SummaryWriter struct {
	csv *csv.Writer
}

// NewSummaryWriter creates a SummaryWriter that writes CSV to w.
func NewSummaryWriter(w io.Writer) *SummaryWriter {
	return &SummaryWriter{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *SummaryWriter) WriteHeader() error {
	return w.csv.Write(summaryColumns)
}

// WriteSummaries converts strategy summaries to CSV rows and writes them.
func (w *SummaryWriter) WriteSummaries(sums []domain.StrategySummary) error {
	for i := range sums {
		if err := w.csv.Write(summaryToRow(&sums[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *SummaryWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *SummaryWriter) Error() error {
	return w.csv.Error()
}

func summaryToRow(s *domain.StrategySummary) []string {
	row := make([]string, len(summaryColumns))
	row[0] = s.Strategy
	row[1] = strconv.Itoa(s.Runs)
	row[2] = strconv.FormatFloat(s.SuccessRate, 'f', 2, 64)
	row[3] = strconv.FormatInt(s.AvgDuration.Milliseconds(), 10)
	row[4] = strconv.FormatFloat(s.AvgMemoryMB, 'f', 1, 64)
	row[5] = strconv.FormatFloat(s.AvgElements, 'f', 1, 64)
	row[6] = formatLastRun(s.LastRunAt)
	return row
}

// formatLastRun renders the last-run timestamp, empty for strategies that
// have never run.
func formatLastRun(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
