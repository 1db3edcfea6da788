package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"parsemill/internal/domain"
)

// WriteRunsXLSX returns an XLSX workbook (as bytes) containing one row per
// parse run, newest first as given.
func WriteRunsXLSX(runs []domain.ParseRun) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Parse Runs"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for i := range runs {
		r := &runs[i]
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.ID.String())
		write(2, r.Path)
		write(3, r.Strategy)
		write(4, string(r.Criteria))
		write(5, formatBool(r.Success))
		write(6, formatBool(r.CacheHit))
		write(7, formatBool(r.Merged))
		write(8, r.Confidence)
		write(9, r.PageCount)
		write(10, r.ElementCount)
		write(11, r.DurationMS)
		write(12, r.MemoryMB)
		write(13, r.Error)
		write(14, r.CreatedAt.Format(time.RFC3339))

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 38) // run id
	_ = f.SetColWidth(sheet, "B", "B", 48) // path
	_ = f.SetColWidth(sheet, "C", "D", 14) // strategy, criteria
	_ = f.SetColWidth(sheet, "M", "M", 48) // error
	_ = f.SetColWidth(sheet, "N", "N", 22) // created at

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteSummariesXLSX returns an XLSX workbook (as bytes) with one row per
// strategy summary, in the given order.
func WriteSummariesXLSX(sums []domain.StrategySummary) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Strategy Summaries"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range summaryColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for i := range sums {
		s := &sums[i]
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, s.Strategy)
		write(2, s.Runs)
		write(3, s.SuccessRate)
		write(4, s.AvgDuration.Milliseconds())
		write(5, s.AvgMemoryMB)
		write(6, s.AvgElements)
		write(7, formatLastRun(s.LastRunAt))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 18)
	_ = f.SetColWidth(sheet, "D", "F", 16)
	_ = f.SetColWidth(sheet, "G", "G", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
