package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"parsemill/internal/domain"
)

func TestWriteRunsXLSX(t *testing.T) {
	run := sampleRun()
	b, err := WriteRunsXLSX([]domain.ParseRun{run})
	require.NoError(t, err)
	require.NotEmpty(t, b)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	const sheet = "Parse Runs"
	index, err := f.GetSheetIndex(sheet)
	require.NoError(t, err)
	require.NotEqual(t, -1, index)

	get := func(cell string) string {
		v, err := f.GetCellValue(sheet, cell)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Run ID", get("A1"))
	assert.Equal(t, "Created At", get("N1"))

	assert.Equal(t, run.ID.String(), get("A2"))
	assert.Equal(t, "/docs/q3, report.pdf", get("B2"))
	assert.Equal(t, "pdf_native", get("C2"))
	assert.Equal(t, "Yes", get("E2"))
	assert.Equal(t, "2026-08-20T10:30:00Z", get("N2"))
}

func TestWriteRunsXLSX_EmptyStillHasHeader(t *testing.T) {
	b, err := WriteRunsXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Parse Runs", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Run ID", v)

	rows, err := f.GetRows("Parse Runs")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
