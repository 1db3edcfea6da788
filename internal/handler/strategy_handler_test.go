package handler_test

import (
	"encoding/csv"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parsemill/internal/domain"
	"parsemill/internal/export"
	"parsemill/internal/handler"
	"parsemill/internal/metrics"
	"parsemill/internal/registry"
)

func newStrategyHandler(t *testing.T, names ...string) (*handler.StrategyHandler, *metrics.Ledger) {
	t.Helper()
	reg := registry.New()
	for _, name := range names {
		require.NoError(t, reg.Register(scripted(name, nil, nil)))
	}
	ledger := metrics.NewLedger(0)
	return handler.NewStrategyHandler(reg, ledger), ledger
}

func TestStrategies_List(t *testing.T) {
	h, ledger := newStrategyHandler(t, "text", "pdf_native")
	ledger.Record(domain.ParseMetrics{Strategy: "text", Duration: time.Second, ElementsExtracted: 10, Success: true})

	w := performGet(h.List, "/api/v1/strategies", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Strategies []struct {
			Name    string `json:"name"`
			Summary struct {
				Runs        int     `json:"runs"`
				SuccessRate float64 `json:"success_rate"`
			} `json:"summary"`
		} `json:"strategies"`
		Total int `json:"total"`
	}
	decodeData(t, w, &data)

	assert.Equal(t, 2, data.Total)
	require.Len(t, data.Strategies, 2)
	// Registration order, with per-strategy aggregates attached.
	assert.Equal(t, "text", data.Strategies[0].Name)
	assert.Equal(t, 1, data.Strategies[0].Summary.Runs)
	assert.Equal(t, 1.0, data.Strategies[0].Summary.SuccessRate)
	assert.Equal(t, 0, data.Strategies[1].Summary.Runs)
}

func TestStrategyHistory_ReturnsRuns(t *testing.T) {
	h, ledger := newStrategyHandler(t, "text")
	ledger.Record(domain.ParseMetrics{Strategy: "text", Success: true})
	ledger.Record(domain.ParseMetrics{Strategy: "text", Success: false})

	w := performGet(h.History, "/api/v1/strategies/text/history", gin.Params{{Key: "name", Value: "text"}})
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Strategy string `json:"strategy"`
		Runs     []struct {
			Success bool `json:"success"`
		} `json:"runs"`
		Total int `json:"total"`
	}
	decodeData(t, w, &data)

	assert.Equal(t, "text", data.Strategy)
	assert.Equal(t, 2, data.Total)
	require.Len(t, data.Runs, 2)
	assert.True(t, data.Runs[0].Success)
	assert.False(t, data.Runs[1].Success)
}

func TestStrategyHistory_UnknownStrategy(t *testing.T) {
	h, _ := newStrategyHandler(t, "text")

	w := performGet(h.History, "/api/v1/strategies/ghost/history", gin.Params{{Key: "name", Value: "ghost"}})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNKNOWN_STRATEGY", decodeEnvelope(t, w).Error.Code)
}

func TestMetricsExport_CSV(t *testing.T) {
	h, ledger := newStrategyHandler(t, "text", "pdf_native")
	ledger.Record(domain.ParseMetrics{Strategy: "text", Duration: time.Second, ElementsExtracted: 10, Success: true})

	w := performGet(h.Export, "/api/v1/metrics/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "strategy_summaries_")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")

	body := w.Body.Bytes()
	require.Greater(t, len(body), len(export.BOM))
	assert.Equal(t, export.BOM, body[:len(export.BOM)])

	records, err := csv.NewReader(strings.NewReader(string(body[len(export.BOM):]))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Strategy", records[0][0])
	// Registration order; the never-run strategy exports its zero summary.
	assert.Equal(t, "text", records[1][0])
	assert.Equal(t, "1", records[1][1])
	assert.Equal(t, "1.00", records[1][2])
	assert.Equal(t, "pdf_native", records[2][0])
	assert.Equal(t, "0", records[2][1])
	assert.Equal(t, "", records[2][6])
}

func TestMetricsExport_XLSX(t *testing.T) {
	h, _ := newStrategyHandler(t, "text")

	w := performGet(h.Export, "/api/v1/metrics/export?format=xlsx", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestMetricsExport_UnknownFormat(t *testing.T) {
	h, _ := newStrategyHandler(t, "text")

	w := performGet(h.Export, "/api/v1/metrics/export?format=yaml", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FORMAT", decodeEnvelope(t, w).Error.Code)
}
