package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parsemill/internal/domain"
	"parsemill/internal/export"
	"parsemill/internal/metrics"
	"parsemill/internal/registry"
)

// StrategyHandler handles strategy inspection endpoints.
type StrategyHandler struct {
	registry *registry.Registry
	ledger   *metrics.Ledger
}

// NewStrategyHandler creates a new StrategyHandler.
func NewStrategyHandler(reg *registry.Registry, ledger *metrics.Ledger) *StrategyHandler {
	return &StrategyHandler{registry: reg, ledger: ledger}
}

// List handles GET /api/v1/strategies
func (h *StrategyHandler) List(c *gin.Context) {
	type strategyView struct {
		Name    string                 `json:"name"`
		Summary domain.StrategySummary `json:"summary"`
	}

	names := h.registry.Names()
	views := make([]strategyView, 0, len(names))
	for _, name := range names {
		views = append(views, strategyView{
			Name:    name,
			Summary: h.ledger.Summary(name),
		})
	}

	RespondOK(c, gin.H{
		"strategies": views,
		"total":      len(views),
	})
}

// History handles GET /api/v1/strategies/:name/history
func (h *StrategyHandler) History(c *gin.Context) {
	name := c.Param("name")
	if _, ok := h.registry.Get(name); !ok {
		HandleError(c, domain.ErrUnknownStrategy)
		return
	}

	runs := h.ledger.History(name)
	RespondOK(c, gin.H{
		"strategy": name,
		"runs":     runs,
		"total":    len(runs),
	})
}

// Export handles GET /api/v1/metrics/export
func (h *StrategyHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		return
	}

	// One row per registered strategy, in registration order. Strategies
	// that have never run export their zero-value summary.
	names := h.registry.Names()
	sums := make([]domain.StrategySummary, 0, len(names))
	for _, name := range names {
		sums = append(sums, h.ledger.Summary(name))
	}

	if format == "xlsx" {
		data, err := export.WriteSummariesXLSX(sums)
		if err != nil {
			HandleError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+export.BuildFilename("strategy_summaries", "xlsx")+`"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.BuildFilename("strategy_summaries", "csv")+`"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)

	if _, err := c.Writer.Write(export.BOM); err != nil {
		return
	}
	w := export.NewSummaryWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		return
	}
	if err := w.WriteSummaries(sums); err != nil {
		return
	}
	w.Flush()
}
