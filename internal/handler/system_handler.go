package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parsemill/internal/cache"
	"parsemill/internal/export"
	"parsemill/internal/memory"
	"parsemill/internal/port"
)

// SystemHandler handles memory, cache, and run archive endpoints.
type SystemHandler struct {
	governor *memory.Governor
	cache    *cache.Tiered
	archive  port.RunArchive
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(governor *memory.Governor, tiered *cache.Tiered, archive port.RunArchive) *SystemHandler {
	return &SystemHandler{governor: governor, cache: tiered, archive: archive}
}

// Memory handles GET /api/v1/memory
func (h *SystemHandler) Memory(c *gin.Context) {
	RespondOK(c, gin.H{
		"stats":       h.governor.Latest(),
		"severity":    h.governor.Severity(),
		"suggestions": h.governor.SuggestCleanup(),
	})
}

// CacheStats handles GET /api/v1/cache/stats
func (h *SystemHandler) CacheStats(c *gin.Context) {
	RespondOK(c, h.cache.Stats())
}

// CacheClear handles DELETE /api/v1/cache
func (h *SystemHandler) CacheClear(c *gin.Context) {
	h.cache.Clear(c.Request.Context())
	RespondOK(c, gin.H{"message": "cache cleared"})
}

// Runs handles GET /api/v1/runs
func (h *SystemHandler) Runs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	runs, err := h.archive.List(c.Request.Context(), limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

// RunsExport handles GET /api/v1/runs/export
func (h *SystemHandler) RunsExport(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "500"))
	if limit <= 0 || limit > 5000 {
		limit = 500
	}
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		return
	}

	runs, err := h.archive.List(c.Request.Context(), limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	if format == "xlsx" {
		data, err := export.WriteRunsXLSX(runs)
		if err != nil {
			HandleError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+export.BuildFilename("parse_runs", "xlsx")+`"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.BuildFilename("parse_runs", "csv")+`"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)

	if _, err := c.Writer.Write(export.BOM); err != nil {
		return
	}
	w := export.NewCSVWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		return
	}
	if err := w.WriteRuns(runs); err != nil {
		return
	}
	w.Flush()
}
