package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parsemill/internal/domain"
	"parsemill/internal/port"
	"parsemill/internal/registry"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	registry *registry.Registry
	archive  port.RunArchive
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(reg *registry.Registry, archive port.RunArchive) *HealthHandler {
	return &HealthHandler{registry: reg, archive: archive}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
func (h *HealthHandler) Readiness(c *gin.Context) {
	if h.registry.Len() == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "no strategies registered"})
		return
	}
	// A deliberately disabled archive does not make the service unready.
	if err := h.archive.Ping(c.Request.Context()); err != nil && !errors.Is(err, domain.ErrArchiveDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "run archive not reachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
