package router

import (
	"github.com/gin-gonic/gin"

	"parsemill/internal/handler"
	"parsemill/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	parseH *handler.ParseHandler,
	strategyH *handler.StrategyHandler,
	systemH *handler.SystemHandler,
	healthH *handler.HealthHandler,
	corsOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(corsOrigins))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Parse orchestration
	v1.POST("/parse", parseH.Parse)
	v1.POST("/parse/batch", parseH.ParseBatch)
	v1.POST("/parse/cached", parseH.GetOrExecute)
	v1.POST("/select", parseH.Select)

	// Strategy inspection
	strategies := v1.Group("/strategies")
	strategies.GET("", strategyH.List)
	strategies.GET("/:name/history", strategyH.History)
	v1.GET("/metrics/export", strategyH.Export)

	// System state
	v1.GET("/memory", systemH.Memory)
	v1.GET("/cache/stats", systemH.CacheStats)
	v1.DELETE("/cache", systemH.CacheClear)

	// Run archive
	runs := v1.Group("/runs")
	runs.GET("", systemH.Runs)
	runs.GET("/export", systemH.RunsExport)

	return r
}
