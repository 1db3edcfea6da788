package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parsemill/internal/domain"
	"parsemill/internal/orchestrator"
)

// ParseHandler handles parse orchestration endpoints.
type ParseHandler struct {
	orch *orchestrator.Orchestrator
}

// NewParseHandler creates a new ParseHandler.
func NewParseHandler(orch *orchestrator.Orchestrator) *ParseHandler {
	return &ParseHandler{orch: orch}
}

// ParseInput is the request body for single-document parsing.
type ParseInput struct {
	Path     string `json:"path" binding:"required"`
	Criteria string `json:"criteria"`
	UseCache *bool  `json:"use_cache"`
}

// BatchInput is the request body for batch parsing.
type BatchInput struct {
	Paths    []string `json:"paths" binding:"required,min=1"`
	Criteria string   `json:"criteria"`
	UseCache *bool    `json:"use_cache"`
}

// CachedInput is the request body for cache-or-execute lookups.
type CachedInput struct {
	Path     string `json:"path" binding:"required"`
	Strategy string `json:"strategy"`
}

// SelectInput is the request body for dry-run strategy selection.
type SelectInput struct {
	Path            string  `json:"path" binding:"required"`
	Criteria        string  `json:"criteria"`
	MaxMemoryMB     float64 `json:"max_memory_mb"`
	MaxDurationSecs float64 `json:"max_duration_secs"`
}

type attemptView struct {
	Strategy   string  `json:"strategy"`
	Status     string  `json:"status"`
	Score      float64 `json:"score"`
	DurationMS int64   `json:"duration_ms,omitempty"`
	Error      string  `json:"error,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

type outcomeView struct {
	Result     *domain.Result `json:"result"`
	Profile    domain.Profile `json:"profile"`
	Criteria   string         `json:"criteria"`
	CacheHit   bool           `json:"cache_hit"`
	CacheKey   string         `json:"cache_key,omitempty"`
	Attempts   []attemptView  `json:"attempts"`
	States     []string       `json:"states"`
	DurationMS int64          `json:"duration_ms"`
	MemoryMB   float64        `json:"memory_mb"`
}

func newOutcomeView(out *orchestrator.Outcome) *outcomeView {
	v := &outcomeView{
		Result:     out.Result,
		Profile:    out.Profile,
		Criteria:   string(out.Criteria),
		CacheHit:   out.CacheHit,
		CacheKey:   out.CacheKey,
		Attempts:   make([]attemptView, 0, len(out.Attempts)),
		States:     make([]string, 0, len(out.States)),
		DurationMS: out.Duration.Milliseconds(),
		MemoryMB:   out.Metrics.MemoryUsedMB,
	}
	for _, a := range out.Attempts {
		av := attemptView{
			Strategy:   a.Strategy,
			Status:     string(a.Status),
			Score:      a.Score,
			DurationMS: a.Metrics.Duration.Milliseconds(),
			Reason:     a.Reason,
		}
		if a.Err != nil {
			av.Error = a.Err.Error()
		}
		v.Attempts = append(v.Attempts, av)
	}
	for _, s := range out.States {
		v.States = append(v.States, s.String())
	}
	return v
}

type scoredView struct {
	Strategy  string  `json:"strategy"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}

// Parse handles POST /api/v1/parse
func (h *ParseHandler) Parse(c *gin.Context) {
	var input ParseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	criteria, err := domain.ParseCriteria(input.Criteria)
	if err != nil {
		HandleError(c, err)
		return
	}
	useCache := input.UseCache == nil || *input.UseCache

	out, err := h.orch.ParseOptimized(c.Request.Context(), input.Path, criteria, useCache)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, newOutcomeView(out))
}

// ParseBatch handles POST /api/v1/parse/batch
func (h *ParseHandler) ParseBatch(c *gin.Context) {
	var input BatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	criteria, err := domain.ParseCriteria(input.Criteria)
	if err != nil {
		HandleError(c, err)
		return
	}
	useCache := input.UseCache == nil || *input.UseCache

	items := h.orch.ParseBatch(c.Request.Context(), input.Paths, criteria, useCache)

	type batchItemView struct {
		Path    string       `json:"path"`
		Outcome *outcomeView `json:"outcome,omitempty"`
		Error   *APIError    `json:"error,omitempty"`
	}
	views := make([]batchItemView, 0, len(items))
	succeeded := 0
	for _, item := range items {
		v := batchItemView{Path: item.Path}
		if item.Err != nil {
			_, code, msg := MapDomainError(item.Err)
			v.Error = &APIError{Code: code, Message: msg}
		} else {
			v.Outcome = newOutcomeView(item.Outcome)
			succeeded++
		}
		views = append(views, v)
	}

	RespondOK(c, gin.H{
		"items":     views,
		"total":     len(views),
		"succeeded": succeeded,
	})
}

// GetOrExecute handles POST /api/v1/parse/cached
func (h *ParseHandler) GetOrExecute(c *gin.Context) {
	var input CachedInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.orch.GetOrExecute(c.Request.Context(), input.Path, input.Strategy)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, result)
}

// Select handles POST /api/v1/select
func (h *ParseHandler) Select(c *gin.Context) {
	var input SelectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	criteria, err := domain.ParseCriteria(input.Criteria)
	if err != nil {
		HandleError(c, err)
		return
	}
	cons := domain.Constraints{
		MaxMemoryMB: input.MaxMemoryMB,
		MaxDuration: secondsToDuration(input.MaxDurationSecs),
	}

	sel, prof, err := h.orch.SelectStrategy(input.Path, criteria, cons)
	if err != nil {
		HandleError(c, err)
		return
	}

	ranked := make([]scoredView, 0, len(sel.Ranked))
	for _, s := range sel.Ranked {
		ranked = append(ranked, scoredView{
			Strategy:  s.Strategy.Name(),
			Score:     s.Score,
			Rationale: s.Rationale,
		})
	}

	RespondOK(c, gin.H{
		"profile":  prof,
		"criteria": string(criteria),
		"fallback": sel.Fallback,
		"ranked":   ranked,
	})
}
