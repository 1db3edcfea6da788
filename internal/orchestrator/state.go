package orchestrator

import (
	"time"

	"parsemill/internal/domain"
)

// State identifies where a document is in the orchestration pipeline.
type State int

const (
	StateIdle State = iota
	StateProfiling
	StateCacheCheck
	StateSelecting
	StateExecuting
	StateMerging
	StateWritingCache
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:         "idle",
	StateProfiling:    "profiling",
	StateCacheCheck:   "cache-check",
	StateSelecting:    "selecting",
	StateExecuting:    "executing",
	StateMerging:      "merging",
	StateWritingCache: "writing-cache",
	StateDone:         "done",
	StateFailed:       "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// AttemptStatus classifies one strategy's slot in the fallback chain.
type AttemptStatus string

const (
	AttemptExecuted AttemptStatus = "executed"
	AttemptFailed   AttemptStatus = "failed"
	AttemptDenied   AttemptStatus = "resource-denied"
	AttemptSkipped  AttemptStatus = "skipped"
)

// Attempt records what happened to one ranked strategy.
type Attempt struct {
	Strategy string
	Status   AttemptStatus
	Score    float64
	Result   *domain.Result
	Metrics  domain.ParseMetrics
	Err      error
	// Reason carries the governor's denial explanation for denied attempts.
	Reason string
}

// Outcome is everything one orchestrated parse produced. Metrics belongs to
// the winning attempt and stays zero-valued for cache hits, where nothing
// executed.
type Outcome struct {
	Result   *domain.Result
	Metrics  domain.ParseMetrics
	Profile  domain.Profile
	Criteria domain.SelectionCriteria
	CacheHit bool
	CacheKey string
	Attempts []Attempt
	// States is the transition trace of this run, ending in done or failed.
	States   []State
	Duration time.Duration
}
