package metrics

import (
	"sync"
	"time"

	"parsemill/internal/domain"
)

// DefaultHistoryLimit bounds how many runs are retained per strategy.
const DefaultHistoryLimit = 100

// Ledger keeps a bounded, append-only execution history per strategy and
// serves the aggregates that drive adaptive selection. Safe for concurrent use.
type Ledger struct {
	mu    sync.RWMutex
	limit int
	runs  map[string][]domain.ParseMetrics
}

func NewLedger(limit int) *Ledger {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Ledger{
		limit: limit,
		runs:  make(map[string][]domain.ParseMetrics),
	}
}

// Record appends one execution record, dropping the oldest once the
// per-strategy bound is reached.
func (l *Ledger) Record(m domain.ParseMetrics) {
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	hist := append(l.runs[m.Strategy], m)
	if len(hist) > l.limit {
		hist = hist[len(hist)-l.limit:]
	}
	l.runs[m.Strategy] = hist
}

// Summary aggregates the recorded history of one strategy. Strategies with no
// history get a zero-value summary, not an error.
func (l *Ledger) Summary(strategy string) domain.StrategySummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return summarize(strategy, l.runs[strategy])
}

// Summaries returns aggregates for every strategy with at least one run.
func (l *Ledger) Summaries() map[string]domain.StrategySummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]domain.StrategySummary, len(l.runs))
	for name, hist := range l.runs {
		out[name] = summarize(name, hist)
	}
	return out
}

// History returns a copy of the retained runs for one strategy, oldest first.
func (l *Ledger) History(strategy string) []domain.ParseMetrics {
	l.mu.RLock()
	defer l.mu.RUnlock()

	hist := l.runs[strategy]
	out := make([]domain.ParseMetrics, len(hist))
	copy(out, hist)
	return out
}

func summarize(strategy string, hist []domain.ParseMetrics) domain.StrategySummary {
	s := domain.StrategySummary{Strategy: strategy}
	if len(hist) == 0 {
		return s
	}

	var successes int
	var totalDur time.Duration
	var totalMem, totalElems float64
	for _, m := range hist {
		if m.Success {
			successes++
		}
		totalDur += m.Duration
		totalMem += m.MemoryUsedMB
		totalElems += float64(m.ElementsExtracted)
		if m.RecordedAt.After(s.LastRunAt) {
			s.LastRunAt = m.RecordedAt
		}
	}

	n := len(hist)
	s.Runs = n
	s.SuccessRate = float64(successes) / float64(n)
	s.AvgDuration = totalDur / time.Duration(n)
	s.AvgMemoryMB = totalMem / float64(n)
	s.AvgElements = totalElems / float64(n)
	return s
}
