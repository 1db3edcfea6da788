package selector

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"parsemill/internal/domain"
	"parsemill/internal/metrics"
	"parsemill/internal/port"
	"parsemill/internal/registry"
)

const baseScore = 0.5

// Scored pairs a strategy with its computed score and a human-readable
// rationale for operators.
type Scored struct {
	Strategy  port.Strategy
	Score     float64
	Rationale string
}

// Selection is the ranked output of one Select call. Ranked is never empty.
type Selection struct {
	Ranked   []Scored
	Criteria domain.SelectionCriteria
	// Fallback is set when no registered strategy claimed the document and
	// the full registry was used instead, preserving registration order.
	Fallback bool
}

// Selected returns the winning entry.
func (s *Selection) Selected() Scored {
	return s.Ranked[0]
}

// Alternatives returns up to two runners-up.
func (s *Selection) Alternatives() []Scored {
	if len(s.Ranked) <= 1 {
		return nil
	}
	end := 3
	if len(s.Ranked) < end {
		end = len(s.Ranked)
	}
	return s.Ranked[1:end]
}

// Selector ranks strategies for a document by combining resource estimates
// with recorded execution history. Selection is deterministic: identical
// profile, criteria, constraints and ledger state produce identical rankings.
type Selector struct {
	registry *registry.Registry
	ledger   *metrics.Ledger
}

func New(reg *registry.Registry, ledger *metrics.Ledger) *Selector {
	return &Selector{registry: reg, ledger: ledger}
}

// Select ranks all capable strategies for the profiled document. When no
// strategy claims the document, the full registry is ranked in registration
// order with a warning so the first-registered strategy still gets a try.
func (s *Selector) Select(profile domain.Profile, criteria domain.SelectionCriteria, cons domain.Constraints) (*Selection, error) {
	all := s.registry.Strategies()
	if len(all) == 0 {
		return nil, domain.ErrNoStrategies
	}

	candidates := make([]port.Strategy, 0, len(all))
	for _, st := range all {
		if st.CanHandle(profile.Path, profile.SizeMB) {
			candidates = append(candidates, st)
		}
	}

	fallback := false
	if len(candidates) == 0 {
		log.Printf("selector: no strategy claims %s (.%s, %.1fMB), falling back to full registry", profile.Path, profile.Extension, profile.SizeMB)
		candidates = all
		fallback = true
	}

	ranked := make([]Scored, 0, len(candidates))
	for _, st := range candidates {
		ranked = append(ranked, s.score(st, profile, criteria, cons))
	}
	// The fallback path keeps registration order so the first-registered
	// strategy wins; otherwise sort by score, stable so ties keep
	// registration order and ranking stays deterministic.
	if !fallback {
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	}

	return &Selection{Ranked: ranked, Criteria: criteria, Fallback: fallback}, nil
}

func (s *Selector) score(st port.Strategy, profile domain.Profile, criteria domain.SelectionCriteria, cons domain.Constraints) Scored {
	est := st.EstimateResources(profile.Path, profile.SizeMB)
	hist := s.ledger.Summary(st.Name())
	avgTime := hist.AvgDuration.Seconds()

	score := baseScore
	parts := []string{fmt.Sprintf("base %.2f", baseScore)}

	switch criteria {
	case domain.CriteriaSpeed:
		adj := 0.3/math.Max(avgTime, 0.1) - math.Min(est.Seconds*0.02, 0.2)
		score += adj
		parts = append(parts, fmt.Sprintf("speed %+.2f", adj))
	case domain.CriteriaMemory:
		adj := -math.Min(est.MemoryMB*0.001, 0.3)
		if overMemoryLimit(est, cons) {
			adj -= 0.5
		}
		score += adj
		parts = append(parts, fmt.Sprintf("memory %+.2f", adj))
	case domain.CriteriaQuality:
		adj := math.Min(hist.AvgElements*0.01, 0.3)
		score += adj
		parts = append(parts, fmt.Sprintf("quality %+.2f", adj))
	default:
		adj := hist.SuccessRate*0.2 - math.Min(est.Seconds*0.01, 0.1) - math.Min(est.MemoryMB*0.0005, 0.1)
		score += adj
		parts = append(parts, fmt.Sprintf("balanced %+.2f", adj))
	}

	if hist.Runs > 5 {
		adj := (hist.SuccessRate - 0.5) * 0.2
		score += adj
		parts = append(parts, fmt.Sprintf("history %+.2f over %d runs", adj, hist.Runs))
	}

	// Clamp before the constraint multiplier so a violating strategy never
	// scores above 0.3x a non-violating one, however large the raw bonuses.
	score = clamp01(score)
	if overMemoryLimit(est, cons) {
		score *= 0.3
		parts = append(parts, fmt.Sprintf("over memory limit %.0fMB > %.0fMB, x0.3", est.MemoryMB, cons.MaxMemoryMB))
	}
	score = clamp01(score)

	return Scored{
		Strategy:  st,
		Score:     score,
		Rationale: fmt.Sprintf("%s: %s -> %.2f", st.Name(), strings.Join(parts, ", "), score),
	}
}

func overMemoryLimit(est domain.ResourceEstimate, cons domain.Constraints) bool {
	return cons.MaxMemoryMB > 0 && est.MemoryMB > cons.MaxMemoryMB
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
