package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"parsemill/internal/cache"
	"parsemill/internal/domain"
	"parsemill/internal/memory"
	"parsemill/internal/metrics"
	"parsemill/internal/port"
	"parsemill/internal/profile"
	"parsemill/internal/registry"
	"parsemill/internal/selector"
)

const (
	DefaultEarlyExitThreshold = 0.9
	DefaultSafetyMultiplier   = 2.0
	DefaultMaxConcurrency     = 4

	perPageSeconds     = 0.5
	minAttemptDuration = 30 * time.Second
	archiveTimeout     = 5 * time.Second
)

// Config tunes orchestration behavior.
type Config struct {
	EarlyExitThreshold float64
	// SafetyMultiplier widens the per-attempt time budget derived from the
	// profile's page estimate.
	SafetyMultiplier float64
	// MemoryLimitMB feeds the selector's hard memory constraint. It should
	// match the governor's process budget.
	MemoryLimitMB   float64
	AttemptPriority domain.Priority
	CacheTTL        time.Duration
	// SingleFlight collapses concurrent identical requests into one chain
	// execution when caching is on.
	SingleFlight   bool
	MaxConcurrency int
}

func (c *Config) applyDefaults() {
	if c.EarlyExitThreshold <= 0 {
		c.EarlyExitThreshold = DefaultEarlyExitThreshold
	}
	if c.SafetyMultiplier <= 0 {
		c.SafetyMultiplier = DefaultSafetyMultiplier
	}
	if c.AttemptPriority == "" {
		c.AttemptPriority = domain.PriorityNormal
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
}

// Orchestrator drives a document through profiling, cache lookup, adaptive
// selection, the ranked fallback chain, merging and cache write-back.
// Strategy attempts within one document run sequentially; admission is gated
// per attempt by the memory governor.
type Orchestrator struct {
	cfg      Config
	profiler *profile.Profiler
	registry *registry.Registry
	selector *selector.Selector
	ledger   *metrics.Ledger
	governor *memory.Governor
	cache    *cache.Tiered
	archive  port.RunArchive
	flight   singleflight.Group
}

// New wires an orchestrator. archive may be nil when run persistence is off.
func New(cfg Config, profiler *profile.Profiler, reg *registry.Registry, sel *selector.Selector, ledger *metrics.Ledger, governor *memory.Governor, tiered *cache.Tiered, archive port.RunArchive) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		cfg:      cfg,
		profiler: profiler,
		registry: reg,
		selector: sel,
		ledger:   ledger,
		governor: governor,
		cache:    tiered,
		archive:  archive,
	}
}

// ParseOptimized runs the full chain for one document.
func (o *Orchestrator) ParseOptimized(ctx context.Context, path string, criteria domain.SelectionCriteria, useCache bool) (*Outcome, error) {
	return o.dispatch(ctx, path, criteria, useCache, "")
}

// GetOrExecute returns the cached result for the document when present and
// otherwise runs the chain, trying the hinted strategy first. The hint must
// name a registered strategy.
func (o *Orchestrator) GetOrExecute(ctx context.Context, path, strategyHint string) (*domain.Result, error) {
	if strategyHint != "" {
		if _, ok := o.registry.Get(strategyHint); !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownStrategy, strategyHint)
		}
	}
	out, err := o.dispatch(ctx, path, domain.CriteriaBalanced, true, strategyHint)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

// SelectStrategy profiles the document and ranks strategies without
// executing anything. Zero constraints are replaced by derived ones.
func (o *Orchestrator) SelectStrategy(path string, criteria domain.SelectionCriteria, cons domain.Constraints) (*selector.Selection, domain.Profile, error) {
	if criteria == "" {
		criteria = domain.CriteriaBalanced
	}
	prof := o.profiler.Profile(path)
	if cons == (domain.Constraints{}) {
		cons = o.deriveConstraints(prof)
	}
	sel, err := o.selector.Select(prof, criteria, cons)
	if err != nil {
		return nil, prof, err
	}
	return sel, prof, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, path string, criteria domain.SelectionCriteria, useCache bool, hint string) (*Outcome, error) {
	if criteria == "" {
		criteria = domain.CriteriaBalanced
	}
	if err := validateFile(path); err != nil {
		return nil, err
	}

	if o.cfg.SingleFlight && useCache {
		flightKey := fmt.Sprintf("%s|%s|%s", path, criteria, hint)
		v, err, shared := o.flight.Do(flightKey, func() (interface{}, error) {
			return o.run(ctx, path, criteria, useCache, hint)
		})
		if err != nil {
			return nil, err
		}
		if shared {
			log.Printf("orchestrator: joined in-flight parse of %s", path)
		}
		return v.(*Outcome), nil
	}
	return o.run(ctx, path, criteria, useCache, hint)
}

// run executes the orchestration state machine for one document.
func (o *Orchestrator) run(ctx context.Context, path string, criteria domain.SelectionCriteria, useCache bool, hint string) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{Criteria: criteria, States: []State{StateIdle}}
	advance := func(s State) { out.States = append(out.States, s) }

	advance(StateProfiling)
	prof := o.profiler.Profile(path)
	out.Profile = prof
	cons := o.deriveConstraints(prof)

	var fingerprint string
	if useCache {
		advance(StateCacheCheck)
		fp, err := cache.Fingerprint(path)
		if err != nil {
			log.Printf("orchestrator: fingerprinting %s failed, bypassing cache: %v", path, err)
			useCache = false
		} else {
			fingerprint = fp
			if hit := o.checkCache(ctx, out, fingerprint, criteria, cons, hint); hit {
				out.Duration = time.Since(start)
				advance(StateDone)
				o.archiveRun(path, criteria, out, nil)
				return out, nil
			}
		}
	}

	advance(StateSelecting)
	sel, err := o.selector.Select(prof, criteria, cons)
	if err != nil {
		return nil, err
	}
	ranked := rankWithHint(sel.Ranked, hint)
	log.Printf("orchestrator: selected %s (score %.2f) for %s, %d candidate(s)", ranked[0].Strategy.Name(), ranked[0].Score, path, len(ranked))

	advance(StateExecuting)
	var strategyErrs []domain.StrategyError
	earlyExit := false

	for i, cand := range ranked {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("orchestration of %s canceled: %w", path, err)
		}
		name := cand.Strategy.Name()

		est := cand.Strategy.EstimateResources(path, prof.SizeMB)
		allowed, reason := o.governor.CanAllocate(est.MemoryMB, o.cfg.AttemptPriority)
		if !allowed {
			log.Printf("orchestrator: %s denied for %s: %s", name, path, reason)
			out.Attempts = append(out.Attempts, Attempt{Strategy: name, Status: AttemptDenied, Score: cand.Score, Reason: reason})
			strategyErrs = append(strategyErrs, domain.StrategyError{Strategy: name, Err: &domain.ResourceDeniedError{
				Strategy:    name,
				EstimatedMB: est.MemoryMB,
				Priority:    o.cfg.AttemptPriority,
				Reason:      reason,
			}})
			continue
		}

		res, m, err := o.execute(ctx, cand.Strategy, path, prof, cons)
		o.ledger.Record(m)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("orchestration of %s canceled during %s: %w", path, name, ctxErr)
			}
			log.Printf("orchestrator: %s failed on %s: %v", name, path, err)
			out.Attempts = append(out.Attempts, Attempt{Strategy: name, Status: AttemptFailed, Score: cand.Score, Metrics: m, Err: err})
			strategyErrs = append(strategyErrs, domain.StrategyError{Strategy: name, Err: err})
			continue
		}

		out.Attempts = append(out.Attempts, Attempt{Strategy: name, Status: AttemptExecuted, Score: cand.Score, Result: res, Metrics: m})
		if res.Confidence > o.cfg.EarlyExitThreshold {
			log.Printf("orchestrator: early exit on %s: %s confidence %.2f", path, name, res.Confidence)
			for _, rest := range ranked[i+1:] {
				out.Attempts = append(out.Attempts, Attempt{Strategy: rest.Strategy.Name(), Status: AttemptSkipped, Score: rest.Score})
			}
			earlyExit = true
			break
		}
	}

	executed := executedAttempts(out.Attempts)
	if len(executed) == 0 {
		advance(StateFailed)
		aggErr := &domain.AllStrategiesFailedError{Path: path, Errors: strategyErrs}
		log.Printf("orchestrator: %v", aggErr)
		o.archiveRun(path, criteria, nil, aggErr)
		return nil, aggErr
	}

	advance(StateMerging)
	best := executed[0]
	for _, a := range executed[1:] {
		if a.Result.Confidence > best.Result.Confidence {
			best = a
		}
	}
	final := best.Result
	if !earlyExit && len(executed) > 1 {
		final = mergeResults(executed, best)
		log.Printf("orchestrator: merged %d results for %s (confidence %.2f)", len(executed), path, final.Confidence)
	}
	out.Result = final
	out.Metrics = best.Metrics

	if useCache {
		advance(StateWritingCache)
		key := cache.Key(fingerprint, best.Strategy, criteria, cons)
		o.cache.SetResult(ctx, key, final, o.cfg.CacheTTL)
		out.CacheKey = key
	}

	out.Duration = time.Since(start)
	advance(StateDone)
	o.archiveRun(path, criteria, out, nil)
	return out, nil
}

// checkCache probes the hinted strategy's key first, then every registered
// strategy in registration order, returning true on the first hit.
func (o *Orchestrator) checkCache(ctx context.Context, out *Outcome, fingerprint string, criteria domain.SelectionCriteria, cons domain.Constraints, hint string) bool {
	names := o.registry.Names()
	if hint != "" {
		probe := make([]string, 0, len(names)+1)
		probe = append(probe, hint)
		for _, n := range names {
			if n != hint {
				probe = append(probe, n)
			}
		}
		names = probe
	}

	for _, name := range names {
		key := cache.Key(fingerprint, name, criteria, cons)
		if r, ok := o.cache.GetResult(ctx, key); ok {
			log.Printf("orchestrator: cache hit for %s (strategy %s)", out.Profile.Path, name)
			out.Result = r
			out.CacheHit = true
			out.CacheKey = key
			return true
		}
	}
	return false
}

// execute runs one strategy under the per-attempt time budget and builds its
// metrics record. Memory use is the sampled process delta when visible,
// otherwise the strategy's own estimate.
func (o *Orchestrator) execute(ctx context.Context, st port.Strategy, path string, prof domain.Profile, cons domain.Constraints) (*domain.Result, domain.ParseMetrics, error) {
	attemptCtx := ctx
	if cons.MaxDuration > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, cons.MaxDuration)
		defer cancel()
	}

	before := o.governor.Latest().ProcessMB
	started := time.Now()
	res, err := st.Execute(attemptCtx, path)
	dur := time.Since(started)

	usedMB := o.governor.Latest().ProcessMB - before
	if usedMB <= 0 {
		usedMB = st.EstimateResources(path, prof.SizeMB).MemoryMB
	}

	m := domain.ParseMetrics{
		Strategy:     st.Name(),
		Duration:     dur,
		MemoryUsedMB: usedMB,
		Success:      err == nil,
		FileSizeMB:   prof.SizeMB,
		RecordedAt:   time.Now(),
	}
	if err != nil {
		return nil, m, err
	}

	if res.Confidence < 0 {
		res.Confidence = 0
	} else if res.Confidence > 1 {
		res.Confidence = 1
	}
	if res.Strategy == "" {
		res.Strategy = st.Name()
	}
	m.ElementsExtracted = res.ElementCount
	return res, m, nil
}

// mergeResults combines all successful attempts: the text body and element
// count come from the single most confident attempt, boolean features are
// OR'd across attempts, page count is the max and confidence the mean.
// The asymmetry is deliberate: bodies do not concatenate meaningfully.
func mergeResults(executed []Attempt, best Attempt) *domain.Result {
	merged := *best.Result
	var confSum float64
	for _, a := range executed {
		r := a.Result
		confSum += r.Confidence
		merged.HasTables = merged.HasTables || r.HasTables
		merged.HasForms = merged.HasForms || r.HasForms
		merged.HasImages = merged.HasImages || r.HasImages
		if r.PageCount > merged.PageCount {
			merged.PageCount = r.PageCount
		}
	}
	merged.Confidence = confSum / float64(len(executed))
	merged.Merged = true
	return &merged
}

func executedAttempts(attempts []Attempt) []Attempt {
	out := make([]Attempt, 0, len(attempts))
	for _, a := range attempts {
		if a.Status == AttemptExecuted {
			out = append(out, a)
		}
	}
	return out
}

// rankWithHint moves the hinted strategy to the front, keeping the rest of
// the ranking intact.
func rankWithHint(ranked []selector.Scored, hint string) []selector.Scored {
	if hint == "" {
		return ranked
	}
	for i, s := range ranked {
		if s.Strategy.Name() == hint {
			reordered := make([]selector.Scored, 0, len(ranked))
			reordered = append(reordered, ranked[i])
			reordered = append(reordered, ranked[:i]...)
			reordered = append(reordered, ranked[i+1:]...)
			return reordered
		}
	}
	return ranked
}

// deriveConstraints turns the profile's page estimate into a per-attempt
// time budget, widened by the safety multiplier, plus the process memory
// bound.
func (o *Orchestrator) deriveConstraints(prof domain.Profile) domain.Constraints {
	secs := float64(prof.EstimatedPages) * perPageSeconds * o.cfg.SafetyMultiplier
	d := time.Duration(secs * float64(time.Second))
	if d < minAttemptDuration {
		d = minAttemptDuration
	}
	return domain.Constraints{MaxMemoryMB: o.cfg.MemoryLimitMB, MaxDuration: d}
}

func validateFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %s", domain.ErrFileUnreadable, path)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrFileUnreadable, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", domain.ErrFileUnreadable, path)
	}
	return nil
}

// archiveRun persists the run record on a detached context so archival
// survives caller disconnects and never fails a parse.
func (o *Orchestrator) archiveRun(path string, criteria domain.SelectionCriteria, out *Outcome, runErr error) {
	if o.archive == nil {
		return
	}

	run := &domain.ParseRun{
		ID:        uuid.New(),
		Path:      path,
		Criteria:  criteria,
		CreatedAt: time.Now(),
	}
	if out != nil && out.Result != nil {
		run.Strategy = out.Result.Strategy
		run.Success = true
		run.CacheHit = out.CacheHit
		run.Merged = out.Result.Merged
		run.Confidence = out.Result.Confidence
		run.PageCount = out.Result.PageCount
		run.ElementCount = out.Result.ElementCount
		run.DurationMS = out.Duration.Milliseconds()
		run.MemoryMB = out.Metrics.MemoryUsedMB
	} else if runErr != nil {
		run.Error = runErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := o.archive.Record(ctx, run); err != nil {
		log.Printf("orchestrator: archiving run for %s failed: %v", path, err)
	}
}
