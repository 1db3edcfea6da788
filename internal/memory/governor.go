package memory

import (
	"fmt"
	"log"
	"sync"
	"time"

	"parsemill/internal/domain"
)

const (
	DefaultSampleInterval    = time.Second
	DefaultWarningThreshold  = 0.8
	DefaultCriticalThreshold = 0.9
	DefaultLimitMB           = 2048
)

// Severity bands derived from the pressure thresholds.
const (
	SeverityNormal   = "normal"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Config bounds the process and tunes the sampling loop.
type Config struct {
	LimitMB           float64
	SampleInterval    time.Duration
	WarningThreshold  float64
	CriticalThreshold float64
}

func (c *Config) applyDefaults() {
	if c.LimitMB <= 0 {
		c.LimitMB = DefaultLimitMB
	}
	if c.SampleInterval <= 0 {
		c.SampleInterval = DefaultSampleInterval
	}
	if c.WarningThreshold <= 0 {
		c.WarningThreshold = DefaultWarningThreshold
	}
	if c.CriticalThreshold <= 0 {
		c.CriticalThreshold = DefaultCriticalThreshold
	}
}

// Governor samples memory on a background loop and answers admission queries
// against the latest snapshot. Sampling failure degrades accuracy, never
// availability: admission keeps working off a conservative fixed snapshot.
type Governor struct {
	cfg     Config
	sampler Sampler

	mu       sync.RWMutex
	latest   domain.MemoryStats
	degraded bool

	started   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewGovernor builds a governor backed by the system sampler. The first
// sample is taken synchronously so admission works before Start.
func NewGovernor(cfg Config) *Governor {
	s, err := newSystemSampler()
	if err != nil {
		log.Printf("memory.Governor: system sampler unavailable, using conservative estimates: %v", err)
		return NewGovernorWithSampler(cfg, nil)
	}
	return NewGovernorWithSampler(cfg, s)
}

// NewGovernorWithSampler builds a governor with an injected sampler. A nil
// sampler pins the governor to the conservative fallback snapshot.
func NewGovernorWithSampler(cfg Config, s Sampler) *Governor {
	cfg.applyDefaults()
	g := &Governor{
		cfg:     cfg,
		sampler: s,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	g.sampleOnce()
	return g
}

// Start launches the periodic sampling loop.
func (g *Governor) Start() {
	g.startOnce.Do(func() {
		g.mu.Lock()
		g.started = true
		g.mu.Unlock()
		log.Printf("memory.Governor: sampling every %s (limit %.0fMB)", g.cfg.SampleInterval, g.cfg.LimitMB)
		go g.loop()
	})
}

// Stop terminates the sampling loop and waits for it to exit.
func (g *Governor) Stop() {
	g.stopOnce.Do(func() {
		g.mu.RLock()
		started := g.started
		g.mu.RUnlock()
		if !started {
			return
		}
		close(g.stopCh)
		<-g.doneCh
	})
}

func (g *Governor) loop() {
	defer close(g.doneCh)
	ticker := time.NewTicker(g.cfg.SampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-g.stopCh:
			return
		case <-ticker.C:
			g.sampleOnce()
		}
	}
}

func (g *Governor) sampleOnce() {
	var stats domain.MemoryStats
	var err error
	if g.sampler != nil {
		stats, err = g.sampler.Sample()
	} else {
		err = fmt.Errorf("no sampler")
	}
	if err != nil {
		stats = conservativeStats()
	}

	g.mu.Lock()
	wasDegraded := g.degraded
	g.degraded = err != nil
	g.latest = stats
	g.mu.Unlock()

	if err != nil && !wasDegraded {
		log.Printf("memory.Governor: sampling failed, falling back to conservative estimates: %v", err)
	} else if err == nil && wasDegraded {
		log.Printf("memory.Governor: sampling recovered")
	}
}

// Latest returns the most recent snapshot.
func (g *Governor) Latest() domain.MemoryStats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.latest
}

// CanAllocate decides whether a parse attempt estimated at estMB may proceed.
// The returned reason explains denials and over-limit critical admissions.
func (g *Governor) CanAllocate(estMB float64, priority domain.Priority) (bool, string) {
	stats := g.Latest()

	projected := stats.ProcessMB + estMB
	if projected > g.cfg.LimitMB {
		if priority == domain.PriorityCritical {
			return true, fmt.Sprintf("projected %.0fMB exceeds limit %.0fMB, admitted at critical priority", projected, g.cfg.LimitMB)
		}
		return false, fmt.Sprintf("projected %.0fMB exceeds limit %.0fMB", projected, g.cfg.LimitMB)
	}
	if stats.Pressure > g.cfg.CriticalThreshold {
		if priority.Rank() >= domain.PriorityHigh.Rank() {
			return true, fmt.Sprintf("pressure %.2f critical, admitted at %s priority", stats.Pressure, priority)
		}
		return false, fmt.Sprintf("pressure %.2f above critical threshold %.2f", stats.Pressure, g.cfg.CriticalThreshold)
	}
	if stats.Pressure > g.cfg.WarningThreshold && priority == domain.PriorityLow {
		return false, fmt.Sprintf("pressure %.2f above warning threshold %.2f, low priority deferred", stats.Pressure, g.cfg.WarningThreshold)
	}
	return true, "ok"
}

// Severity maps the current pressure onto the normal/warning/critical bands.
func (g *Governor) Severity() string {
	pressure := g.Latest().Pressure
	switch {
	case pressure > g.cfg.CriticalThreshold:
		return SeverityCritical
	case pressure > g.cfg.WarningThreshold:
		return SeverityWarning
	default:
		return SeverityNormal
	}
}

// SuggestCleanup returns remediation steps ordered by impact for the current
// severity band. Under normal pressure there is nothing to suggest.
func (g *Governor) SuggestCleanup() []string {
	switch g.Severity() {
	case SeverityCritical:
		return []string{
			"force garbage collection",
			"clear caches",
			"reduce worker concurrency",
			"switch to low-memory parsing mode",
		}
	case SeverityWarning:
		return []string{
			"force garbage collection",
			"clear caches",
		}
	default:
		return nil
	}
}
