package memory

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parsemill/internal/domain"
)

type stubSampler struct {
	mu    sync.Mutex
	stats domain.MemoryStats
	err   error
}

func (s *stubSampler) Sample() (domain.MemoryStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats, s.err
}

func (s *stubSampler) set(stats domain.MemoryStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
}

func newTestGovernor(stats domain.MemoryStats) *Governor {
	return NewGovernorWithSampler(Config{
		LimitMB:           2048,
		SampleInterval:    time.Hour,
		WarningThreshold:  0.8,
		CriticalThreshold: 0.9,
	}, &stubSampler{stats: stats})
}

func TestGovernor_FirstSampleIsSynchronous(t *testing.T) {
	g := newTestGovernor(domain.MemoryStats{TotalMB: 16384, AvailableMB: 8192, ProcessMB: 300, Pressure: 0.5})

	// No Start needed: admission must work from construction.
	latest := g.Latest()
	assert.Equal(t, 300.0, latest.ProcessMB)
	assert.Equal(t, 0.5, latest.Pressure)
}

func TestGovernor_CanAllocate(t *testing.T) {
	tests := []struct {
		name     string
		stats    domain.MemoryStats
		estMB    float64
		priority domain.Priority
		allowed  bool
	}{
		{"normal pressure admits low", domain.MemoryStats{ProcessMB: 400, Pressure: 0.5}, 500, domain.PriorityLow, true},
		{"normal pressure admits normal", domain.MemoryStats{ProcessMB: 400, Pressure: 0.5}, 500, domain.PriorityNormal, true},
		{"warning pressure defers low", domain.MemoryStats{ProcessMB: 400, Pressure: 0.85}, 500, domain.PriorityLow, false},
		{"warning pressure admits normal", domain.MemoryStats{ProcessMB: 400, Pressure: 0.85}, 500, domain.PriorityNormal, true},
		{"critical pressure denies normal", domain.MemoryStats{ProcessMB: 400, Pressure: 0.95}, 500, domain.PriorityNormal, false},
		{"critical pressure denies low", domain.MemoryStats{ProcessMB: 400, Pressure: 0.95}, 500, domain.PriorityLow, false},
		{"critical pressure admits high", domain.MemoryStats{ProcessMB: 400, Pressure: 0.95}, 500, domain.PriorityHigh, true},
		{"critical pressure admits critical", domain.MemoryStats{ProcessMB: 400, Pressure: 0.95}, 500, domain.PriorityCritical, true},
		{"over limit denies high", domain.MemoryStats{ProcessMB: 1800, Pressure: 0.5}, 500, domain.PriorityHigh, false},
		{"over limit admits critical", domain.MemoryStats{ProcessMB: 1800, Pressure: 0.5}, 500, domain.PriorityCritical, true},
		{"exactly at limit is allowed", domain.MemoryStats{ProcessMB: 1548, Pressure: 0.5}, 500, domain.PriorityNormal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGovernor(tt.stats)
			allowed, reason := g.CanAllocate(tt.estMB, tt.priority)
			assert.Equal(t, tt.allowed, allowed)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestGovernor_LimitCheckedBeforePressure(t *testing.T) {
	// Both conditions hold; the reason must name the limit, not the pressure.
	g := newTestGovernor(domain.MemoryStats{ProcessMB: 1800, Pressure: 0.95})

	allowed, reason := g.CanAllocate(500, domain.PriorityHigh)
	assert.False(t, allowed)
	assert.Contains(t, reason, "exceeds limit")
}

func TestGovernor_Severity(t *testing.T) {
	tests := []struct {
		pressure float64
		want     string
	}{
		{0.5, SeverityNormal},
		{0.8, SeverityNormal},
		{0.85, SeverityWarning},
		{0.9, SeverityWarning},
		{0.95, SeverityCritical},
	}

	for _, tt := range tests {
		g := newTestGovernor(domain.MemoryStats{Pressure: tt.pressure})
		assert.Equal(t, tt.want, g.Severity(), "pressure %.2f", tt.pressure)
	}
}

func TestGovernor_SuggestCleanup(t *testing.T) {
	normal := newTestGovernor(domain.MemoryStats{Pressure: 0.5})
	assert.Nil(t, normal.SuggestCleanup())

	warning := newTestGovernor(domain.MemoryStats{Pressure: 0.85})
	require.Len(t, warning.SuggestCleanup(), 2)

	critical := newTestGovernor(domain.MemoryStats{Pressure: 0.95})
	steps := critical.SuggestCleanup()
	require.Len(t, steps, 4)
	assert.Equal(t, "force garbage collection", steps[0])
}

func TestGovernor_SamplerFailureFallsBackConservatively(t *testing.T) {
	g := NewGovernorWithSampler(Config{}, &stubSampler{err: errors.New("proc unavailable")})

	latest := g.Latest()
	assert.Equal(t, 8192.0, latest.TotalMB)
	assert.Equal(t, 512.0, latest.ProcessMB)
	assert.Equal(t, 0.875, latest.Pressure)

	// 0.875 sits in the warning band, so low priority work is deferred.
	allowed, _ := g.CanAllocate(100, domain.PriorityLow)
	assert.False(t, allowed)
	allowed, _ = g.CanAllocate(100, domain.PriorityNormal)
	assert.True(t, allowed)
}

func TestGovernor_NilSamplerPinsFallback(t *testing.T) {
	g := NewGovernorWithSampler(Config{}, nil)
	assert.Equal(t, 0.875, g.Latest().Pressure)
}

func TestGovernor_LoopRefreshesSnapshot(t *testing.T) {
	s := &stubSampler{stats: domain.MemoryStats{ProcessMB: 100, Pressure: 0.3}}
	g := NewGovernorWithSampler(Config{SampleInterval: 5 * time.Millisecond}, s)
	g.Start()
	defer g.Stop()

	s.set(domain.MemoryStats{ProcessMB: 1500, Pressure: 0.7})

	assert.Eventually(t, func() bool {
		return g.Latest().ProcessMB == 1500
	}, time.Second, 5*time.Millisecond)
}

func TestGovernor_StopWithoutStart(t *testing.T) {
	g := newTestGovernor(domain.MemoryStats{})
	g.Stop() // must not block
	g.Stop() // idempotent
}
