package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"parsemill/internal/cache"
	"parsemill/internal/domain"
	"parsemill/internal/handler"
	"parsemill/internal/memory"
	"parsemill/internal/metrics"
	"parsemill/internal/orchestrator"
	"parsemill/internal/port"
	"parsemill/internal/profile"
	"parsemill/internal/registry"
	"parsemill/internal/selector"
	"parsemill/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedSampler struct {
	stats domain.MemoryStats
}

func (s fixedSampler) Sample() (domain.MemoryStats, error) { return s.stats, nil }

func newGovernor(stats domain.MemoryStats) *memory.Governor {
	return memory.NewGovernorWithSampler(memory.Config{
		LimitMB:           2048,
		SampleInterval:    time.Hour,
		WarningThreshold:  0.8,
		CriticalThreshold: 0.9,
	}, fixedSampler{stats: stats})
}

func normalStats() domain.MemoryStats {
	return domain.MemoryStats{TotalMB: 16384, AvailableMB: 12288, ProcessMB: 200, Pressure: 0.25}
}

func newTieredCache(t *testing.T) *cache.Tiered {
	t.Helper()
	memTier, err := cache.NewMemoryTier(cache.MemoryTierConfig{MaxEntries: 64})
	require.NoError(t, err)
	return cache.NewTiered(time.Hour, memTier)
}

// buildOrchestrator wires a real orchestrator over mock strategies, the way
// the server does at startup.
func buildOrchestrator(t *testing.T, archive port.RunArchive, strategies ...port.Strategy) (*orchestrator.Orchestrator, *registry.Registry, *metrics.Ledger) {
	t.Helper()

	reg := registry.New()
	for _, st := range strategies {
		require.NoError(t, reg.Register(st))
	}
	ledger := metrics.NewLedger(0)

	orch := orchestrator.New(
		orchestrator.Config{MemoryLimitMB: 2048},
		profile.NewProfiler(profile.Config{}),
		reg,
		selector.New(reg, ledger),
		ledger,
		newGovernor(normalStats()),
		newTieredCache(t),
		archive,
	)
	return orch, reg, ledger
}

func scripted(name string, res *domain.Result, execErr error) *mocks.MockStrategy {
	st := &mocks.MockStrategy{}
	st.On("Name").Return(name)
	st.On("CanHandle", mock.Anything, mock.Anything).Return(true)
	st.On("EstimateResources", mock.Anything, mock.Anything).Return(domain.ResourceEstimate{MemoryMB: 50, Seconds: 1})
	if execErr != nil {
		st.On("Execute", mock.Anything, mock.Anything).Return(nil, execErr)
	} else {
		st.On("Execute", mock.Anything, mock.Anything).Return(res, nil)
	}
	return st
}

func docFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha beta gamma\n"), 0644))
	return path
}

func performJSON(fn gin.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	fn(c)
	return w
}

func performGet(fn gin.HandlerFunc, target string, params gin.Params) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, target, http.NoBody)
	c.Params = params
	fn(c)
	return w
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   *handler.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Data, "response has no data field: %s", w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
	return env
}
