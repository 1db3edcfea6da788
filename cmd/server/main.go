package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parsemill/internal/archive/noop"
	"parsemill/internal/cache"
	"parsemill/internal/config"
	"parsemill/internal/domain"
	"parsemill/internal/handler"
	"parsemill/internal/memory"
	"parsemill/internal/metrics"
	"parsemill/internal/orchestrator"
	"parsemill/internal/port"
	"parsemill/internal/profile"
	"parsemill/internal/registry"
	"parsemill/internal/repository/postgres"
	"parsemill/internal/router"
	"parsemill/internal/selector"
	"parsemill/internal/strategy"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Strategy registry
	reg := registry.New()
	if err := reg.Register(strategy.NewTextStrategy()); err != nil {
		return err
	}
	if err := reg.Register(strategy.NewPDFStrategy()); err != nil {
		return err
	}
	if err := reg.Register(strategy.NewOfficeStrategy()); err != nil {
		return err
	}

	// Memory governor
	governor := memory.NewGovernor(memory.Config{
		LimitMB:           cfg.Memory.LimitMB,
		SampleInterval:    cfg.Memory.SampleInterval,
		WarningThreshold:  cfg.Memory.WarningThreshold,
		CriticalThreshold: cfg.Memory.CriticalThreshold,
	})
	governor.Start()
	defer governor.Stop()

	// Tiered result cache
	tiered, err := buildCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer func() {
		if err := tiered.Close(); err != nil {
			log.Printf("closing cache: %v", err)
		}
	}()

	// Run archive
	archive, closeArchive, err := buildArchive(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize run archive: %w", err)
	}
	defer closeArchive()

	// Orchestrator
	attemptPriority, err := domain.ParsePriority(cfg.Orchestrator.AttemptPriority)
	if err != nil {
		return fmt.Errorf("invalid orchestrator.attempt_priority %q", cfg.Orchestrator.AttemptPriority)
	}
	profiler := profile.NewProfiler(profile.Config{ProbeBytes: cfg.Profiler.ProbeBytes})
	ledger := metrics.NewLedger(cfg.Orchestrator.HistoryLimit)
	sel := selector.New(reg, ledger)
	orch := orchestrator.New(orchestrator.Config{
		EarlyExitThreshold: cfg.Orchestrator.EarlyExitThreshold,
		SafetyMultiplier:   cfg.Orchestrator.SafetyMultiplier,
		MemoryLimitMB:      cfg.Memory.LimitMB,
		AttemptPriority:    attemptPriority,
		CacheTTL:           cfg.Cache.TTL,
		SingleFlight:       cfg.Orchestrator.SingleFlight,
		MaxConcurrency:     cfg.Orchestrator.MaxConcurrency,
	}, profiler, reg, sel, ledger, governor, tiered, archive)

	// Handlers and router
	parseH := handler.NewParseHandler(orch)
	strategyH := handler.NewStrategyHandler(reg, ledger)
	systemH := handler.NewSystemHandler(governor, tiered, archive)
	healthH := handler.NewHealthHandler(reg, archive)
	r := router.Setup(parseH, strategyH, systemH, healthH, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// buildCache assembles the enabled tiers, fastest first.
func buildCache(ctx context.Context, cfg *config.Config) (*cache.Tiered, error) {
	memTier, err := cache.NewMemoryTier(cache.MemoryTierConfig{
		MaxEntries: cfg.Cache.Memory.MaxEntries,
		TTL:        cfg.Cache.Memory.TTL,
	})
	if err != nil {
		return nil, err
	}
	tiers := []port.Tier{memTier}

	if cfg.Cache.Disk.Enabled {
		diskTier, err := cache.NewDiskTier(cache.DiskTierConfig{
			Dir:            cfg.Cache.Disk.Dir,
			SizeLimitBytes: cfg.Cache.Disk.SizeLimitMB << 20,
		})
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, diskTier)
	}

	if cfg.Cache.Remote.Enabled {
		remoteTier, err := cache.NewRemoteTier(ctx, cache.RemoteTierConfig{
			Host:      cfg.Cache.Remote.Host,
			Port:      cfg.Cache.Remote.Port,
			Namespace: cfg.Cache.Remote.Bucket,
			Region:    cfg.Cache.Remote.Region,
			AccessKey: cfg.Cache.Remote.AccessKey,
			SecretKey: cfg.Cache.Remote.SecretKey,
			UseSSL:    cfg.Cache.Remote.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, remoteTier)
	}

	return cache.NewTiered(cfg.Cache.TTL, tiers...), nil
}

// buildArchive picks the configured archive backend. The returned closer is
// a no-op for backends without a connection to release.
func buildArchive(cfg *config.Config) (port.RunArchive, func(), error) {
	switch cfg.Archive.Backend {
	case "postgres":
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewParseRunRepo(db), func() { _ = db.Close() }, nil
	case "noop", "":
		return noop.NewArchive(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown archive backend %q", cfg.Archive.Backend)
	}
}
