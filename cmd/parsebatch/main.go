// Command parsebatch parses documents from the command line without running
// the HTTP server. Directory arguments are walked recursively.
// Usage: go run ./cmd/parsebatch [-criteria balanced] [-cache=false] PATH...
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"parsemill/internal/cache"
	"parsemill/internal/config"
	"parsemill/internal/domain"
	"parsemill/internal/memory"
	"parsemill/internal/metrics"
	"parsemill/internal/orchestrator"
	"parsemill/internal/profile"
	"parsemill/internal/registry"
	"parsemill/internal/selector"
	"parsemill/internal/strategy"
)

func main() {
	criteria := flag.String("criteria", "balanced", "selection criteria: speed, memory, quality, balanced")
	useCache := flag.Bool("cache", true, "reuse cached results")
	concurrency := flag.Int("concurrency", 0, "parallel parses (0 = configured default)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: parsebatch [flags] PATH...")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(*criteria, *useCache, *concurrency, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(criteriaStr string, useCache bool, concurrency int, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	criteria, err := domain.ParseCriteria(criteriaStr)
	if err != nil {
		return fmt.Errorf("invalid criteria %q: allowed are speed, memory, quality, balanced", criteriaStr)
	}

	paths, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files found under the given paths")
	}

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

	governor := memory.NewGovernor(memory.Config{
		LimitMB:           cfg.Memory.LimitMB,
		SampleInterval:    cfg.Memory.SampleInterval,
		WarningThreshold:  cfg.Memory.WarningThreshold,
		CriticalThreshold: cfg.Memory.CriticalThreshold,
	})
	governor.Start()
	defer governor.Stop()

	// One short-lived process: an in-memory tier is the whole cache here.
	memTier, err := cache.NewMemoryTier(cache.MemoryTierConfig{
		MaxEntries: cfg.Cache.Memory.MaxEntries,
		TTL:        cfg.Cache.Memory.TTL,
	})
	if err != nil {
		return err
	}
	tiered := cache.NewTiered(cfg.Cache.TTL, memTier)
	defer func() { _ = tiered.Close() }()

	if concurrency <= 0 {
		concurrency = cfg.Orchestrator.MaxConcurrency
	}
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
		MaxConcurrency:     concurrency,
	}, profiler, reg, sel, ledger, governor, tiered, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Parsing %d document(s), criteria %s, concurrency %d", len(paths), criteria, concurrency)
	items := orch.ParseBatch(ctx, paths, criteria, useCache)

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			log.Printf("FAIL %s: %v", item.Path, item.Err)
			continue
		}
		r := item.Outcome.Result
		cached := ""
		if item.Outcome.CacheHit {
			cached = " (cached)"
		}
		log.Printf("OK   %s: %s confidence %.2f, %d page(s), %d element(s), %s%s",
			item.Path, r.Strategy, r.Confidence, r.PageCount, r.ElementCount,
			item.Outcome.Duration.Round(time.Millisecond), cached)
	}

	log.Printf("Batch complete: %d parsed, %d failed", len(items)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(items))
	}
	return nil
}

// collectFiles expands arguments into a flat list of regular files, walking
// directories recursively and skipping dotfiles.
func collectFiles(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") && p != arg {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() {
				paths = append(paths, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	return paths, nil
}
