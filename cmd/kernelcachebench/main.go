// Command kernelcachebench drives a row cache through a synthetic
// training-style access pattern and prints a summary table with the hit
// rate. Eviction and kernel-call counts are exported on the metrics
// endpoint, not printed.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kernelcache/kernelcache/cache"
	kcconfig "github.com/kernelcache/kernelcache/config"
	"github.com/kernelcache/kernelcache/internal/logging"
	"github.com/kernelcache/kernelcache/kernelfn"
	"github.com/kernelcache/kernelcache/session"
	"github.com/kernelcache/kernelcache/telemetry"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "kernelcachebench",
		Short:         "Benchmark the kernel-matrix row cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.AddCommand(benchCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func benchCommand() *cobra.Command {
	var rounds int
	var batchSize int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a synthetic ensure/fetch workload against a fresh cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := kcconfig.Load(configPath)
			if err != nil {
				return err
			}
			return runBench(cmd.Context(), cfg, rounds, batchSize)
		},
	}
	cmd.Flags().IntVar(&rounds, "rounds", 20, "number of ensure/fetch rounds to run")
	cmd.Flags().IntVar(&batchSize, "batch-size", 32, "rows requested per ensure() round")
	return cmd
}

func runBench(ctx context.Context, cfg *kcconfig.Config, rounds, batchSize int) error {
	logger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)

	if cfg.OTLPEndpoint != "" {
		if err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceVersion); err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = telemetry.Shutdown(shutdownCtx)
			}()
		}
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	registry := session.New()
	kernel := wrapKernel(kernelfn.Linear(), metrics)

	// cacheLogger reports through the same handler the CLI logs with, plus
	// an EvictionHandler that turns the cache's own Debug-level eviction
	// records into the evictions counter.
	cacheLogger := slog.New(telemetry.NewEvictionHandler(logger.Handler(), metrics))

	ccfg := cache.Config{
		N:           cfg.N,
		SizeMB:      cfg.SizeMB,
		Regression:  cfg.Regression,
		ElementSize: cfg.ElementSize,
		Workers:     cfg.Workers,
		Logger:      cacheLogger,
	}
	id, c, err := registry.Open(ccfg, kernel)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	metrics.SessionOpened(ctx)
	defer func() {
		metrics.SessionClosed(ctx)
		_ = registry.Close(id)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			logger.Info("interrupted, stopping after the current round")
			close(done)
		case <-done:
		}
	}()

	tracer := telemetry.Tracer("bench")
	rng := rand.New(rand.NewSource(1))
	out := make([]float64, cfg.N)

	var hits, misses int

	logger.Info("starting bench", "n", cfg.N, "size_mb", cfg.SizeMB, "workers", cfg.Workers, "rounds", rounds)

	for round := 0; round < rounds; round++ {
		select {
		case <-done:
			rounds = round
		default:
		}
		if round >= rounds {
			break
		}

		rows := randomRows(rng, cfg.N, batchSize)

		wasHit := make([]bool, len(rows))
		for i, r := range rows {
			wasHit[i] = c.Check(r)
		}

		spanCtx, span := telemetry.StartSpan(ctx, tracer, "ensure", id.String())
		err := c.Ensure(rows)
		telemetry.RecordError(spanCtx, err)
		span.End()
		if err != nil {
			var cacheFull *cache.CacheFullError
			if errors.As(err, &cacheFull) {
				metrics.ObserveCacheFull(ctx)
				logger.Warn("ensure: cache full", "requested", cacheFull.Requested)
				continue
			}
			var computeErr *cache.ComputeError
			if errors.As(err, &computeErr) {
				metrics.ObserveComputeError(ctx)
			}
			return fmt.Errorf("ensure: %w", err)
		}
		metrics.ObserveEnsure(ctx, len(rows))

		for i, r := range rows {
			if err := c.Fetch(r, nil, out); err != nil {
				var computeErr *cache.ComputeError
				if errors.As(err, &computeErr) {
					metrics.ObserveComputeError(ctx)
				}
				return fmt.Errorf("fetch: %w", err)
			}
			metrics.ObserveFetch(ctx, wasHit[i])
			if wasHit[i] {
				hits++
			} else {
				misses++
			}
		}
	}

	printSummary(cfg, rounds, hits, misses)
	return nil
}

// wrapKernel observes every kernel invocation so the kernel-calls counter on
// the metrics endpoint reflects how much work the cache actually avoided.
func wrapKernel(fn cache.KernelFn, m *telemetry.Metrics) cache.KernelFn {
	return func(i, j int32) (float64, error) {
		m.ObserveKernelCall(context.Background())
		return fn(i, j)
	}
}

func randomRows(rng *rand.Rand, n int32, batchSize int) []int32 {
	rows := make([]int32, batchSize)
	for i := range rows {
		rows[i] = rng.Int31n(n)
	}
	return rows
}

func printSummary(cfg *kcconfig.Config, rounds, hits, misses int) {
	total := hits + misses
	hitRate := 0.0
	if total > 0 {
		hitRate = 100 * float64(hits) / float64(total)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"metric", "value"})
	t.AppendRow(table.Row{"rows (N)", cfg.N})
	t.AppendRow(table.Row{"buffer budget", humanize.Bytes(uint64(cfg.SizeMB * (1 << 20)))})
	t.AppendRow(table.Row{"rounds completed", rounds})
	t.AppendRow(table.Row{"fetches", total})
	t.AppendRow(table.Row{"hit rate", fmt.Sprintf("%.1f%%", hitRate)})
	t.Render()

	if hitRate >= 50 {
		color.Green("cache is earning its keep (%.1f%% hit rate)", hitRate)
	} else {
		color.Yellow("low hit rate (%.1f%%): consider raising size_mb", hitRate)
	}
}
