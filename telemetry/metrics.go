package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the row cache's counters and gauges, bridged to Prometheus
// through the OTel metric SDK's Prometheus exporter.
type Metrics struct {
	registry *prometheus.Registry

	ensureCalls    metric.Int64Counter
	ensureRows     metric.Int64Counter
	fetchCalls     metric.Int64Counter
	cacheHits      metric.Int64Counter
	cacheMisses    metric.Int64Counter
	kernelCalls    metric.Int64Counter
	evictions      metric.Int64Counter
	computeErrors  metric.Int64Counter
	cacheFullCount metric.Int64Counter
	sessionsActive metric.Int64UpDownCounter
}

// NewMetrics builds the meter provider, registers every instrument the
// cache exposes, and returns the handle components call into.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(serviceName)

	m := &Metrics{registry: reg}

	if m.ensureCalls, err = meter.Int64Counter("kernelcache_ensure_calls_total",
		metric.WithDescription("total Ensure invocations")); err != nil {
		return nil, err
	}
	if m.ensureRows, err = meter.Int64Counter("kernelcache_ensure_rows_total",
		metric.WithDescription("total rows passed to Ensure across all calls")); err != nil {
		return nil, err
	}
	if m.fetchCalls, err = meter.Int64Counter("kernelcache_fetch_calls_total",
		metric.WithDescription("total Fetch invocations")); err != nil {
		return nil, err
	}
	if m.cacheHits, err = meter.Int64Counter("kernelcache_hits_total",
		metric.WithDescription("rows served from the cached buffer")); err != nil {
		return nil, err
	}
	if m.cacheMisses, err = meter.Int64Counter("kernelcache_misses_total",
		metric.WithDescription("rows computed fresh because they were not cached")); err != nil {
		return nil, err
	}
	if m.kernelCalls, err = meter.Int64Counter("kernelcache_kernel_calls_total",
		metric.WithDescription("total calls made to the caller-supplied kernel function")); err != nil {
		return nil, err
	}
	if m.evictions, err = meter.Int64Counter("kernelcache_evictions_total",
		metric.WithDescription("slots freed by LRU eviction")); err != nil {
		return nil, err
	}
	if m.computeErrors, err = meter.Int64Counter("kernelcache_compute_errors_total",
		metric.WithDescription("kernel function failures")); err != nil {
		return nil, err
	}
	if m.cacheFullCount, err = meter.Int64Counter("kernelcache_cache_full_total",
		metric.WithDescription("Ensure calls that could not allocate enough slots")); err != nil {
		return nil, err
	}
	if m.sessionsActive, err = meter.Int64UpDownCounter("kernelcache_sessions_active",
		metric.WithDescription("row caches currently registered in the session registry")); err != nil {
		return nil, err
	}

	return m, nil
}

// Handler returns the HTTP handler serving this Metrics' Prometheus
// registry, for mounting under /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveEnsure(ctx context.Context, rows int) {
	m.ensureCalls.Add(ctx, 1)
	m.ensureRows.Add(ctx, int64(rows))
}

func (m *Metrics) ObserveFetch(ctx context.Context, hit bool) {
	m.fetchCalls.Add(ctx, 1)
	if hit {
		m.cacheHits.Add(ctx, 1)
	} else {
		m.cacheMisses.Add(ctx, 1)
	}
}

func (m *Metrics) ObserveKernelCall(ctx context.Context) {
	m.kernelCalls.Add(ctx, 1)
}

func (m *Metrics) ObserveEviction(ctx context.Context, n int) {
	m.evictions.Add(ctx, int64(n))
}

func (m *Metrics) ObserveComputeError(ctx context.Context) {
	m.computeErrors.Add(ctx, 1)
}

func (m *Metrics) ObserveCacheFull(ctx context.Context) {
	m.cacheFullCount.Add(ctx, 1)
}

func (m *Metrics) SessionOpened(ctx context.Context) {
	m.sessionsActive.Add(ctx, 1)
}

func (m *Metrics) SessionClosed(ctx context.Context) {
	m.sessionsActive.Add(ctx, -1)
}
