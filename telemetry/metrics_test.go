package telemetry

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsObserversDoNotPanic(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	ctx := context.Background()

	m.ObserveEnsure(ctx, 3)
	m.ObserveFetch(ctx, true)
	m.ObserveFetch(ctx, false)
	m.ObserveKernelCall(ctx)
	m.ObserveEviction(ctx, 1)
	m.ObserveComputeError(ctx)
	m.ObserveCacheFull(ctx)
	m.SessionOpened(ctx)
	m.SessionClosed(ctx)
}

func TestMetricsHandlerExposesRegisteredSeries(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.ObserveEnsure(context.Background(), 1)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "kernelcache_ensure_calls_total") {
		t.Errorf("metrics body missing kernelcache_ensure_calls_total:\n%s", body)
	}
}
