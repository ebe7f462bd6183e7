package telemetry

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"regexp"
	"testing"
)

func TestEvictionHandlerCountsEvictionMessagesOnly(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	base := slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewEvictionHandler(base, m))

	logger.Debug("evicting slot", "slot", 1, "row", 2)
	logger.Debug("shrink eviction", "slot", 3, "row", 4, "limit", 1)
	logger.Debug("slot freed", "slot", 5, "row", 6)
	logger.Debug("slot committed", "slot", 7, "row", 8)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	// The exporter attaches scope labels to every series by default, so the
	// sample line may carry a {...} label set before its value.
	body := rec.Body.String()
	if !regexp.MustCompile(`(?m)^kernelcache_evictions_total(\{[^}]*\})? 2$`).MatchString(body) {
		t.Errorf("want kernelcache_evictions_total 2 (only the two eviction-message records), got:\n%s", body)
	}
}

func TestEvictionHandlerDelegatesEnabledAndAttrs(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	base := slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	h := NewEvictionHandler(base, m)

	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(Debug) = true, want false (underlying handler is Warn-level)")
	}
	if _, ok := h.WithAttrs([]slog.Attr{slog.String("k", "v")}).(*EvictionHandler); !ok {
		t.Error("WithAttrs did not return an *EvictionHandler")
	}
	if _, ok := h.WithGroup("g").(*EvictionHandler); !ok {
		t.Error("WithGroup did not return an *EvictionHandler")
	}
}

// discardWriter is an io.Writer that drops everything written to it, so the
// handler under test can run without printing to the real stderr.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
