package telemetry

import (
	"context"
	"log/slog"
)

// EvictionHandler wraps a slog.Handler and forwards every record logged at
// one of the cache's two genuine eviction sites ("evicting slot", emitted by
// allocate's LRU path, and "shrink eviction", emitted by Shrink's
// evictDownTo path) to Metrics.ObserveEviction before passing the record on
// to next unchanged. Rollback frees ("slot freed") are not evictions and are
// left alone.
type EvictionHandler struct {
	next    slog.Handler
	metrics *Metrics
}

// NewEvictionHandler returns an EvictionHandler that reports to m and
// otherwise behaves exactly like next.
func NewEvictionHandler(next slog.Handler, m *Metrics) *EvictionHandler {
	return &EvictionHandler{next: next, metrics: m}
}

func (h *EvictionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *EvictionHandler) Handle(ctx context.Context, r slog.Record) error {
	switch r.Message {
	case "evicting slot", "shrink eviction":
		h.metrics.ObserveEviction(ctx, 1)
	}
	return h.next.Handle(ctx, r)
}

func (h *EvictionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EvictionHandler{next: h.next.WithAttrs(attrs), metrics: h.metrics}
}

func (h *EvictionHandler) WithGroup(name string) slog.Handler {
	return &EvictionHandler{next: h.next.WithGroup(name), metrics: h.metrics}
}
