package session

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/kernelcache/kernelcache/cache"
)

func fixtureKernel(i, j int32) (float64, error) {
	lo, hi := i, j
	if lo > hi {
		lo, hi = hi, lo
	}
	return float64(10*lo + hi), nil
}

func fixtureConfig() cache.Config {
	return cache.Config{N: 4, SizeMB: 1, ElementSize: 8, Workers: 0}
}

func TestRegistryOpenGetClose(t *testing.T) {
	r := New()

	id, c, err := r.Open(fixtureConfig(), fixtureKernel)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c == nil {
		t.Fatal("Open returned a nil cache")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	got, ok := r.Get(id)
	if !ok || got != c {
		t.Errorf("Get(%v) = (%v, %v), want (%v, true)", id, got, ok, c)
	}

	if err := r.Close(id); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", r.Len())
	}
	if _, ok := r.Get(id); ok {
		t.Error("Get found a session after it was closed")
	}
}

func TestRegistryCloseUnknownSessionIsAnError(t *testing.T) {
	r := New()
	if err := r.Close(uuid.New()); err == nil {
		t.Fatal("Close: want error for an unregistered session id, got nil")
	}
}

func TestRegistryOpenPropagatesConfigError(t *testing.T) {
	r := New()
	cfg := fixtureConfig()
	cfg.N = 0

	_, _, err := r.Open(cfg, fixtureKernel)
	var cfgErr *cache.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Open: err = %v, want a *cache.ConfigError", err)
	}
}

func TestRegistryManySessionsSpreadAcrossShards(t *testing.T) {
	r := New()
	ids := make([]uuid.UUID, 0, 64)
	for i := 0; i < 64; i++ {
		id, _, err := r.Open(fixtureConfig(), fixtureKernel)
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		ids = append(ids, id)
	}
	if r.Len() != 64 {
		t.Fatalf("Len() = %d, want 64", r.Len())
	}
	for _, id := range ids {
		if _, ok := r.Get(id); !ok {
			t.Errorf("Get(%v) missing after opening 64 concurrent-looking sessions", id)
		}
	}
	used := 0
	for _, s := range r.shards {
		if len(s.entries) > 0 {
			used++
		}
	}
	if used < 2 {
		t.Errorf("64 sessions landed in %d shard(s), want them spread over more than one", used)
	}
}
