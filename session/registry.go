// Package session manages the lifetime of row caches for concurrent
// training sessions, keyed by a generated session id.
package session

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"

	"github.com/kernelcache/kernelcache/cache"
)

// shardCount must be a power of two; registry.shardFor masks a session id's
// hash into [0, shardCount), trading a single global lock for shardCount
// independent ones.
const shardCount = 32

// Registry holds one *cache.RowCache per active training session. It is
// safe for concurrent use by many goroutines; each session's cache is still
// only safe for the concurrency its own Ensure/Fetch calls describe.
type Registry struct {
	shards    []*shard
	shardMask uint32
}

type shard struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*cache.RowCache
}

// New builds an empty registry.
func New() *Registry {
	r := &Registry{
		shards:    make([]*shard, shardCount),
		shardMask: uint32(shardCount - 1),
	}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[uuid.UUID]*cache.RowCache)}
	}
	return r
}

func (r *Registry) shardFor(id uuid.UUID) *shard {
	h := fnv.New32a()
	h.Write(id[:])
	return r.shards[h.Sum32()&r.shardMask]
}

// Open constructs a new row cache from cfg and registers it under a freshly
// generated session id.
func (r *Registry) Open(cfg cache.Config, kernel cache.KernelFn) (uuid.UUID, *cache.RowCache, error) {
	c, err := cache.New(cfg, kernel)
	if err != nil {
		return uuid.Nil, nil, err
	}
	id := uuid.New()
	s := r.shardFor(id)
	s.mu.Lock()
	s.entries[id] = c
	s.mu.Unlock()
	return id, c, nil
}

// Get returns the row cache registered under id, if any.
func (r *Registry) Get(id uuid.UUID) (*cache.RowCache, bool) {
	s := r.shardFor(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.entries[id]
	return c, ok
}

// Close removes id's cache from the registry. It does not release the
// cache's buffer explicitly; that happens when the last reference is
// garbage collected.
func (r *Registry) Close(id uuid.UUID) error {
	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("session: unknown session %s", id)
	}
	delete(s.entries, id)
	return nil
}

// Len returns the number of currently registered sessions.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
