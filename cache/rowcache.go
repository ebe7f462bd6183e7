// Package cache implements a bounded-memory, LRU-evicted row cache for a
// kernel-matrix-backed SVM training loop. It mixes cached and freshly
// computed entries on fetch, fills rows in a batch (serially or with a
// bounded worker pool), and compacts itself in place when the solver
// shrinks its active column set.
package cache

import (
	"log/slog"
	"math"
)

// maxIndexValue is the largest value this cache's index type (int32 column
// offsets, addressed into a flat buffer) may represent. New and Resize both
// check the derived buffer size against it so an overflowing request fails
// fast instead of silently wrapping.
const maxIndexValue = math.MaxInt32

// KernelFn computes kappa(i, j), the similarity between training examples i
// and j. It must be symmetric and deterministic, and safe to call
// concurrently with distinct argument pairs; the cache never mutates or
// retries it.
type KernelFn func(i, j int32) (float64, error)

// Config carries init's four inputs plus the worker-pool size Ensure's
// parallel fill path may use.
type Config struct {
	// N is the number of training examples; the real, undoubled matrix size.
	N int32
	// SizeMB is the requested buffer budget in megabytes.
	SizeMB float64
	// Regression doubles the addressable row space to 2N.
	Regression bool
	// ElementSize is the byte size of one cached cell.
	ElementSize int
	// Workers bounds Ensure's parallel fill path; values below 2 force the
	// serial path.
	Workers int
	// Logger, if non-nil, receives Debug-level allocation/eviction/shrink
	// events. It is never consulted on Fetch's hit path. A nil Logger
	// disables this logging entirely.
	Logger *slog.Logger
}

// RowCache composes an active column set, a slot table, a flat value
// buffer and an LRU clock behind the kernel function they serve rows from.
// A RowCache owns all of its arrays for its lifetime; the only shared,
// externally-owned reference it holds is the KernelFn.
type RowCache struct {
	n       int32 // N
	nPrime  int32 // N' = N or 2N
	workers int
	kernel  KernelFn

	active *activeSet
	slots  *slotTable
	buf    *buffer
	clock  *lruClock
	logger *slog.Logger
}

// New derives N', the buffer size and the slot count M from cfg and
// returns a *ConfigError if the inputs cannot produce a usable cache.
func New(cfg Config, kernel KernelFn) (*RowCache, error) {
	if cfg.N <= 0 {
		return nil, &ConfigError{Reason: "N must be positive"}
	}
	if cfg.ElementSize <= 0 {
		return nil, &ConfigError{Reason: "element size must be positive"}
	}
	if kernel == nil {
		return nil, &ConfigError{Reason: "kernel function must not be nil"}
	}

	nPrime := cfg.N
	if cfg.Regression {
		nPrime = 2 * cfg.N
	}

	bufSize, err := deriveBufferSize(cfg.SizeMB, cfg.ElementSize, nPrime)
	if err != nil {
		return nil, err
	}

	m := nPrime
	if perRow := bufSize / int(nPrime); perRow < int(nPrime) {
		m = int32(perRow)
	}
	if m == 0 {
		return nil, &ConfigError{Reason: "buffer too small for any row"}
	}

	c := &RowCache{
		n:       cfg.N,
		nPrime:  nPrime,
		workers: cfg.Workers,
		kernel:  kernel,
		active:  newActiveSet(cfg.N),
		slots:   newSlotTable(int(nPrime), cfg.N, cfg.Logger),
		buf:     newBuffer(bufSize),
		clock:   &lruClock{},
		logger:  cfg.Logger,
	}
	c.slots.maxElems = int(m)
	return c, nil
}

// deriveBufferSize computes B = clamp(S*2^20/E, 10, N'^2) and rejects it if
// it can't hold even one full row, or overflows the index range.
func deriveBufferSize(sizeMB float64, elementSize int, nPrime int32) (int, error) {
	bytes := sizeMB * (1 << 20)
	cells := int64(bytes) / int64(elementSize)

	upper := int64(nPrime) * int64(nPrime)
	if cells > upper {
		cells = upper
	}
	if cells < 10 {
		cells = 10
	}

	if cells > maxIndexValue {
		return 0, &ConfigError{Reason: "requested buffer exceeds the cache's index range"}
	}
	if cells < int64(nPrime) {
		return 0, &ConfigError{Reason: "buffer too small to hold one full row"}
	}
	return int(cells), nil
}

// Check reports whether row is currently cached.
func (c *RowCache) Check(row int32) bool {
	rPrime := fold(row, c.n)
	_, ok := c.slots.check(rPrime)
	return ok
}

// Fetch fills out[j] = kappa(row, j) for every requested column, mixing
// cached cells with fresh kernel calls. columns == nil means every j in
// [0, N); otherwise columns is scanned up to its own -1 sentinel or its
// end, whichever comes first, so a caller building a sentinel-terminated
// list or one with an explicit length both work.
func (c *RowCache) Fetch(row int32, columns []int32, out []float64) error {
	rPrime := fold(row, c.n)
	A := c.active.size()

	s, hit := c.slots.check(rPrime)
	if hit {
		c.slots.bumpLRU(s, c.clock)
	}

	cell := func(j int32) (float64, error) {
		if hit {
			if a, ok := c.active.active(j); ok {
				return c.buf.get(s, a, A), nil
			}
		}
		v, err := c.kernel(rPrime, j)
		if err != nil {
			return 0, &ComputeError{Row: rPrime, Col: j, Err: err}
		}
		return v, nil
	}

	if columns == nil {
		for j := int32(0); j < c.n; j++ {
			v, err := cell(j)
			if err != nil {
				return err
			}
			out[j] = v
		}
		return nil
	}

	for _, j := range columns {
		if j == -1 {
			break
		}
		v, err := cell(j)
		if err != nil {
			return err
		}
		out[j] = v
	}
	return nil
}

// Ensure populates slots for every row in rows that is not already cached,
// deduplicating and folding as it goes, then dispatches to the serial or
// parallel fill path.
func (c *RowCache) Ensure(rows []int32) error {
	seen := make(map[int32]bool, len(rows))
	uncached := make([]int32, 0, len(rows))
	for _, r := range rows {
		rPrime := fold(r, c.n)
		if seen[rPrime] {
			continue
		}
		seen[rPrime] = true
		if _, ok := c.slots.check(rPrime); !ok {
			uncached = append(uncached, rPrime)
		}
	}
	if len(uncached) == 0 {
		return nil
	}
	if c.workers >= 2 && len(uncached) > 1 {
		return c.ensureParallel(uncached)
	}
	return c.ensureSerial(uncached)
}

// ensureSerial is Ensure's single-goroutine fill path.
func (c *RowCache) ensureSerial(rows []int32) error {
	allocated := make([]int32, 0, len(rows))
	batch := make(map[int32]bool, len(rows))
	rollback := func() {
		for _, s := range allocated {
			c.slots.freeSlot(s)
		}
	}

	for _, r := range rows {
		s, ok := c.slots.allocate(batch)
		if !ok {
			rollback()
			return &CacheFullError{Requested: len(rows)}
		}
		c.slots.commit(s, r, c.clock)
		allocated = append(allocated, s)
		batch[r] = true

		exclude := func(k int32) bool { return k == r }
		if err := c.fillRow(r, s, exclude); err != nil {
			rollback()
			return err
		}
	}
	return nil
}

// fillRow fills every active-column cell of slot for row, reusing an
// already-cached other row's value when available and not excluded,
// falling back to a fresh kernel call otherwise.
func (c *RowCache) fillRow(row, slot int32, exclude func(k int32) bool) error {
	A := c.active.size()
	l, lOk := c.active.active(row)
	fwd := c.active.fwd

	for j := int32(0); j < A; j++ {
		k := fwd[j]
		var v float64
		if s2, ok := c.slots.check(k); ok && lOk && !exclude(k) {
			v = c.buf.get(s2, l, A)
		} else {
			val, err := c.kernel(row, k)
			if err != nil {
				return &ComputeError{Row: row, Col: k, Err: err}
			}
			v = val
		}
		c.buf.set(slot, j, A, v)
	}
	return nil
}

// ResetLRU rebases every slot's LRU timestamp without changing their
// relative order.
func (c *RowCache) ResetLRU() {
	c.slots.resetLRU()
}

// Clear empties the cache, releasing every slot.
func (c *RowCache) Clear() {
	c.slots.clear()
}

// Shrink drops up to numShrink active columns whose logical row fails
// keep, compacts the buffer in place, rebuilds the active set, and (if
// necessary) evicts down to the new row capacity M'.
func (c *RowCache) Shrink(keep func(row int32) bool, numShrink int) error {
	A := c.active.size()
	if numShrink < 0 || numShrink > int(A) {
		return &UsageError{Reason: "numShrink exceeds the current active column count"}
	}
	if numShrink == 0 {
		return nil
	}

	drop := make(map[int32]bool, numShrink)
	scount := 0
	for _, row := range c.active.fwd {
		if scount >= numShrink {
			break
		}
		if !keep(row) {
			drop[row] = true
			scount++
		}
	}
	if scount == 0 {
		return nil
	}

	oldFwd := c.active.fwd
	oldMaxElems := c.slots.maxElems
	newA := int32(len(oldFwd) - scount)

	// In-place compaction: a single write-cursor `to` and read-cursor `from`
	// sweep the buffer in the same stride direction across every slot 0..M-1
	// (occupied or not; slots are contiguous A-wide regions, so walking all
	// of them keeps slot i's surviving cells landing at slot i's new,
	// narrower offset), copying kept columns forward and skipping dropped
	// ones.
	to, from := 0, 0
	for s := 0; s < oldMaxElems; s++ {
		for _, row := range oldFwd {
			if drop[row] {
				from++
				continue
			}
			c.buf.cells[to] = c.buf.cells[from]
			to++
			from++
		}
	}

	c.active.shrinkTo(func(row int32) bool { return !drop[row] })

	var newM int32
	if newA > 0 {
		newM = c.n
		if perRow := int32(int(c.buf.size()) / int(newA)); perRow < newM {
			newM = perRow
		}
	}
	c.slots.maxElems = int(newM)

	if c.logger != nil {
		c.logger.Debug("shrink compaction",
			"dropped", scount, "oldActive", len(oldFwd), "newActive", newA, "newM", newM)
	}

	c.slots.evictDownTo(int(newM))

	return nil
}

// Resize is equivalent to clear plus reinitializing the sizing parameters,
// preserving N and Regression: only the buffer's size and element width
// change.
func (c *RowCache) Resize(sizeMB float64, elementSize int) error {
	bufSize, err := deriveBufferSize(sizeMB, elementSize, c.nPrime)
	if err != nil {
		return err
	}
	m := c.nPrime
	if perRow := bufSize / int(c.nPrime); perRow < int(c.nPrime) {
		m = int32(perRow)
	}
	if m == 0 {
		return &ConfigError{Reason: "buffer too small for any row"}
	}

	c.active = newActiveSet(c.n)
	c.slots = newSlotTable(int(c.nPrime), c.n, c.logger)
	c.slots.maxElems = int(m)
	c.buf = newBuffer(bufSize)
	return nil
}
