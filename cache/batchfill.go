package cache

import "sync"

// ensureParallel allocates every slot up front on the caller goroutine (so
// eviction never races with a fill), then partitions the uncached rows
// across a bounded worker pool plus the caller goroutine itself. The shared
// `computing` set is the sole piece of mutable cross-worker state during
// fill: a worker consults it to decide whether another row's slot is safe
// to reuse, and clears its own row's entry once that row's fill is
// complete.
func (c *RowCache) ensureParallel(rows []int32) error {
	allocated := make([]int32, 0, len(rows))
	slotOf := make(map[int32]int32, len(rows))
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
		slotOf[r] = s
		batch[r] = true
	}

	computing := newComputingSet(rows)

	numWorkers := c.workers - 1
	step := len(rows) / c.workers
	if step < 1 {
		numWorkers = len(rows) - 1
		step = 1
	}

	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() { firstErr = err })
	}

	fillRange := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			row := rows[i]
			slot := slotOf[row]
			exclude := func(k int32) bool { return computing.isSet(k) }
			if err := c.fillRow(row, slot, exclude); err != nil {
				fail(err)
			}
			computing.clear(row)
		}
	}

	end := 0
	for t := 0; t < numWorkers; t++ {
		lo, hi := t*step, (t+1)*step
		end = hi
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fillRange(lo, hi)
		}(lo, hi)
	}

	// The last partition, handed to the caller goroutine: both the normal
	// remainder and, when the worker count collapses to zero, the entire
	// tail.
	fillRange(end, len(rows))

	wg.Wait()

	if firstErr != nil {
		rollback()
		return firstErr
	}
	return nil
}

// computingSet tracks which rows in the current batch are still being
// filled: one flag per row, readable and writable across worker goroutines.
// The map itself needs no synchronization because every key it ever holds
// was inserted before any worker started and is never added to or removed
// after that point; only the bool each key maps to changes, guarded by that
// key's own mutex.
type computingSet struct {
	flags map[int32]*boolFlag
}

type boolFlag struct {
	mu sync.RWMutex
	v  bool
}

func newComputingSet(rows []int32) *computingSet {
	cs := &computingSet{flags: make(map[int32]*boolFlag, len(rows))}
	for _, r := range rows {
		cs.flags[r] = &boolFlag{v: true}
	}
	return cs
}

func (cs *computingSet) isSet(row int32) bool {
	f, ok := cs.flags[row]
	if !ok {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.v
}

func (cs *computingSet) clear(row int32) {
	f, ok := cs.flags[row]
	if !ok {
		return
	}
	f.mu.Lock()
	f.v = false
	f.mu.Unlock()
}
