package cache

// rebaseThreshold is the clock value past which the driver is expected to
// call reset_lru. Nothing in this package checks it: the cache never
// rebases on its own, the clock only advances.
const rebaseThreshold = 1 << 40

// lruClock is the monotonically increasing counter advanced on every
// successful lookup (a slot commit or a fetch hit). reset_lru rebases the
// slots' stamps by their own maximum and leaves the clock itself as it is.
// It is only ever touched by the driver goroutine; workers spawned by
// batchfill never bump it.
type lruClock struct {
	t int64
}

// tick advances the clock and returns the new value, to be stamped onto a
// slot's lru field.
func (c *lruClock) tick() int64 {
	c.t++
	return c.t
}

func (c *lruClock) now() int64 { return c.t }
