package cache

import "log/slog"

// slotTable is the fixed pool of M row-slots: per-slot occupancy and LRU
// timestamp, the reverse map slot->row (invindex), and the forward map
// row->slot (index). M is re-derived by rowcache.go on shrink, but the
// per-slot arrays here are sized to N' (the largest M can ever be), index
// to N, and M only bounds how many slots are in play at any moment.
type slotTable struct {
	occupied []bool
	lru      []int64
	invindex []int32 // len == cap(slots): slot -> row, or absent
	index    []int32 // len == N: row -> slot, or absent
	elems    int
	maxElems int // M

	// logger, if non-nil, receives Debug-level allocation/eviction/commit
	// events. check and bumpLRU never consult it: both sit on Fetch's hit
	// path.
	logger *slog.Logger
}

func newSlotTable(numSlots int, numRows int32, logger *slog.Logger) *slotTable {
	t := &slotTable{
		occupied: make([]bool, numSlots),
		lru:      make([]int64, numSlots),
		invindex: make([]int32, numSlots),
		index:    make([]int32, numRows),
		maxElems: numSlots,
		logger:   logger,
	}
	for i := range t.invindex {
		t.invindex[i] = absent
	}
	for i := range t.index {
		t.index[i] = absent
	}
	return t
}

// check is O(1) and has no side effects.
func (t *slotTable) check(row int32) (int32, bool) {
	s := t.index[row]
	if s == absent {
		return absent, false
	}
	return s, true
}

// freeSlot releases slot s unconditionally, clearing both directions of
// the row<->slot map.
func (t *slotTable) freeSlot(s int32) {
	row := t.invindex[s]
	if row != absent {
		t.index[row] = absent
	}
	t.invindex[s] = absent
	t.occupied[s] = false
	t.elems--

	if t.logger != nil {
		t.logger.Debug("slot freed", "slot", s, "row", row)
	}
}

// lruVictim returns the occupied slot with the minimum lru timestamp,
// breaking ties by lowest slot id for determinism, excluding any slot whose
// occupant row is in excluded (the rows a single ensure() call has already
// committed a slot for: evicting one of those would break ensure's
// guarantee that every requested row is cached by the time it returns).
// Returns (absent, false) if no eligible slot exists.
func (t *slotTable) lruVictim(excluded map[int32]bool) (int32, bool) {
	victim := absent
	var victimLRU int64
	for s := 0; s < t.maxElems; s++ {
		if !t.occupied[s] {
			continue
		}
		row := t.invindex[s]
		if excluded != nil && excluded[row] {
			continue
		}
		if victim == absent || t.lru[s] < victimLRU {
			victim = int32(s)
			victimLRU = t.lru[s]
		}
	}
	if victim == absent {
		return absent, false
	}
	return victim, true
}

// allocate claims a free slot, evicting the LRU occupant if the table is
// saturated (excluded rows are never chosen as the victim, see lruVictim).
// It does not commit row/slot bookkeeping for the new occupant; the caller
// commits once it knows which row the slot is for, via commit.
func (t *slotTable) allocate(excluded map[int32]bool) (int32, bool) {
	if t.elems >= t.maxElems {
		victim, ok := t.lruVictim(excluded)
		if !ok {
			return absent, false
		}
		if t.logger != nil {
			t.logger.Debug("evicting slot", "slot", victim, "row", t.invindex[victim])
		}
		t.freeSlot(victim)
	}
	for s := 0; s < t.maxElems; s++ {
		if !t.occupied[s] {
			t.occupied[s] = true
			t.elems++
			return int32(s), true
		}
	}
	return absent, false
}

// commit records that slot s now holds row, stamping its lru.
func (t *slotTable) commit(s, row int32, clock *lruClock) {
	t.index[row] = s
	t.invindex[s] = row
	t.lru[s] = clock.tick()

	if t.logger != nil {
		t.logger.Debug("slot committed", "slot", s, "row", row)
	}
}

// bumpLRU is fetch's sole side effect on a hit.
func (t *slotTable) bumpLRU(s int32, clock *lruClock) {
	t.lru[s] = clock.tick()
}

// resetLRU rebases every occupied slot's lru by the max occupied lru,
// preserving relative order.
func (t *slotTable) resetLRU() {
	var maxLRU int64
	for s := 0; s < t.maxElems; s++ {
		if t.occupied[s] && t.lru[s] > maxLRU {
			maxLRU = t.lru[s]
		}
	}
	if maxLRU == 0 {
		return
	}
	for s := 0; s < t.maxElems; s++ {
		if t.occupied[s] {
			t.lru[s] -= maxLRU
		}
	}
}

// clear releases every slot, leaving the buffer itself untouched.
func (t *slotTable) clear() {
	for s := range t.occupied {
		t.occupied[s] = false
		t.lru[s] = 0
		t.invindex[s] = absent
	}
	for r := range t.index {
		t.index[r] = absent
	}
	t.elems = 0
}

// evictDownTo frees occupied slots in LRU order until at most limit remain
// occupied. shrink calls this when the new M' falls below the current
// occupant count.
func (t *slotTable) evictDownTo(limit int) {
	for t.elems > limit {
		victim, ok := t.lruVictim(nil)
		if !ok {
			return
		}
		if t.logger != nil {
			t.logger.Debug("shrink eviction", "slot", victim, "row", t.invindex[victim], "limit", limit)
		}
		t.freeSlot(victim)
	}
}
