package cache

// absent is the sentinel value stored in inv wherever a logical row has no
// corresponding active column position.
const absent int32 = -1

// activeSet is the bijection between the logical row space [0, N) and the
// currently active column positions [0, A), A <= N. fwd maps an active
// column position to its logical row; inv is fwd's inverse, indexed by
// logical row and holding absent for rows that are not currently active
// columns.
type activeSet struct {
	fwd []int32 // len A: fwd[a] -> logical row
	inv []int32 // len N: inv[row] -> a, or absent
}

// newActiveSet builds the identity bijection on [0, n): fwd and inv both
// start as the identity map on [0, n).
func newActiveSet(n int32) *activeSet {
	fwd := make([]int32, n)
	inv := make([]int32, n)
	for i := int32(0); i < n; i++ {
		fwd[i] = i
		inv[i] = i
	}
	return &activeSet{fwd: fwd, inv: inv}
}

func (s *activeSet) size() int32 { return int32(len(s.fwd)) }

// active reports whether logical row r is currently an active column and,
// if so, its column position.
func (s *activeSet) active(r int32) (int32, bool) {
	a := s.inv[r]
	if a == absent {
		return absent, false
	}
	return a, true
}

// shrinkTo rebuilds fwd/inv after compaction in place: keep holds, for every
// logical row currently an active column, whether it survives. Rows that
// are not currently active columns stay inv==absent regardless of keep.
// The returned slice is the new fwd, in increasing order of surviving
// column position; this is also the order the in-place compaction pass in
// rowcache.go must walk each slot's cells in.
func (s *activeSet) shrinkTo(keep func(row int32) bool) []int32 {
	newFwd := make([]int32, 0, len(s.fwd))
	for i := range s.inv {
		s.inv[i] = absent
	}
	for _, row := range s.fwd {
		if keep(row) {
			newFwd = append(newFwd, row)
		}
	}
	for a, row := range newFwd {
		s.inv[row] = int32(a)
	}
	s.fwd = newFwd
	return newFwd
}
