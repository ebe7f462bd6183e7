package cache

import "testing"

func TestBufferGetSetRoundTrip(t *testing.T) {
	b := newBuffer(12)
	const a int32 = 4

	b.set(0, 0, a, 1.5)
	b.set(0, 3, a, 2.5)
	b.set(2, 1, a, 3.5)

	if got := b.get(0, 0, a); got != 1.5 {
		t.Errorf("get(0,0) = %v, want 1.5", got)
	}
	if got := b.get(0, 3, a); got != 2.5 {
		t.Errorf("get(0,3) = %v, want 2.5", got)
	}
	if got := b.get(2, 1, a); got != 3.5 {
		t.Errorf("get(2,1) = %v, want 3.5", got)
	}
}

func TestCellOffsetIsContiguousPerSlot(t *testing.T) {
	const a int32 = 5
	for slot := int32(0); slot < 3; slot++ {
		for col := int32(0); col < a; col++ {
			want := int(slot)*int(a) + int(col)
			if got := cellOffset(slot, col, a); got != want {
				t.Errorf("cellOffset(%d,%d,%d) = %d, want %d", slot, col, a, got, want)
			}
		}
	}
}

func TestBufferSize(t *testing.T) {
	b := newBuffer(37)
	if got := b.size(); got != 37 {
		t.Errorf("size() = %d, want 37", got)
	}
}
