package cache

import "testing"

func TestFold(t *testing.T) {
	const n int32 = 5
	cases := []struct {
		r    int32
		want int32
	}{
		{0, 0},
		{4, 4}, // r < n: unchanged
		{5, 4}, // r == n: 2n-1-n = n-1
		{6, 3},
		{9, 0}, // r == 2n-1: folds to 0
	}
	for _, tt := range cases {
		if got := fold(tt.r, n); got != tt.want {
			t.Errorf("fold(%d, %d) = %d, want %d", tt.r, n, got, tt.want)
		}
	}
}

func TestFoldStaysInRangeOnTheDoubledRange(t *testing.T) {
	const n int32 = 7
	for r := int32(0); r < 2*n; r++ {
		folded := fold(r, n)
		if folded < 0 || folded >= n {
			t.Fatalf("fold(%d, %d) = %d, out of [0, %d)", r, n, folded, n)
		}
	}
}
