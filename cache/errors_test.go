package cache

import (
	"errors"
	"strings"
	"testing"
)

func TestComputeErrorUnwraps(t *testing.T) {
	inner := errors.New("kernel blew up")
	err := &ComputeError{Row: 1, Col: 2, Err: inner}

	if !errors.Is(err, inner) {
		t.Errorf("errors.Is(err, inner) = false, want true")
	}
	if msg := err.Error(); msg == "" {
		t.Errorf("Error() = empty string")
	}
}

func TestErrorMessagesMentionTheirCause(t *testing.T) {
	cases := []struct {
		err     error
		mention string
	}{
		{&ConfigError{Reason: "N must be positive"}, "N must be positive"},
		{&CacheFullError{Requested: 3}, "3 uncached row(s)"},
		{&UsageError{Reason: "numShrink exceeds the current active column count"}, "numShrink exceeds the current active column count"},
	}
	for _, tc := range cases {
		if tc.err.Error() == "" {
			t.Errorf("%T.Error() = empty string", tc.err)
		}
		if !strings.Contains(tc.err.Error(), tc.mention) {
			t.Errorf("%T.Error() = %q, want it to mention %q", tc.err, tc.err.Error(), tc.mention)
		}
	}
}
