package state

import (
	"testing"

	"github.com/leanconsensus/node/types"
)

// Table from spec.md §8's boundary scenarios: (finalized, candidate,
// expected). Grounded on geanlabs-gean/forkchoice's equivalent
// is_justifiable_slot table tests.
func TestIsJustifiableSlot(t *testing.T) {
	cases := []struct {
		finalized, candidate types.Slot
		want                  bool
		wantErr               bool
	}{
		{finalized: 10, candidate: 10, want: true},
		{finalized: 0, candidate: 9, want: true},
		{finalized: 0, candidate: 7, want: false},
		{finalized: 0, candidate: 0, want: true},
		{finalized: 0, candidate: 5, want: true},
		{finalized: 0, candidate: 6, want: true}, // delta=6 is not <=5 and not a perfect square, check 4*6+1=25=5^2 odd
		{finalized: 5, candidate: 4, wantErr: true},
	}

	for _, c := range cases {
		got, err := IsJustifiableSlot(c.finalized, c.candidate)
		if c.wantErr {
			if err == nil {
				t.Errorf("IsJustifiableSlot(%d,%d): expected error, got none", c.finalized, c.candidate)
			}
			continue
		}
		if err != nil {
			t.Errorf("IsJustifiableSlot(%d,%d): unexpected error %v", c.finalized, c.candidate, err)
			continue
		}
		if got != c.want {
			t.Errorf("IsJustifiableSlot(%d,%d) = %v, want %v", c.finalized, c.candidate, got, c.want)
		}
	}
}

// TestIsJustifiableSlotDeltaSweep exhaustively checks delta in [0,100]
// against a direct re-derivation of the predicate, catching any
// off-by-one in the integer-sqrt implementation.
func TestIsJustifiableSlotDeltaSweep(t *testing.T) {
	for delta := uint64(0); delta <= 100; delta++ {
		got, err := IsJustifiableSlot(0, types.Slot(delta))
		if err != nil {
			t.Fatalf("delta=%d: unexpected error %v", delta, err)
		}
		want := delta <= 5 || isPerfectSquareRef(delta) || isOddPerfectSquareRef(4*delta+1)
		if got != want {
			t.Errorf("delta=%d: got %v, want %v", delta, got, want)
		}
	}
}

func isPerfectSquareRef(n uint64) bool {
	for r := uint64(0); r*r <= n; r++ {
		if r*r == n {
			return true
		}
	}
	return false
}

func isOddPerfectSquareRef(n uint64) bool {
	for r := uint64(0); r*r <= n; r++ {
		if r*r == n {
			return r%2 == 1
		}
	}
	return false
}
