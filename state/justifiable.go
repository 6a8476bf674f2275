package state

import (
	"errors"

	"github.com/leanconsensus/node/types"
)

// ErrInvalidJustifiableSlot is returned when candidate < finalized, which
// the predicate cannot evaluate (spec.md §8 boundary behavior).
var ErrInvalidJustifiableSlot = errors.New("invalid justifiable slot")

// isqrt returns the integer square root of n (floor(sqrt(n))) for n >= 0,
// computed without floating point per design note (b) in spec.md §9 —
// the reference's pow(x, 0.5) comparison is replaced with an exact integer
// search to avoid FP drift at the boundary.
func isqrt(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

func isPerfectSquare(n uint64) bool {
	r := isqrt(n)
	return r*r == n
}

// IsJustifiableSlot reports whether candidate is a valid justification
// target given the current finalized slot, per spec.md §4.3's "justifiable
// slot" predicate:
//
//	Δ = candidate - finalized
//	justifiable iff Δ <= 5, OR Δ is a perfect square,
//	              OR (4Δ+1) is an odd perfect square (the δ+0.25 rule,
//	                 restated as an integer check: √(Δ+0.25) has
//	                 fractional part exactly 0.5 iff 4Δ+1 is an odd
//	                 perfect square).
//
// Returns ErrInvalidJustifiableSlot when candidate < finalized.
func IsJustifiableSlot(finalized, candidate types.Slot) (bool, error) {
	if candidate < finalized {
		return false, ErrInvalidJustifiableSlot
	}
	delta := uint64(candidate - finalized)
	if delta <= 5 {
		return true, nil
	}
	if isPerfectSquare(delta) {
		return true, nil
	}
	v := 4*delta + 1
	r := isqrt(v)
	return r*r == v && r%2 == 1, nil
}
