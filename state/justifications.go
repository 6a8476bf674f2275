package state

import (
	"sort"

	"github.com/leanconsensus/node/types"
)

// Justifications is the in-memory map<Root, Bitset> view of the votes
// accumulating toward justification for each candidate target root. It is
// never the wire representation: State stores it flattened (sorted roots +
// concatenated bitlist) per spec.md §9's design note, and this file is the
// only place that translates between the two.
type Justifications map[types.Root][]bool

// GetJustifications materializes the flat (JustificationsRoots,
// JustificationsValidators) pair in s into a map<Root, Bitset> for easy
// per-validator bit manipulation.
func GetJustifications(s *types.State) Justifications {
	out := make(Justifications, len(s.JustificationsRoots))
	n := int(s.Config.NumValidators)
	for i, root := range s.JustificationsRoots {
		bits := make([]bool, n)
		base := i * n
		for v := 0; v < n; v++ {
			bits[v] = bitAt(s.JustificationsValidators, base+v)
		}
		out[root] = bits
	}
	return out
}

// SetJustifications rebuilds s's flat JustificationsRoots/
// JustificationsValidators fields from j, sorting roots ascending by byte
// value per spec.md §3's State invariant.
func SetJustifications(s *types.State, j Justifications) *types.State {
	roots := make([]types.Root, 0, len(j))
	for r := range j {
		roots = append(roots, r)
	}
	sort.Slice(roots, func(a, b int) bool {
		return roots[a].Compare(roots[b]) < 0
	})

	n := int(s.Config.NumValidators)
	flat := newBitlist(len(roots) * n)
	for i, r := range roots {
		bits := j[r]
		base := i * n
		for v := 0; v < n && v < len(bits); v++ {
			if bits[v] {
				flat = setBitAt(flat, base+v, true)
			}
		}
	}

	s.JustificationsRoots = roots
	s.JustificationsValidators = flat
	return s
}

// CountVotes counts the set bits in a validator bitset.
func CountVotes(bits []bool) int {
	n := 0
	for _, b := range bits {
		if b {
			n++
		}
	}
	return n
}
