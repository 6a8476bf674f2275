package forkchoice

import (
	"testing"

	"github.com/leanconsensus/node/types"
)

func root(b byte) types.Root {
	var r types.Root
	r[31] = b
	return r
}

// TestGetHeadTieBreak matches spec.md §8's fork-choice tie-break
// scenario: two sibling blocks at the same slot with equal vote weight;
// head must walk to the lexicographically greater root.
func TestGetHeadTieBreak(t *testing.T) {
	rootA := root(0x01)
	rootB := root(0x02)
	parent := root(0x00)

	blocks := map[types.Root]*types.ProtoBlock{
		parent: {Slot: 0, BlockRoot: parent},
		rootA:  {Slot: 1, BlockRoot: rootA, ParentRoot: parent},
		rootB:  {Slot: 1, BlockRoot: rootB, ParentRoot: parent},
	}
	children := map[types.Root][]types.Root{
		parent: {rootA, rootB},
	}

	votes := []types.Checkpoint{
		{Root: rootA, Slot: 1},
		{Root: rootB, Slot: 1},
	}

	head := getHead(blocks, children, parent, votes, 0)
	if head != rootB {
		t.Fatalf("getHead tie-break = %x, want %x (greater root)", head, rootB)
	}
}

// TestGetHeadPrefersHeavierChild checks that a strictly heavier child
// wins regardless of root ordering.
func TestGetHeadPrefersHeavierChild(t *testing.T) {
	rootA := root(0x02)
	rootB := root(0x01)
	parent := root(0x00)

	blocks := map[types.Root]*types.ProtoBlock{
		parent: {Slot: 0, BlockRoot: parent},
		rootA:  {Slot: 1, BlockRoot: rootA, ParentRoot: parent},
		rootB:  {Slot: 1, BlockRoot: rootB, ParentRoot: parent},
	}
	children := map[types.Root][]types.Root{
		parent: {rootA, rootB},
	}

	// Two votes for rootB, one for rootA: rootB should win despite
	// rootA's lexicographically greater value.
	votes := []types.Checkpoint{
		{Root: rootA, Slot: 1},
		{Root: rootB, Slot: 1},
		{Root: rootB, Slot: 1},
	}

	head := getHead(blocks, children, parent, votes, 0)
	if head != rootB {
		t.Fatalf("getHead = %x, want %x (heavier child)", head, rootB)
	}
}
