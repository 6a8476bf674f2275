package forkchoice

import "github.com/leanconsensus/node/types"

// getHead runs the head-selection algorithm from spec.md §4.4: starting
// at root, repeatedly descend to the child with the greatest vote
// weight (ties broken by greater block root, lexicographically on
// bytes), stopping at a node with no eligible children. minScore filters
// out children whose weight hasn't reached it, used by SafeTarget's
// ⌈2N/3⌉ threshold walk. Grounded on
// geanlabs-gean/forkchoice/lmdghost.go's GetHead.
func getHead(
	blocks map[types.Root]*types.ProtoBlock,
	children map[types.Root][]types.Root,
	root types.Root,
	latestVotes []types.Checkpoint,
	minScore int,
) types.Root {
	rootBlock, ok := blocks[root]
	if !ok {
		return root
	}

	weights := make(map[types.Root]int)
	for _, vote := range latestVotes {
		if vote.Root.IsZero() {
			continue
		}
		node, ok := blocks[vote.Root]
		if !ok {
			continue
		}
		for node.Slot > rootBlock.Slot {
			weights[node.BlockRoot]++
			parent, ok := blocks[node.ParentRoot]
			if !ok {
				break
			}
			node = parent
		}
	}

	current := root
	for {
		var best types.Root
		bestWeight := -1
		found := false
		for _, child := range children[current] {
			if weights[child] < minScore {
				continue
			}
			w := weights[child]
			if !found || w > bestWeight || (w == bestWeight && compareRoots(child, best) > 0) {
				best = child
				bestWeight = w
				found = true
			}
		}
		if !found {
			return current
		}
		current = best
	}
}

func compareRoots(a, b types.Root) int {
	return a.Compare(b)
}
