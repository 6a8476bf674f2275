// Package state implements the lean consensus state-transition function:
// genesis construction, per-slot maintenance, block-header processing, and
// attestation (justification/finalization) processing. The transition
// functions return new states and leave their inputs unchanged
// (SetJustifications is the exception: it rewrites the state it is
// given) — callers (forkchoice.Store) own all mutation and
// locking, matching the concurrency model in spec.md §5 ("STF itself is
// synchronous and non-suspending").
package state

import (
	"github.com/leanconsensus/node/types"
)

// Genesis builds the zero state and its anchoring block from a GenesisSpec,
// per spec.md §3 Lifecycles ("A State is created at genesis from a
// GenesisSpec{genesis_time, validator_pubkeys[]}").
//
// The anchor block's StateRoot is the tree-hash root of the freshly built
// state; its BodyRoot is the tree-hash root of an empty BlockBody. Both
// checkpoints start at the zero root, slot 0, per spec.md §3's Checkpoint
// invariant.
func Genesis(spec types.GenesisSpec) (*types.State, *types.Block) {
	numValidators := uint64(len(spec.ValidatorPubkeys))

	emptyBody := types.BlockBody{Attestations: []types.SignedAttestation{}}
	bodyRoot, _ := emptyBody.HashTreeRoot()

	header := types.BlockHeader{
		Slot:          0,
		ProposerIndex: 0,
		ParentRoot:    types.Root{},
		StateRoot:     types.Root{},
		BodyRoot:      bodyRoot,
	}

	genesisCheckpoint := types.Checkpoint{Root: types.Root{}, Slot: 0}

	s := &types.State{
		Config: types.Config{
			NumValidators: numValidators,
			GenesisTime:   spec.GenesisTime,
		},
		Slot:                      0,
		LatestBlockHeader:         header,
		LatestJustified:           genesisCheckpoint,
		LatestFinalized:           genesisCheckpoint,
		HistoricalBlockHashes:     []types.Root{},
		JustifiedSlots:            []byte{},
		JustificationsRoots:       []types.Root{},
		JustificationsValidators:  []byte{},
	}

	stateRoot, _ := s.HashTreeRoot()

	anchor := &types.Block{
		Slot:          0,
		ProposerIndex: 0,
		ParentRoot:    types.Root{},
		StateRoot:     stateRoot,
		Body:          emptyBody,
	}

	return s, anchor
}

// Copy returns a deep copy of s, since STF treats states as immutable
// values and every transition step produces a new state.
func Copy(s *types.State) *types.State {
	cp := *s
	cp.HistoricalBlockHashes = append([]types.Root(nil), s.HistoricalBlockHashes...)
	cp.JustifiedSlots = append([]byte(nil), s.JustifiedSlots...)
	cp.JustificationsRoots = append([]types.Root(nil), s.JustificationsRoots...)
	cp.JustificationsValidators = append([]byte(nil), s.JustificationsValidators...)
	return &cp
}
