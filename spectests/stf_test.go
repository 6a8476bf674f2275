package spectests

import (
	"testing"

	"github.com/leanconsensus/node/state"
	"github.com/leanconsensus/node/types"
)

const stfFixtureDir = "testdata/state_transition"

func TestStateTransitionFixtures(t *testing.T) {
	var names []string
	if err := loadYAMLFixtures(stfFixtureDir, func(path string) error {
		names = append(names, path)
		return nil
	}); err != nil {
		t.Fatalf("loadYAMLFixtures: %v", err)
	}
	if len(names) == 0 {
		t.Fatalf("no fixtures found in %s", stfFixtureDir)
	}

	for _, path := range names {
		path := path
		var fx StateTransitionFixture
		if err := readYAML(path, &fx); err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		t.Run(fx.Name, func(t *testing.T) {
			runStateTransitionFixture(t, fx)
		})
	}
}

func runStateTransitionFixture(t *testing.T, fx StateTransitionFixture) {
	t.Helper()

	pubkeys := make([]types.Pubkey, fx.Validators)
	cur, _ := state.Genesis(types.GenesisSpec{GenesisTime: 0, ValidatorPubkeys: pubkeys})

	blockRoots := map[int]types.Root{-1: {}}

	var lastErr error
	for i, bstep := range fx.Blocks {
		// ProcessSlots fills the pending header's state root before the
		// parent check, so the parent root is the hash of the filled header.
		header := cur.LatestBlockHeader
		if header.StateRoot.IsZero() {
			stateRoot, err := cur.HashTreeRoot()
			if err != nil {
				t.Fatalf("hash state: %v", err)
			}
			header.StateRoot = stateRoot
		}
		parentRoot, err := header.HashTreeRoot()
		if err != nil {
			t.Fatalf("hash latest header: %v", err)
		}

		atts := make([]types.SignedAttestation, 0, len(bstep.Attestations))
		for _, a := range bstep.Attestations {
			atts = append(atts, types.SignedAttestation{
				ValidatorID: a.Validator,
				Message: types.AttestationData{
					Slot:   bstep.Slot,
					Head:   types.Checkpoint{Root: blockRoots[a.TargetBlockIndex], Slot: a.TargetSlot},
					Target: types.Checkpoint{Root: blockRoots[a.TargetBlockIndex], Slot: a.TargetSlot},
					Source: types.Checkpoint{Root: blockRoots[a.SourceBlockIndex], Slot: a.SourceSlot},
				},
			})
		}

		unsigned := types.Block{
			Slot:          bstep.Slot,
			ProposerIndex: bstep.Proposer,
			ParentRoot:    parentRoot,
			Body:          types.BlockBody{Attestations: atts},
		}
		draft := &types.SignedBlock{Message: unsigned}

		post, filled, err := state.ApplyTransition(cur, draft, state.TransitionOptions{
			VerifySignatures: false,
			ValidateResult:   false,
		}, nil)
		if err != nil {
			lastErr = err
			break
		}

		blockRoot, err := filled.HashTreeRoot()
		if err != nil {
			t.Fatalf("hash block %d: %v", i, err)
		}
		blockRoots[i] = blockRoot
		cur = post
	}

	if fx.ExpectError {
		if lastErr == nil {
			t.Fatalf("expected an error applying the fixture's blocks, got none")
		}
		return
	}
	if lastErr != nil {
		t.Fatalf("unexpected error applying block: %v", lastErr)
	}

	if fx.Expect.Slot != nil && cur.Slot != *fx.Expect.Slot {
		t.Errorf("slot = %d, want %d", cur.Slot, *fx.Expect.Slot)
	}
	if fx.Expect.LatestJustifiedSlot != nil && cur.LatestJustified.Slot != *fx.Expect.LatestJustifiedSlot {
		t.Errorf("latest_justified.slot = %d, want %d", cur.LatestJustified.Slot, *fx.Expect.LatestJustifiedSlot)
	}
	if fx.Expect.LatestFinalizedSlot != nil && cur.LatestFinalized.Slot != *fx.Expect.LatestFinalizedSlot {
		t.Errorf("latest_finalized.slot = %d, want %d", cur.LatestFinalized.Slot, *fx.Expect.LatestFinalizedSlot)
	}
	if fx.Expect.HistoricalBlockHashesCount != nil && len(cur.HistoricalBlockHashes) != *fx.Expect.HistoricalBlockHashesCount {
		t.Errorf("len(historical_block_hashes) = %d, want %d", len(cur.HistoricalBlockHashes), *fx.Expect.HistoricalBlockHashesCount)
	}
}
