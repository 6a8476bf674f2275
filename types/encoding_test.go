package types

import "testing"

func TestCheckpointRoundTrip(t *testing.T) {
	var root Root
	root[3] = 0x42
	c := Checkpoint{Root: root, Slot: 17}

	data, err := c.MarshalSSZ()
	if err != nil {
		t.Fatalf("MarshalSSZ: %v", err)
	}

	var got Checkpoint
	if err := got.UnmarshalSSZ(data); err != nil {
		t.Fatalf("UnmarshalSSZ: %v", err)
	}
	if got != c {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, c)
	}
}

func TestBlockRoundTrip(t *testing.T) {
	block := Block{
		Slot:          9,
		ProposerIndex: 2,
		ParentRoot:    Root{1, 2, 3},
		StateRoot:     Root{4, 5, 6},
		Body: BlockBody{
			Attestations: []SignedAttestation{
				{
					ValidatorID: 1,
					Message: AttestationData{
						Slot:   8,
						Head:   Checkpoint{Root: Root{7}, Slot: 7},
						Target: Checkpoint{Root: Root{8}, Slot: 8},
						Source: Checkpoint{Root: Root{0}, Slot: 0},
					},
				},
			},
		},
	}

	data, err := block.MarshalSSZ()
	if err != nil {
		t.Fatalf("MarshalSSZ: %v", err)
	}

	var got Block
	if err := got.UnmarshalSSZ(data); err != nil {
		t.Fatalf("UnmarshalSSZ: %v", err)
	}
	if got.Slot != block.Slot || got.ProposerIndex != block.ProposerIndex {
		t.Fatalf("round trip mismatch on scalar fields")
	}
	if len(got.Body.Attestations) != 1 {
		t.Fatalf("expected 1 attestation after round trip, got %d", len(got.Body.Attestations))
	}
	if got.Body.Attestations[0].ValidatorID != 1 {
		t.Fatalf("attestation validator id mismatch after round trip")
	}
}

func TestStateRoundTripAndHashDeterministic(t *testing.T) {
	s := State{
		Config: Config{NumValidators: 3, GenesisTime: 100},
		Slot:   2,
		LatestBlockHeader: BlockHeader{
			Slot: 1,
		},
		LatestJustified:       Checkpoint{Slot: 1},
		LatestFinalized:       Checkpoint{Slot: 0},
		HistoricalBlockHashes: []Root{{1}, {2}},
		JustifiedSlots:        []byte{0b11},
	}

	data, err := s.MarshalSSZ()
	if err != nil {
		t.Fatalf("MarshalSSZ: %v", err)
	}

	var got State
	if err := got.UnmarshalSSZ(data); err != nil {
		t.Fatalf("UnmarshalSSZ: %v", err)
	}
	if got.Slot != s.Slot || got.Config.NumValidators != s.Config.NumValidators {
		t.Fatalf("round trip mismatch on scalar fields")
	}
	if len(got.HistoricalBlockHashes) != 2 {
		t.Fatalf("expected 2 historical hashes, got %d", len(got.HistoricalBlockHashes))
	}

	root1, err := s.HashTreeRoot()
	if err != nil {
		t.Fatalf("HashTreeRoot: %v", err)
	}
	root2, err := got.HashTreeRoot()
	if err != nil {
		t.Fatalf("HashTreeRoot: %v", err)
	}
	if root1 != root2 {
		t.Fatalf("tree-hash root not stable across round trip: %x != %x", root1, root2)
	}
}

// TestStateHashTreeRootSensitiveToNonByteAlignedJustifiedSlots is a
// regression test for the bitlist length bug: JustifiedSlots' true bit
// count is len(HistoricalBlockHashes), which the packed byte array
// alone cannot recover once rounded up to a byte boundary. Two states
// differing only in that true length (but with identical underlying
// bytes) must hash to different roots.
func TestStateHashTreeRootSensitiveToNonByteAlignedJustifiedSlots(t *testing.T) {
	base := State{
		Config:                Config{NumValidators: 1, GenesisTime: 1},
		HistoricalBlockHashes: make([]Root, 3),
		JustifiedSlots:        []byte{0b00000111},
	}
	extended := base
	extended.HistoricalBlockHashes = make([]Root, 8)
	extended.JustifiedSlots = []byte{0b00000111}

	rootBase, err := base.HashTreeRoot()
	if err != nil {
		t.Fatalf("HashTreeRoot: %v", err)
	}
	rootExtended, err := extended.HashTreeRoot()
	if err != nil {
		t.Fatalf("HashTreeRoot: %v", err)
	}
	if rootBase == rootExtended {
		t.Fatalf("states with different historical_block_hashes length must not hash identically")
	}
}

func TestSignedBlockRoundTrip(t *testing.T) {
	var sig Signature
	sig[0] = 0x9
	signed := SignedBlock{
		Message: Block{
			Slot:       4,
			ParentRoot: Root{1},
			StateRoot:  Root{2},
		},
		Signature: sig,
	}

	data, err := signed.MarshalSSZ()
	if err != nil {
		t.Fatalf("MarshalSSZ: %v", err)
	}
	var got SignedBlock
	if err := got.UnmarshalSSZ(data); err != nil {
		t.Fatalf("UnmarshalSSZ: %v", err)
	}
	if got.Message.Slot != signed.Message.Slot || got.Signature != signed.Signature {
		t.Fatalf("signed block round trip mismatch")
	}
}
