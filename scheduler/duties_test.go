package scheduler

import (
	"testing"

	"github.com/leanconsensus/node/forkchoice"
	"github.com/leanconsensus/node/state"
	"github.com/leanconsensus/node/store/memory"
	"github.com/leanconsensus/node/types"
	"github.com/leanconsensus/node/xmss"
)

type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(uint64, types.Root, uint64, types.Signature) bool { return true }

func TestIsProposerRoundRobin(t *testing.T) {
	for slot := types.Slot(0); slot < 6; slot++ {
		want := uint64(slot) % 3
		for idx := uint64(0); idx < 3; idx++ {
			got := IsProposer(idx, slot, 3)
			if got != (idx == want) {
				t.Errorf("slot=%d idx=%d: IsProposer = %v, want %v", slot, idx, got, idx == want)
			}
		}
	}
}

func TestKeypairSignerEnforcesEpochMonotonicity(t *testing.T) {
	kp, _, err := xmss.KeypairGenerate([32]byte{9}, 0, 16)
	if err != nil {
		t.Fatalf("KeypairGenerate: %v", err)
	}
	signer := &KeypairSigner{
		Keypairs: map[uint64]*xmss.Keypair{0: kp},
		Store:    xmss.NewMemoryEpochStore(),
	}

	var root types.Root
	if _, err := signer.Sign(0, root, 2); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := signer.Sign(0, root, 2); err == nil {
		t.Fatalf("expected error re-signing the same epoch")
	}
	if _, err := signer.Sign(0, root, 3); err != nil {
		t.Fatalf("Sign at a later epoch should succeed: %v", err)
	}
}

func TestKeypairSignerRejectsUnknownValidator(t *testing.T) {
	signer := &KeypairSigner{Keypairs: map[uint64]*xmss.Keypair{}, Store: xmss.NewMemoryEpochStore()}
	var root types.Root
	if _, err := signer.Sign(0, root, 0); err == nil {
		t.Fatalf("expected error for a validator with no held keypair")
	}
}

func TestBuildAttestationTargetsHead(t *testing.T) {
	pubkeys := make([]types.Pubkey, 2)
	genesisState, genesisBlock := state.Genesis(types.GenesisSpec{GenesisTime: 0, ValidatorPubkeys: pubkeys})
	backing := memory.New()

	fc, err := forkchoice.New(backing, acceptAllVerifier{}, genesisState, genesisBlock)
	if err != nil {
		t.Fatalf("forkchoice.New: %v", err)
	}

	signer := &KeypairSigner{Keypairs: map[uint64]*xmss.Keypair{}, Store: xmss.NewMemoryEpochStore()}
	kp, _, err := xmss.KeypairGenerate([32]byte{1}, 0, 16)
	if err != nil {
		t.Fatalf("KeypairGenerate: %v", err)
	}
	signer.Keypairs[0] = kp

	signed, err := BuildAttestation(1, 0, fc, signer)
	if err != nil {
		t.Fatalf("BuildAttestation: %v", err)
	}
	if signed.Message.Head != fc.HeadCheckpoint() {
		t.Fatalf("attestation head checkpoint mismatch")
	}
	if signed.Message.Source != fc.LatestJustified() {
		t.Fatalf("attestation source checkpoint mismatch")
	}
}
