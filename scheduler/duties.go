package scheduler

import (
	"crypto/rand"
	"fmt"

	"github.com/leanconsensus/node/forkchoice"
	"github.com/leanconsensus/node/state"
	"github.com/leanconsensus/node/types"
	"github.com/leanconsensus/node/xmss"
)

// IsProposer checks round-robin proposer assignment (slot % num_validators),
// per spec.md §4.1. Grounded on geanlabs-gean/validator/producer.go's
// ValidateProposer.
func IsProposer(validatorIndex uint64, slot types.Slot, numValidators uint64) bool {
	return validatorIndex == uint64(slot)%numValidators
}

// Signer produces a signature over messageRoot at epoch for validatorIndex,
// enforcing the stateful last-used-epoch rule (spec.md §9). The concrete
// implementation wraps an xmss.Keypair per locally-held validator index plus
// a durable xmss.LastUsedEpochStore.
type Signer interface {
	Sign(validatorIndex uint64, messageRoot types.Root, epoch uint32) (types.Signature, error)
}

// KeypairSigner is a Signer backed by one xmss.Keypair per locally-held
// validator index.
type KeypairSigner struct {
	Keypairs map[uint64]*xmss.Keypair
	Store    xmss.LastUsedEpochStore
}

func (s *KeypairSigner) Sign(validatorIndex uint64, messageRoot types.Root, epoch uint32) (types.Signature, error) {
	kp, ok := s.Keypairs[validatorIndex]
	if !ok {
		return types.Signature{}, fmt.Errorf("no keypair held for validator %d", validatorIndex)
	}
	var rho [28]byte
	if _, err := rand.Read(rho[:]); err != nil {
		return types.Signature{}, fmt.Errorf("generate signature randomness: %w", err)
	}
	return xmss.SignGuarded(kp, s.Store, validatorIndex, messageRoot, epoch, rho)
}

// BuildBlock assembles, transitions, and signs a proposal for slot by
// validatorIndex atop parentState, pulling unincluded attestations from fc's
// pool. Grounded on geanlabs-gean/validator/producer.go's BuildBlock, adapted
// to this repo's state.ApplyTransition (run with ValidateResult=false so the
// computed post-state root is written back into the block) and to signed,
// already-gossiped attestations rather than synthesized unsigned ones.
func BuildBlock(
	parentState *types.State,
	parentRoot types.Root,
	slot types.Slot,
	validatorIndex uint64,
	fc *forkchoice.Store,
	signer Signer,
) (*types.SignedBlock, *types.State, error) {
	unsigned := &types.Block{
		Slot:          slot,
		ProposerIndex: validatorIndex,
		ParentRoot:    parentRoot,
		Body:          types.BlockBody{Attestations: fc.PendingAttestations()},
	}
	signedDraft := &types.SignedBlock{Message: *unsigned}

	postState, filled, err := state.ApplyTransition(parentState, signedDraft, state.TransitionOptions{
		VerifySignatures: false,
		ValidateResult:   false,
	}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("draft transition: %w", err)
	}

	blockRoot, err := filled.HashTreeRoot()
	if err != nil {
		return nil, nil, fmt.Errorf("hash block: %w", err)
	}
	sig, err := signer.Sign(validatorIndex, blockRoot, uint32(slot))
	if err != nil {
		return nil, nil, fmt.Errorf("sign block: %w", err)
	}

	return &types.SignedBlock{Message: *filled, Signature: sig}, postState, nil
}

// BuildAttestation produces a signed vote for validatorIndex at slot,
// targeting fc's current GetVoteTarget() with head=fc.Head() and
// source=fc.LatestJustified(). Grounded on
// geanlabs-gean/validator/producer.go's attestation-construction shape
// inside CollectNewAttestations, generalized to produce one validator's own
// signed vote rather than re-wrapping others' checkpoints.
func BuildAttestation(
	slot types.Slot,
	validatorIndex uint64,
	fc *forkchoice.Store,
	signer Signer,
) (*types.SignedAttestation, error) {
	target, err := fc.GetVoteTarget()
	if err != nil {
		return nil, fmt.Errorf("get vote target: %w", err)
	}

	data := types.AttestationData{
		Slot:   slot,
		Head:   fc.HeadCheckpoint(),
		Target: target,
		Source: fc.LatestJustified(),
	}
	dataRoot, err := data.HashTreeRoot()
	if err != nil {
		return nil, fmt.Errorf("hash attestation data: %w", err)
	}
	sig, err := signer.Sign(validatorIndex, dataRoot, uint32(slot))
	if err != nil {
		return nil, fmt.Errorf("sign attestation: %w", err)
	}

	return &types.SignedAttestation{
		ValidatorID: validatorIndex,
		Message:     data,
		Signature:   sig,
	}, nil
}
