package state

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/leanconsensus/node/params"
	"github.com/leanconsensus/node/types"
)

// SignatureVerifier is the STF's view of the PQSig contract (§4.2): verify
// a message root against validatorIndex's pubkey at the given epoch. The
// concrete implementation (package xmss) resolves validatorIndex to a
// pubkey via a registry populated at genesis.
type SignatureVerifier interface {
	Verify(validatorIndex uint64, messageRoot types.Root, epoch uint64, sig types.Signature) bool
}

// TransitionOptions mirrors apply_transition's opts in spec.md §4.3.
type TransitionOptions struct {
	// VerifySignatures, when true, checks the proposer signature and every
	// attestation signature before any state mutation.
	VerifySignatures bool
	// ValidateResult, when true, requires the computed post-state root to
	// equal block.StateRoot. When false, the computed root is written back
	// into the returned block instead (used by the local proposer, which
	// doesn't yet know its own post-state root when it signs).
	ValidateResult bool
}

// ProcessSlot backfills the pending block header's state root with the
// tree-hash of s, if it is still zero — this "closes" the previous slot's
// header now that the pre-image (the prior state) is fully known.
func ProcessSlot(s *types.State) (*types.State, error) {
	if !s.LatestBlockHeader.StateRoot.IsZero() {
		return s, nil
	}
	root, err := s.HashTreeRoot()
	if err != nil {
		return nil, fmt.Errorf("hash state: %w", err)
	}
	next := Copy(s)
	next.LatestBlockHeader.StateRoot = root
	return next, nil
}

// ProcessSlots advances s through empty slots up to (but not including)
// targetSlot, calling ProcessSlot once per slot increment.
func ProcessSlots(s *types.State, targetSlot types.Slot) (*types.State, error) {
	if targetSlot <= s.Slot {
		return nil, fmt.Errorf("%w: target slot %d <= state slot %d", ErrInvalidPreState, targetSlot, s.Slot)
	}
	cur := s
	for cur.Slot < targetSlot {
		next, err := ProcessSlot(cur)
		if err != nil {
			return nil, err
		}
		cur = Copy(next)
		cur.Slot++
	}
	return cur, nil
}

// ProcessBlockHeader validates and installs a new block header, per
// spec.md §4.3 step 3.
func ProcessBlockHeader(s *types.State, block *types.Block) (*types.State, error) {
	if s.Slot != block.Slot {
		return nil, fmt.Errorf("%w: state slot %d != block slot %d", ErrInvalidLatestBlockHeader, s.Slot, block.Slot)
	}
	if s.LatestBlockHeader.Slot >= block.Slot {
		return nil, fmt.Errorf("%w: latest header slot %d >= block slot %d", ErrInvalidLatestBlockHeader, s.LatestBlockHeader.Slot, block.Slot)
	}
	expectedProposer := uint64(block.Slot) % s.Config.NumValidators
	if block.ProposerIndex != expectedProposer {
		return nil, fmt.Errorf("%w: proposer %d for slot %d, expected %d", ErrInvalidProposer, block.ProposerIndex, block.Slot, expectedProposer)
	}
	parentRoot, err := s.LatestBlockHeader.HashTreeRoot()
	if err != nil {
		return nil, fmt.Errorf("hash latest header: %w", err)
	}
	if parentRoot != block.ParentRoot {
		return nil, fmt.Errorf("%w: computed %x, block says %x", ErrInvalidParentRoot, parentRoot[:8], block.ParentRoot[:8])
	}

	next := Copy(s)

	parentSlot := int(s.LatestBlockHeader.Slot)
	next.HistoricalBlockHashes = append(next.HistoricalBlockHashes, block.ParentRoot)
	next.JustifiedSlots = appendBit(next.JustifiedSlots, parentSlot, s.LatestBlockHeader.Slot == 0)

	for slot := parentSlot + 1; slot < int(block.Slot); slot++ {
		next.HistoricalBlockHashes = append(next.HistoricalBlockHashes, types.Root{})
		next.JustifiedSlots = appendBit(next.JustifiedSlots, slot, false)
	}

	bodyRoot, err := block.Body.HashTreeRoot()
	if err != nil {
		return nil, fmt.Errorf("hash body: %w", err)
	}
	next.LatestBlockHeader = types.BlockHeader{
		Slot:          block.Slot,
		ProposerIndex: block.ProposerIndex,
		ParentRoot:    block.ParentRoot,
		StateRoot:     types.Root{},
		BodyRoot:      bodyRoot,
	}

	return next, nil
}

// ProcessAttestations applies the 3SF-mini justification/finalization rule
// from spec.md §4.3 to each attestation, in order. Attestations that fail
// a structural validity check (wrong chaining source, non-justifiable
// target, target out of slot range) are dropped silently — no error, no
// state change for that attestation — matching spec.md §8's boundary case.
// Only a validator index out of range is a hard error.
func ProcessAttestations(s *types.State, blockSlot types.Slot, attestations []types.SignedAttestation) (*types.State, error) {
	next := Copy(s)
	justifications := GetJustifications(next)

	for _, signed := range attestations {
		if signed.ValidatorID >= next.Config.NumValidators {
			return nil, fmt.Errorf("%w: validator %d >= %d validators", ErrInvalidValidatorID, signed.ValidatorID, next.Config.NumValidators)
		}
		data := signed.Message

		if data.Source != next.LatestJustified {
			continue
		}
		if data.Target.Slot > blockSlot || data.Source.Slot >= data.Target.Slot {
			continue
		}
		justifiable, err := IsJustifiableSlot(next.LatestFinalized.Slot, data.Target.Slot)
		if err != nil || !justifiable {
			continue
		}

		bits, ok := justifications[data.Target.Root]
		if !ok {
			bits = make([]bool, next.Config.NumValidators)
		}
		bits[signed.ValidatorID] = true
		justifications[data.Target.Root] = bits

		threshold := (2*int(next.Config.NumValidators) + 2) / 3
		if CountVotes(bits) < threshold {
			continue
		}

		next.LatestJustified = data.Target
		next.JustifiedSlots = setBitAt(next.JustifiedSlots, int(data.Target.Slot), true)
		delete(justifications, data.Target.Root)

		if predecessorJustifiable(next.LatestFinalized.Slot, data.Target.Slot) == data.Source.Slot {
			next.LatestFinalized = data.Source
		}
	}

	SetJustifications(next, justifications)
	return next, nil
}

// predecessorJustifiable returns the largest slot strictly less than
// target that is justifiable relative to finalized. It always terminates:
// finalized itself has Δ=0, which is always justifiable.
func predecessorJustifiable(finalized, target types.Slot) types.Slot {
	for candidate := target - 1; ; candidate-- {
		ok, _ := IsJustifiableSlot(finalized, candidate)
		if ok {
			return candidate
		}
		if candidate == finalized {
			return candidate
		}
	}
}

// ApplyTransition is the top-level STF entry point: apply_transition from
// spec.md §4.3. On success it returns the post-state and, when
// opts.ValidateResult is false, a copy of signedBlock.Message with
// StateRoot filled in (the shape a local proposer needs before it can sign
// its own block).
func ApplyTransition(
	preState *types.State,
	signedBlock *types.SignedBlock,
	opts TransitionOptions,
	verifier SignatureVerifier,
) (*types.State, *types.Block, error) {
	block := signedBlock.Message

	if opts.VerifySignatures {
		blockRoot, err := block.HashTreeRoot()
		if err != nil {
			return nil, nil, fmt.Errorf("hash block: %w", err)
		}
		if !verifier.Verify(block.ProposerIndex, blockRoot, uint64(block.Slot), signedBlock.Signature) {
			return nil, nil, fmt.Errorf("%w: proposer signature", ErrInvalidBlockSignatures)
		}
		if err := verifyAttestationSignatures(block.Body.Attestations, verifier); err != nil {
			return nil, nil, err
		}
	}

	post, err := ProcessSlots(preState, block.Slot)
	if err != nil {
		return nil, nil, err
	}
	post, err = ProcessBlockHeader(post, &block)
	if err != nil {
		return nil, nil, err
	}
	post, err = ProcessAttestations(post, block.Slot, block.Body.Attestations)
	if err != nil {
		return nil, nil, err
	}

	if opts.ValidateResult {
		computed, err := post.HashTreeRoot()
		if err != nil {
			return nil, nil, fmt.Errorf("hash post-state: %w", err)
		}
		if computed != block.StateRoot {
			return nil, nil, fmt.Errorf("%w: computed %x, block says %x", ErrInvalidPostState, computed[:8], block.StateRoot[:8])
		}
		return post, &block, nil
	}

	computed, err := post.HashTreeRoot()
	if err != nil {
		return nil, nil, fmt.Errorf("hash post-state: %w", err)
	}
	filled := block
	filled.StateRoot = computed
	return post, &filled, nil
}

// verifyAttestationSignatures checks every attestation's signature on a
// worker pool bounded to params.SignatureVerificationPoolSize, per spec.md
// §5's "Heavy CPU work (... signature verification) MAY run on a bounded
// worker pool; results are returned through the same queues." The fan-out
// and join both happen inside this single call, so ApplyTransition as a
// whole still runs to completion or failure synchronously — no suspension
// point crosses its boundary.
func verifyAttestationSignatures(atts []types.SignedAttestation, verifier SignatureVerifier) error {
	g := new(errgroup.Group)
	g.SetLimit(params.SignatureVerificationPoolSize)
	for i := range atts {
		att := atts[i]
		g.Go(func() error {
			dataRoot, err := att.Message.HashTreeRoot()
			if err != nil {
				return fmt.Errorf("hash attestation data: %w", err)
			}
			if !verifier.Verify(att.ValidatorID, dataRoot, uint64(att.Message.Slot), att.Signature) {
				return fmt.Errorf("%w: attestation by validator %d", ErrInvalidBlockSignatures, att.ValidatorID)
			}
			return nil
		})
	}
	return g.Wait()
}
