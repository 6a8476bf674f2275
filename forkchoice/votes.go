package forkchoice

import (
	"fmt"

	"github.com/leanconsensus/node/state"
	"github.com/leanconsensus/node/types"
)

// ValidateAttestation checks a gossiped attestation's structural
// validity against the DAG before OnAttestation records it. Grounded on
// geanlabs-gean/forkchoice/votes.go's ValidateAttestation.
func (s *Store) ValidateAttestation(signed *types.SignedAttestation, currentSlot types.Slot) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validateAttestationLocked(signed, currentSlot)
}

func (s *Store) validateAttestationLocked(signed *types.SignedAttestation, currentSlot types.Slot) error {
	vote := signed.Message

	target, ok := s.blocks[vote.Target.Root]
	if !ok {
		return fmt.Errorf("%w: target %x", ErrTargetNotFound, vote.Target.Root[:8])
	}
	if target.Slot != vote.Target.Slot {
		return fmt.Errorf("%w: target block slot %d != checkpoint slot %d", ErrSlotMismatch, target.Slot, vote.Target.Slot)
	}

	var sourceSlot types.Slot
	if vote.Source.Root.IsZero() {
		if vote.Source.Slot != 0 {
			return fmt.Errorf("%w: genesis source must have slot 0, got %d", ErrSlotMismatch, vote.Source.Slot)
		}
	} else {
		source, ok := s.blocks[vote.Source.Root]
		if !ok {
			return fmt.Errorf("%w: source %x", ErrSourceNotFound, vote.Source.Root[:8])
		}
		sourceSlot = source.Slot
		if sourceSlot != vote.Source.Slot {
			return fmt.Errorf("%w: source block slot %d != checkpoint slot %d", ErrSlotMismatch, sourceSlot, vote.Source.Slot)
		}
	}

	if vote.Source.Slot > vote.Target.Slot {
		return fmt.Errorf("%w: source slot %d > target slot %d", ErrSlotMismatch, vote.Source.Slot, vote.Target.Slot)
	}
	if vote.Slot > currentSlot+1 {
		return fmt.Errorf("%w: vote slot %d too far ahead (current %d)", ErrFutureVote, vote.Slot, currentSlot)
	}
	return nil
}

// OnAttestation records a gossiped attestation's vote, per spec.md
// §4.4's on_attestation operation: replace the validator's current vote
// only if target.slot strictly increases, then recompute head.
func (s *Store) OnAttestation(signed *types.SignedAttestation, currentSlot types.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateAttestationLocked(signed, currentSlot); err != nil {
		return err
	}
	if signed.ValidatorID >= uint64(len(s.latestKnownVotes)) {
		return ErrValidatorOutOfRange
	}
	s.recordVoteLocked(*signed, false)
	s.recordPoolLocked(*signed)
	s.updateHeadLocked()
	return nil
}

// recordPoolLocked keeps the single most recent unincluded attestation per
// validator, so a proposer's duty can offer real, already-signed votes for
// block inclusion rather than the teacher's approach of synthesizing
// unsigned Attestation values straight from latestKnownVotes (not possible
// here since our BlockBody carries types.SignedAttestation, which requires
// an actual per-validator signature).
func (s *Store) recordPoolLocked(signed types.SignedAttestation) {
	existing, ok := s.pool[signed.ValidatorID]
	if !ok || existing.Message.Target.Slot < signed.Message.Target.Slot {
		s.pool[signed.ValidatorID] = signed
	}
}

// PendingAttestations returns a snapshot of attestations not yet included
// in any block, for proposer duty inclusion (spec.md §4.3's BlockBody).
func (s *Store) PendingAttestations() []types.SignedAttestation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.SignedAttestation, 0, len(s.pool))
	for _, signed := range s.pool {
		out = append(out, signed)
	}
	return out
}

// recordVoteLocked updates latestKnownVotes (for votes carried inside a
// block, per on_block) or latestNewVotes (for gossiped votes, which take
// effect at the next interval-1 tick, or at an interval-0 tick that has a
// proposal) — mirrors
// geanlabs-gean/forkchoice/votes.go's processAttestationLocked.
func (s *Store) recordVoteLocked(signed types.SignedAttestation, fromBlock bool) {
	idx := signed.ValidatorID
	target := signed.Message.Target

	if fromBlock {
		known := s.latestKnownVotes[idx]
		if known.Root.IsZero() || known.Slot < target.Slot {
			s.latestKnownVotes[idx] = target
		}
		newVote := s.latestNewVotes[idx]
		if !newVote.Root.IsZero() && newVote.Slot <= target.Slot {
			s.latestNewVotes[idx] = types.Checkpoint{}
		}
		return
	}

	newVote := s.latestNewVotes[idx]
	if newVote.Root.IsZero() || newVote.Slot < target.Slot {
		s.latestNewVotes[idx] = target
	}
}

// GetVoteTarget computes this node's attestation target for the current
// slot: walk back from head toward SafeTarget, then further back until
// landing on a justifiable slot relative to latestFinalized. Grounded on
// geanlabs-gean/forkchoice/votes.go's getVoteTargetLocked.
func (s *Store) GetVoteTarget() (types.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	targetRoot := s.head
	for i := 0; i < 3; i++ {
		targetBlock, ok := s.blocks[targetRoot]
		safeBlock, safeOK := s.blocks[s.safeTarget]
		if !ok || !safeOK || targetBlock.Slot <= safeBlock.Slot {
			break
		}
		targetRoot = targetBlock.ParentRoot
	}

	for {
		block, ok := s.blocks[targetRoot]
		if !ok {
			return types.Checkpoint{}, fmt.Errorf("%w: %x", ErrTargetNotFound, targetRoot[:8])
		}
		ok2, err := state.IsJustifiableSlot(s.latestFinalized.Slot, block.Slot)
		if err != nil {
			return types.Checkpoint{}, err
		}
		if ok2 {
			return types.Checkpoint{Root: targetRoot, Slot: block.Slot}, nil
		}
		targetRoot = block.ParentRoot
	}
}
