// Package forkchoice implements the 3SF-mini fork-choice engine from
// spec.md §4.4: an in-memory DAG of ProtoBlock nodes, LMD-GHOST-style
// head selection, and justified/finalized checkpoint tracking mirrored
// from the STF's post-states. Grounded on geanlabs-gean/forkchoice, with
// one structural change from the teacher: the teacher's Store holds
// full types.Block/types.State values directly in its maps (it has no
// separate persistence layer); here FC holds only lightweight
// types.ProtoBlock nodes and delegates block/state bytes to an injected
// store.Store, matching spec.md §3's explicit ownership split ("FC holds
// blocks by root; the Store owns block/state bytes; FC holds only
// lightweight ProtoBlock values").
package forkchoice

import (
	"fmt"
	"sync"

	"github.com/leanconsensus/node/params"
	"github.com/leanconsensus/node/state"
	"github.com/leanconsensus/node/store"
	"github.com/leanconsensus/node/types"
)

// Store is the fork-choice engine: DAG + checkpoints + head, safe for
// concurrent readers (spec.md §5's shared-resource policy).
type Store struct {
	mu sync.RWMutex

	backing  store.Store
	verifier state.SignatureVerifier

	blocks   map[types.Root]*types.ProtoBlock
	children map[types.Root][]types.Root

	latestKnownVotes []types.Checkpoint // indexed by ValidatorIndex
	latestNewVotes   []types.Checkpoint // indexed by ValidatorIndex

	// pool holds each validator's most recently seen attestation that
	// has not yet been included in any block on the canonical chain,
	// keyed by ValidatorID. A proposer's duty drains it via
	// PendingAttestations; OnBlock prunes entries as they're included.
	pool map[uint64]types.SignedAttestation

	anchorRoot      types.Root
	head            types.Root
	safeTarget      types.Root
	latestJustified types.Checkpoint
	latestFinalized types.Checkpoint
}

// walkRootLocked resolves a checkpoint root for DAG descent: the zero
// root is genesis's sentinel value (types.Checkpoint{} per spec.md §3),
// never itself a key in s.blocks, so it must resolve to the actual
// anchor block getHead can walk children from.
func (s *Store) walkRootLocked(root types.Root) types.Root {
	if root.IsZero() {
		return s.anchorRoot
	}
	return root
}

// New builds a Store anchored at genesisState/genesisBlock, per
// geanlabs-gean/forkchoice/store.go's NewStore shape. genesisState and
// genesisBlock are also written into backing so they're retrievable like
// any other block/state.
func New(backing store.Store, verifier state.SignatureVerifier, genesisState *types.State, genesisBlock *types.Block) (*Store, error) {
	stateRoot, err := genesisState.HashTreeRoot()
	if err != nil {
		return nil, fmt.Errorf("hash genesis state: %w", err)
	}
	if genesisBlock.StateRoot != stateRoot {
		return nil, fmt.Errorf("genesis block state root mismatch")
	}
	anchorRoot, err := genesisBlock.HashTreeRoot()
	if err != nil {
		return nil, fmt.Errorf("hash genesis block: %w", err)
	}

	s := &Store{
		backing:          backing,
		verifier:         verifier,
		blocks:           map[types.Root]*types.ProtoBlock{},
		children:         map[types.Root][]types.Root{},
		latestKnownVotes: make([]types.Checkpoint, genesisState.Config.NumValidators),
		latestNewVotes:   make([]types.Checkpoint, genesisState.Config.NumValidators),
		pool:             map[uint64]types.SignedAttestation{},
		anchorRoot:       anchorRoot,
		head:             anchorRoot,
		safeTarget:       anchorRoot,
		latestJustified:  genesisState.LatestJustified,
		latestFinalized:  genesisState.LatestFinalized,
	}
	s.blocks[anchorRoot] = &types.ProtoBlock{
		Slot:       genesisBlock.Slot,
		BlockRoot:  anchorRoot,
		ParentRoot: genesisBlock.ParentRoot,
		StateRoot:  stateRoot,
		Timeliness: true,
	}

	signed := &types.SignedBlock{Message: *genesisBlock}
	if err := backing.PutBlock(anchorRoot, signed); err != nil {
		return nil, fmt.Errorf("store genesis block: %w", err)
	}
	if err := backing.PutState(anchorRoot, genesisState); err != nil {
		return nil, fmt.Errorf("store genesis state: %w", err)
	}

	return s, nil
}

func (s *Store) Head() types.Root {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}

func (s *Store) LatestJustified() types.Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestJustified
}

func (s *Store) LatestFinalized() types.Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestFinalized
}

func (s *Store) SafeTarget() types.Root {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.safeTarget
}

func (s *Store) HasBlock(root types.Root) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocks[root]
	return ok
}

// HeadCheckpoint returns the head root paired with its own slot, for
// AttestationData.Head (spec.md §4.1's "head" vote field tracks the actual
// block voted for, not the casting validator's current slot).
func (s *Store) HeadCheckpoint() types.Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	block, ok := s.blocks[s.head]
	if !ok {
		return types.Checkpoint{Root: s.head}
	}
	return types.Checkpoint{Root: s.head, Slot: block.Slot}
}

// OnBlock applies signedBlock to its parent's post-state, validates the
// result, and inserts the ProtoBlock into the DAG, per spec.md §4.4's
// on_block operation.
func (s *Store) OnBlock(signedBlock *types.SignedBlock, timeliness bool) error {
	block := signedBlock.Message
	blockRoot, err := block.HashTreeRoot()
	if err != nil {
		return fmt.Errorf("hash block: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blocks[blockRoot]; exists {
		return nil
	}
	if _, exists := s.blocks[block.ParentRoot]; !exists {
		return fmt.Errorf("%w: %x", ErrParentNotFound, block.ParentRoot[:8])
	}

	parentState, ok := s.backing.GetState(block.ParentRoot)
	if !ok {
		return fmt.Errorf("%w: parent state for %x", ErrParentNotFound, block.ParentRoot[:8])
	}

	postState, _, err := state.ApplyTransition(parentState, signedBlock, state.TransitionOptions{
		VerifySignatures: true,
		ValidateResult:   true,
	}, s.verifier)
	if err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}

	if err := s.backing.PutBlock(blockRoot, signedBlock); err != nil {
		return fmt.Errorf("store block: %w", err)
	}
	if err := s.backing.PutState(blockRoot, postState); err != nil {
		return fmt.Errorf("store state: %w", err)
	}

	s.blocks[blockRoot] = &types.ProtoBlock{
		Slot:       block.Slot,
		BlockRoot:  blockRoot,
		ParentRoot: block.ParentRoot,
		StateRoot:  postState.LatestBlockHeader.StateRoot,
		Timeliness: timeliness,
	}
	s.children[block.ParentRoot] = append(s.children[block.ParentRoot], blockRoot)

	for _, signedAtt := range block.Body.Attestations {
		s.recordVoteLocked(signedAtt, true)
		delete(s.pool, signedAtt.ValidatorID)
	}

	s.updateCheckpointsLocked(postState)
	s.updateHeadLocked()
	return nil
}

// updateCheckpointsLocked advances latestJustified/latestFinalized
// monotonically by slot, per spec.md §4.4 ("FC never independently
// decides finality; it mirrors what STF wrote into post-states").
func (s *Store) updateCheckpointsLocked(postState *types.State) {
	if postState.LatestJustified.Slot > s.latestJustified.Slot {
		if _, ok := s.blocks[postState.LatestJustified.Root]; ok || postState.LatestJustified.Root.IsZero() {
			s.latestJustified = postState.LatestJustified
		}
	}
	if postState.LatestFinalized.Slot > s.latestFinalized.Slot {
		if _, ok := s.blocks[postState.LatestFinalized.Root]; ok || postState.LatestFinalized.Root.IsZero() {
			s.latestFinalized = postState.LatestFinalized
		}
	}
}

func (s *Store) updateHeadLocked() {
	s.head = getHead(s.blocks, s.children, s.walkRootLocked(s.latestJustified.Root), s.latestKnownVotes, 0)
}

func (s *Store) updateSafeTargetLocked() {
	n := len(s.latestKnownVotes)
	minScore := (n*2 + 2) / 3
	s.safeTarget = getHead(s.blocks, s.children, s.walkRootLocked(s.latestJustified.Root), s.latestNewVotes, minScore)
}

// OnTick advances store time by one interval, per spec.md §4.4's
// on_tick operation. currentInterval follows params.IntervalsPerSlot's
// three-interval slot (propose/attest/observe); interval 2 recomputes
// the safe-target bound used by interval-1 attester duties.
func (s *Store) OnTick(currentInterval params.Interval, hasProposal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch currentInterval {
	case params.IntervalPropose:
		if hasProposal {
			s.acceptNewVotesLocked()
		}
	case params.IntervalObserve:
		s.updateSafeTargetLocked()
	default:
		s.acceptNewVotesLocked()
	}
}

func (s *Store) acceptNewVotesLocked() {
	for i, vote := range s.latestNewVotes {
		if !vote.Root.IsZero() {
			s.latestKnownVotes[i] = vote
			s.latestNewVotes[i] = types.Checkpoint{}
		}
	}
	s.updateHeadLocked()
}
