package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/leanconsensus/node/forkchoice"
	"github.com/leanconsensus/node/internal/logging"
	"github.com/leanconsensus/node/params"
	"github.com/leanconsensus/node/store"
	"github.com/leanconsensus/node/types"
)

// Publisher broadcasts locally-produced blocks and attestations to the
// network. The concrete implementation lives in package p2p, kept as an
// interface here so scheduler doesn't import the transport layer.
type Publisher interface {
	PublishBlock(ctx context.Context, signed *types.SignedBlock) error
	PublishAttestation(ctx context.Context, signed *types.SignedAttestation) error
}

// Executor drives the slot clock and executes proposer/attester duties for
// every locally-held validator index, per spec.md §4.1/§5. Grounded on
// geanlabs-gean/node/validator.go's ValidatorDuties — Run's tick loop is new
// (the teacher's version is driven externally by a node-level select loop;
// that loop's shape is folded in here since this repo has no separate
// top-level ticker).
type Executor struct {
	Clock         *Clock
	FC            *forkchoice.Store
	Backing       store.Store
	Signer        Signer
	Publisher     Publisher
	Indices       []uint64
	NumValidators uint64
	Log           *slog.Logger
}

// NewExecutor builds an Executor; log defaults to logging.New("info") if nil.
func NewExecutor(clock *Clock, fc *forkchoice.Store, backing store.Store, signer Signer, publisher Publisher, indices []uint64, numValidators uint64, log *slog.Logger) *Executor {
	if log == nil {
		log = logging.New("info")
	}
	return &Executor{
		Clock:         clock,
		FC:            fc,
		Backing:       backing,
		Signer:        signer,
		Publisher:     publisher,
		Indices:       indices,
		NumValidators: numValidators,
		Log:           log,
	}
}

// HasProposal reports whether any locally-held validator index proposes at
// slot, per geanlabs-gean/node/validator.go's HasProposal.
func (e *Executor) HasProposal(slot types.Slot) bool {
	for _, idx := range e.Indices {
		if IsProposer(idx, slot, e.NumValidators) {
			return true
		}
	}
	return false
}

// Run blocks until ctx is cancelled, executing duties at every interval
// boundary. Sleep durations come from Clock.NextTick so the loop wakes
// exactly on boundaries instead of polling.
func (e *Executor) Run(ctx context.Context) {
	for {
		wait := e.Clock.NextTick()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		slot := e.Clock.CurrentSlot()
		interval := e.Clock.CurrentInterval()
		e.FC.OnTick(interval, e.HasProposal(slot))
		e.OnInterval(ctx, slot, interval)
	}
}

// OnInterval executes validator duties for the current interval, per
// geanlabs-gean/node/validator.go's OnInterval.
func (e *Executor) OnInterval(ctx context.Context, slot types.Slot, interval params.Interval) {
	switch interval {
	case params.IntervalPropose:
		e.tryPropose(ctx, slot)
	case params.IntervalAttest:
		e.tryAttest(ctx, slot)
	}
}

func (e *Executor) tryPropose(ctx context.Context, slot types.Slot) {
	for _, idx := range e.Indices {
		if !IsProposer(idx, slot, e.NumValidators) {
			continue
		}

		parentRoot := e.FC.Head()
		parentState, ok := e.Backing.GetState(parentRoot)
		if !ok {
			e.Log.Error("block proposal failed: missing parent state", "slot", slot, "proposer", idx)
			continue
		}

		signedBlock, _, err := BuildBlock(parentState, parentRoot, slot, idx, e.FC, e.Signer)
		if err != nil {
			e.Log.Error("block proposal failed", "slot", slot, "proposer", idx, "err", err)
			continue
		}
		if err := e.FC.OnBlock(signedBlock, true); err != nil {
			e.Log.Error("block proposal rejected by own fork choice", "slot", slot, "proposer", idx, "err", err)
			continue
		}

		blockRoot, _ := signedBlock.Message.HashTreeRoot()
		if err := e.Publisher.PublishBlock(ctx, signedBlock); err != nil {
			e.Log.Error("failed to publish block", "slot", slot, "proposer", idx, "err", err)
			continue
		}
		e.Log.Info("proposed block", "slot", slot, "proposer", idx, "block_root", logging.ShortHash(blockRoot))
	}
}

func (e *Executor) tryAttest(ctx context.Context, slot types.Slot) {
	for _, idx := range e.Indices {
		if IsProposer(idx, slot, e.NumValidators) {
			continue
		}

		signed, err := BuildAttestation(slot, idx, e.FC, e.Signer)
		if err != nil {
			e.Log.Error("attestation failed", "slot", slot, "validator", idx, "err", err)
			continue
		}
		if err := e.FC.OnAttestation(signed, slot); err != nil {
			e.Log.Error("attestation rejected by own fork choice", "slot", slot, "validator", idx, "err", err)
			continue
		}
		if err := e.Publisher.PublishAttestation(ctx, signed); err != nil {
			e.Log.Error("failed to publish attestation", "slot", slot, "validator", idx, "err", err)
			continue
		}
		e.Log.Debug("published attestation", "slot", slot, "validator", idx, "target_slot", signed.Message.Target.Slot)
	}
}
