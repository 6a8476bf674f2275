// Package store defines the durable block/state persistence contract
// from spec.md §4.4's closing paragraph: "Any backing store is
// acceptable so long as writes are durable before put_* returns."
// Fork choice (package forkchoice) owns only lightweight ProtoBlock
// values in memory; this package owns the full SSZ-encoded bytes.
package store

import "github.com/leanconsensus/node/types"

// Store is the Store contract of spec.md §4.4: has/put_block/get_block/
// put_state/get_state, plus LastUsedEpochStore's get/put for PQSig
// statefulness (§9) so a single backing store answers both needs.
type Store interface {
	Has(root types.Root) bool
	PutBlock(root types.Root, block *types.SignedBlock) error
	GetBlock(root types.Root) (*types.SignedBlock, bool)
	PutState(root types.Root, state *types.State) error
	GetState(root types.Root) (*types.State, bool)

	LastUsedEpoch(validatorID uint64) (epoch uint32, ok bool)
	PutLastUsedEpoch(validatorID uint64, epoch uint32) error

	Close() error
}

// EpochAdapter makes any Store satisfy xmss.LastUsedEpochStore without
// this package importing xmss (store is a lower-level dependency that
// xmss's registry callers wire together, not the other way around).
type EpochAdapter struct {
	Store Store
}

func (a EpochAdapter) Get(validatorID uint64) (uint32, bool) {
	return a.Store.LastUsedEpoch(validatorID)
}

func (a EpochAdapter) Put(validatorID uint64, epoch uint32) error {
	return a.Store.PutLastUsedEpoch(validatorID, epoch)
}
