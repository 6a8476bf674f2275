package xmss

import "github.com/leanconsensus/node/types"

// LastUsedEpochStore persists the highest epoch each validator has
// signed at, enforcing spec.md §9's stateful-signature rule: "the node
// MUST persist the last used epoch per validator and refuse to sign at
// an epoch <= last used." The concrete, durable implementation lives in
// package store (a small key prefix alongside blocks/states); an
// in-memory variant here backs tests.
type LastUsedEpochStore interface {
	Get(validatorID uint64) (epoch uint32, ok bool)
	Put(validatorID uint64, epoch uint32) error
}

// MemoryEpochStore is a LastUsedEpochStore for tests and single-process
// spectests runs; it holds no durability guarantee across restarts.
type MemoryEpochStore struct {
	last map[uint64]uint32
}

// NewMemoryEpochStore returns an empty MemoryEpochStore.
func NewMemoryEpochStore() *MemoryEpochStore {
	return &MemoryEpochStore{last: make(map[uint64]uint32)}
}

func (s *MemoryEpochStore) Get(validatorID uint64) (uint32, bool) {
	epoch, ok := s.last[validatorID]
	return epoch, ok
}

func (s *MemoryEpochStore) Put(validatorID uint64, epoch uint32) error {
	s.last[validatorID] = epoch
	return nil
}

// SignGuarded wraps Keypair.Sign with the stateful last-used-epoch check
// from spec.md §9: it refuses to sign at an epoch at or before the
// store's recorded last-used epoch for validatorID, and advances the
// store only after a successful signature.
func SignGuarded(
	kp *Keypair,
	store LastUsedEpochStore,
	validatorID uint64,
	messageRoot types.Root,
	epoch uint32,
	rho [rhoLen]byte,
) (types.Signature, error) {
	if last, ok := store.Get(validatorID); ok && epoch <= last {
		return types.Signature{}, ErrEpochReused
	}
	sig, err := kp.Sign(messageRoot, epoch, rho)
	if err != nil {
		return types.Signature{}, err
	}
	if err := store.Put(validatorID, epoch); err != nil {
		return types.Signature{}, err
	}
	return sig, nil
}
