// Package memory is an in-memory store.Store for tests and the
// spectests harness. Grounded on geanlabs-gean/storage/memory's
// map+RWMutex shape, generalized to the SignedBlock/LastUsedEpoch
// surface store.Store adds.
package memory

import (
	"sync"

	"github.com/leanconsensus/node/types"
)

type Store struct {
	mu      sync.RWMutex
	blocks  map[types.Root]*types.SignedBlock
	states  map[types.Root]*types.State
	epochs  map[uint64]uint32
}

func New() *Store {
	return &Store{
		blocks: make(map[types.Root]*types.SignedBlock),
		states: make(map[types.Root]*types.State),
		epochs: make(map[uint64]uint32),
	}
}

func (m *Store) Has(root types.Root) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blocks[root]
	return ok
}

func (m *Store) PutBlock(root types.Root, block *types.SignedBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[root] = block
	return nil
}

func (m *Store) GetBlock(root types.Root) (*types.SignedBlock, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blocks[root]
	return b, ok
}

func (m *Store) PutState(root types.Root, state *types.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[root] = state
	return nil
}

func (m *Store) GetState(root types.Root) (*types.State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[root]
	return s, ok
}

func (m *Store) LastUsedEpoch(validatorID uint64) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.epochs[validatorID]
	return e, ok
}

func (m *Store) PutLastUsedEpoch(validatorID uint64, epoch uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epochs[validatorID] = epoch
	return nil
}

func (m *Store) Close() error { return nil }
