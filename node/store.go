package node

import (
	"github.com/leanconsensus/node/store"
	"github.com/leanconsensus/node/store/memory"
	"github.com/leanconsensus/node/store/pebble"
)

func memoryStore() store.Store {
	return memory.New()
}

func pebbleOpen(dir string) (store.Store, error) {
	return pebble.Open(dir)
}
