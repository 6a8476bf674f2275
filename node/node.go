// Package node wires together every other package into a runnable
// consensus client: the fork-choice store, the slot scheduler, the
// gossip transport, and the request/response backfill protocol.
// Grounded on geanlabs-gean/node/node.go's Node/Config/New/Start/Stop
// shape, adapted to delegate duty execution to package scheduler's
// Executor (already a complete slot-ticker + duties implementation)
// rather than reimplementing the teacher's own slotTicker/onTick loop.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/leanconsensus/node/forkchoice"
	"github.com/leanconsensus/node/internal/logging"
	"github.com/leanconsensus/node/internal/metrics"
	"github.com/leanconsensus/node/p2p"
	"github.com/leanconsensus/node/reqresp"
	"github.com/leanconsensus/node/scheduler"
	"github.com/leanconsensus/node/state"
	"github.com/leanconsensus/node/store"
	"github.com/leanconsensus/node/types"
	"github.com/leanconsensus/node/xmss"
)

// Config parametrizes a Node. GenesisSpec, Keypairs and Indices are
// resolved by the caller (package config plus cmd/leancon's CLI flags)
// before New is called; Node itself only wires already-resolved
// material together.
type Config struct {
	GenesisSpec types.GenesisSpec

	// Indices holds the validator indices this node runs duties for;
	// Keypairs must have an entry for each one.
	Indices  []uint64
	Keypairs map[uint64]*xmss.Keypair

	DataDir     string // empty uses an in-memory store
	ListenAddrs []string
	Bootnodes   []string // ENR strings

	MetricsPort int
	Logger      *slog.Logger
}

// Node is the top-level consensus client process.
type Node struct {
	cfg Config
	log *slog.Logger

	backing store.Store
	fc      *forkchoice.Store
	clock   *scheduler.Clock
	exec    *scheduler.Executor

	host          p2phost
	p2pService    *p2p.Service
	streamHandler *reqresp.StreamHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// p2phost narrows host.Host to what Node itself calls directly, keeping
// this file's import list free of the concrete libp2p host type beyond
// construction.
type p2phost interface {
	Close() error
}

// New builds every subsystem and wires them together but does not start
// any background goroutine; call Start for that.
func New(ctx context.Context, cfg Config) (*Node, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.New("info")
	}

	genesisState, genesisBlock := state.Genesis(cfg.GenesisSpec)
	numValidators := uint64(len(cfg.GenesisSpec.ValidatorPubkeys))

	backing, err := openStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	verifier := xmss.NewRegistry(cfg.GenesisSpec.ValidatorPubkeys)
	fc, err := forkchoice.New(backing, verifier, genesisState, genesisBlock)
	if err != nil {
		backing.Close()
		return nil, fmt.Errorf("build fork choice store: %w", err)
	}

	clock := scheduler.NewClock(cfg.GenesisSpec.GenesisTime)

	signer := &scheduler.KeypairSigner{
		Keypairs: cfg.Keypairs,
		Store:    store.EpochAdapter{Store: backing},
	}

	h, err := p2p.NewHost(ctx, p2p.HostConfig{ListenAddrs: cfg.ListenAddrs})
	if err != nil {
		backing.Close()
		return nil, fmt.Errorf("build p2p host: %w", err)
	}

	nodeCtx, cancel := context.WithCancel(ctx)
	n := &Node{
		cfg:     cfg,
		log:     log,
		backing: backing,
		fc:      fc,
		clock:   clock,
		host:    h,
		ctx:     nodeCtx,
		cancel:  cancel,
	}

	handlers := &p2p.MessageHandlers{
		OnBlock:       n.handleGossipBlock,
		OnAttestation: n.handleGossipAttestation,
		Logger:        log,
	}

	svc, err := p2p.NewService(nodeCtx, p2p.ServiceConfig{
		Host:      h,
		Handlers:  handlers,
		Bootnodes: p2p.ParseENRBootnodes(cfg.Bootnodes),
		Logger:    log,
	})
	if err != nil {
		h.Close()
		backing.Close()
		return nil, fmt.Errorf("build p2p service: %w", err)
	}
	n.p2pService = svc

	reqrespHandler := reqresp.NewHandler(&blockReader{fc: fc, backing: backing})
	n.streamHandler = reqresp.NewStreamHandler(h, reqrespHandler)
	n.streamHandler.RegisterProtocols()

	n.exec = scheduler.NewExecutor(clock, fc, backing, signer, svc, cfg.Indices, numValidators, log)

	metrics.ValidatorsCount.Set(float64(numValidators))
	return n, nil
}

func openStore(dataDir string) (store.Store, error) {
	if dataDir == "" {
		return memoryStore(), nil
	}
	return pebbleOpen(dataDir)
}

// Start launches every background loop: the slot scheduler, the gossip
// service, and (if configured) the metrics exporter.
func (n *Node) Start() {
	n.p2pService.Start()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.exec.Run(n.ctx)
	}()

	if n.cfg.MetricsPort != 0 {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			if err := metrics.Serve(n.ctx, n.cfg.MetricsPort, n.log); err != nil {
				n.log.Error("metrics server error", "err", err)
			}
		}()
	}
}

// Stop cancels every background loop, stops the p2p service, waits for
// the loops to exit, then closes the host and the backing store.
func (n *Node) Stop() error {
	n.cancel()
	n.p2pService.Stop()
	n.wg.Wait()

	if err := n.host.Close(); err != nil {
		n.log.Warn("error closing p2p host", "err", err)
	}
	return n.backing.Close()
}

// Head returns the fork-choice head's block root.
func (n *Node) Head() types.Root { return n.fc.Head() }

// CurrentSlot returns the slot implied by the wall clock.
func (n *Node) CurrentSlot() types.Slot { return n.clock.CurrentSlot() }

// PeerCount reports the node's currently connected peer count.
func (n *Node) PeerCount() int { return n.p2pService.PeerCount() }

func (n *Node) handleGossipBlock(ctx context.Context, block *types.SignedBlock) error {
	if err := n.fc.OnBlock(block, false); err != nil {
		if n.backfillParent(ctx, block) {
			return n.fc.OnBlock(block, false)
		}
		return err
	}
	return nil
}

func (n *Node) handleGossipAttestation(ctx context.Context, signed *types.SignedAttestation) error {
	return n.fc.OnAttestation(signed, n.clock.CurrentSlot())
}

// backfillParent asks every connected peer for block.ParentRoot (and,
// recursively, each of its own missing ancestors in turn) when gossip
// delivers a block before its parent, per SPEC_FULL.md §5's sync
// supplement. It returns whether the parent chain was recovered far
// enough for the original OnBlock call to be retried successfully.
func (n *Node) backfillParent(ctx context.Context, block *types.SignedBlock) bool {
	missing := block.Message.ParentRoot
	if n.fc.HasBlock(missing) {
		return true
	}

	for _, pid := range n.connectedPeers() {
		blocks, err := n.streamHandler.RequestBlocksByRoot(ctx, pid, []types.Root{missing})
		if err != nil || len(blocks) == 0 {
			continue
		}
		ancestor := blocks[0]
		if n.fc.OnBlock(ancestor, false) == nil {
			return true
		}
		if n.backfillParent(ctx, ancestor) && n.fc.OnBlock(ancestor, false) == nil {
			return true
		}
	}
	return false
}

func (n *Node) connectedPeers() []peer.ID {
	return n.p2pService.ConnectedPeerIDs()
}

// blockReader adapts forkchoice.Store + store.Store to reqresp.BlockReader.
type blockReader struct {
	fc      *forkchoice.Store
	backing store.Store
}

func (b *blockReader) Head() types.Root { return b.fc.Head() }

func (b *blockReader) GetBlock(root types.Root) (*types.SignedBlock, bool) {
	return b.backing.GetBlock(root)
}

func (b *blockReader) LatestFinalized() types.Checkpoint { return b.fc.LatestFinalized() }
