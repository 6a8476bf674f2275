package p2p

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/leanconsensus/node/internal/logging"
	"github.com/leanconsensus/node/types"
)

// bootnodeRetryInterval bounds how often Service retries bootnodes it
// failed to dial at startup. Grounded on geanlabs-gean/networking/
// service.go's bootnodeRetryInterval.
const bootnodeRetryInterval = 30 * time.Second

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Host      host.Host
	Handlers  *MessageHandlers
	Bootnodes []peer.AddrInfo
	Logger    *slog.Logger
}

// Service owns the gossipsub router, this node's two subscriptions, and
// bootnode connectivity. Grounded on geanlabs-gean/networking/service.go's
// Service.
type Service struct {
	host    host.Host
	pubsub  *pubsub.PubSub
	handler *MessageHandlers
	logger  *slog.Logger

	blockTopic       *pubsub.Topic
	blockSub         *pubsub.Subscription
	attestationTopic *pubsub.Topic
	attestationSub   *pubsub.Subscription

	mu              sync.Mutex
	failedBootnodes []peer.AddrInfo

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService builds a Service over h, joining and subscribing to both
// gossip topics and dialing cfg.Bootnodes (tracking any that fail so they
// can be retried in the background).
func NewService(ctx context.Context, cfg ServiceConfig) (*Service, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.New("info")
	}

	ps, err := NewGossipSub(ctx, cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("build gossipsub router: %w", err)
	}

	blockTopic, err := ps.Join(TopicBlocks)
	if err != nil {
		return nil, fmt.Errorf("join block topic: %w", err)
	}
	blockSub, err := blockTopic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("subscribe block topic: %w", err)
	}

	attestationTopic, err := ps.Join(TopicAttestations)
	if err != nil {
		return nil, fmt.Errorf("join attestation topic: %w", err)
	}
	attestationSub, err := attestationTopic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("subscribe attestation topic: %w", err)
	}

	svcCtx, cancel := context.WithCancel(ctx)
	s := &Service{
		host:             cfg.Host,
		pubsub:           ps,
		handler:          cfg.Handlers,
		logger:           log,
		blockTopic:       blockTopic,
		blockSub:         blockSub,
		attestationTopic: attestationTopic,
		attestationSub:   attestationSub,
		ctx:              svcCtx,
		cancel:           cancel,
	}

	for _, ai := range cfg.Bootnodes {
		if err := cfg.Host.Connect(svcCtx, ai); err != nil {
			log.Warn("failed to dial bootnode", "peer", ai.ID, "err", err)
			s.failedBootnodes = append(s.failedBootnodes, ai)
		}
	}

	return s, nil
}

// Start spawns the subscription read loops and, if any bootnodes failed
// to dial at construction, a background retry loop.
func (s *Service) Start() {
	s.wg.Add(2)
	go s.processBlocks()
	go s.processAttestations()

	s.mu.Lock()
	needsRetry := len(s.failedBootnodes) > 0
	s.mu.Unlock()
	if needsRetry {
		s.wg.Add(1)
		go s.retryBootnodes()
	}
}

// Stop cancels every background loop and blocks until they exit.
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

// PublishBlock SSZ-encodes, compresses, and publishes signed on the
// block topic.
func (s *Service) PublishBlock(ctx context.Context, signed *types.SignedBlock) error {
	data, err := signed.MarshalSSZ()
	if err != nil {
		return fmt.Errorf("marshal block: %w", err)
	}
	return s.blockTopic.Publish(ctx, CompressMessage(data))
}

// PublishAttestation SSZ-encodes, compresses, and publishes signed on
// the attestation topic.
func (s *Service) PublishAttestation(ctx context.Context, signed *types.SignedAttestation) error {
	data, err := signed.MarshalSSZ()
	if err != nil {
		return fmt.Errorf("marshal attestation: %w", err)
	}
	return s.attestationTopic.Publish(ctx, CompressMessage(data))
}

// PeerCount reports the number of peers currently connected on this
// node's host.
func (s *Service) PeerCount() int {
	return len(s.host.Network().Peers())
}

// ConnectedPeerIDs returns the peer IDs currently connected on this
// node's host, for callers (package node's sync backfill) that need to
// address a specific peer rather than just count them.
func (s *Service) ConnectedPeerIDs() []peer.ID {
	return s.host.Network().Peers()
}

func (s *Service) retryBootnodes() {
	defer s.wg.Done()
	ticker := time.NewTicker(bootnodeRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			remaining := s.failedBootnodes[:0]
			for _, ai := range s.failedBootnodes {
				if err := s.host.Connect(s.ctx, ai); err != nil {
					remaining = append(remaining, ai)
					continue
				}
				s.logger.Info("connected to bootnode on retry", "peer", ai.ID)
			}
			s.failedBootnodes = remaining
			done := len(s.failedBootnodes) == 0
			s.mu.Unlock()
			if done {
				return
			}
		}
	}
}

func (s *Service) processBlocks() {
	defer s.wg.Done()
	for {
		msg, err := s.blockSub.Next(s.ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == s.host.ID() {
			continue
		}
		if s.handler == nil {
			continue
		}
		if err := s.handler.HandleBlockMessage(s.ctx, msg.Data); err != nil {
			s.logger.Warn("dropped gossip block", "from", msg.ReceivedFrom, "err", err)
		}
	}
}

func (s *Service) processAttestations() {
	defer s.wg.Done()
	for {
		msg, err := s.attestationSub.Next(s.ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == s.host.ID() {
			continue
		}
		if s.handler == nil {
			continue
		}
		if err := s.handler.HandleAttestationMessage(s.ctx, msg.Data); err != nil {
			s.logger.Warn("dropped gossip attestation", "from", msg.ReceivedFrom, "err", err)
		}
	}
}
