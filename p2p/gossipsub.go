package p2p

import (
	"context"
	"time"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	pb "github.com/libp2p/go-libp2p-pubsub/pb"
	"github.com/libp2p/go-libp2p/core/host"

	"github.com/leanconsensus/node/params"
)

// GossipsubParams holds the canonical mesh/heartbeat parameters for the
// lean consensus gossip network. Grounded on
// geanlabs-gean/p2p/gossipsub.go's GossipsubParams/DefaultGossipsubParams.
type GossipsubParams struct {
	D                 int
	DLow              int
	DHigh             int
	DLazy             int
	HeartbeatInterval float64 // seconds
	FanoutTTL         int     // seconds
	MCacheLen         int
	MCacheGossip      int
	SeenTTL           int // seconds
}

// DefaultGossipsubParams mirrors the teacher's devnet defaults; SeenTTL
// scales with params.SecondsPerSlot rather than a hardcoded constant.
func DefaultGossipsubParams() GossipsubParams {
	return GossipsubParams{
		D:                 8,
		DLow:              6,
		DHigh:             12,
		DLazy:             6,
		HeartbeatInterval: 0.7,
		FanoutTTL:         60,
		MCacheLen:         6,
		MCacheGossip:      3,
		SeenTTL:           int(params.SecondsPerSlot) * 32 * 2,
	}
}

// NewGossipSub builds a gossipsub router over h using the lean consensus
// network's mesh parameters, strict-no-sign validation (messages are
// authenticated at the application layer by XMSS signatures, not libp2p's
// own peer-signing), and the domain-separated message-ID function.
// Grounded on geanlabs-gean/p2p/pubsub.go's NewGossipSub.
func NewGossipSub(ctx context.Context, h host.Host) (*pubsub.PubSub, error) {
	p := DefaultGossipsubParams()

	gsParams := pubsub.DefaultGossipSubParams()
	gsParams.D = p.D
	gsParams.Dlo = p.DLow
	gsParams.Dhi = p.DHigh
	gsParams.Dlazy = p.DLazy
	gsParams.HeartbeatInterval = time.Duration(p.HeartbeatInterval * float64(time.Second))
	gsParams.FanoutTTL = time.Duration(p.FanoutTTL) * time.Second
	gsParams.HistoryLength = p.MCacheLen
	gsParams.HistoryGossip = p.MCacheGossip

	opts := []pubsub.Option{
		pubsub.WithMessageIdFn(computePubsubMessageID),
		pubsub.WithGossipSubParams(gsParams),
		pubsub.WithSeenMessagesTTL(time.Duration(p.SeenTTL) * time.Second),
		pubsub.WithMessageSignaturePolicy(pubsub.StrictNoSign),
		pubsub.WithFloodPublish(false),
	}

	return pubsub.NewGossipSub(ctx, h, opts...)
}

func computePubsubMessageID(msg *pb.Message) string {
	decoded, err := DecompressMessage(msg.Data)
	valid := err == nil
	data := msg.Data
	if valid {
		data = decoded
	}
	id := ComputeMessageID([]byte(msg.GetTopic()), data, valid)
	return string(id[:])
}
