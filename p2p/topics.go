// Package p2p implements the gossip transport for the lean consensus
// protocol (spec.md §6): a libp2p host, two gossipsub topics carrying
// SSZ-snappy-encoded blocks and votes, and ENR-based bootnode discovery.
// Grounded on geanlabs-gean/p2p/{config,topics,host,gossipsub,pubsub,
// handlers,service}.go and geanlabs-gean/network/p2p/enr.go.
package p2p

// Gossip topic names and stable integer IDs, per spec.md §6 ("block=0,
// vote=1 used by the bridge to the transport").
const (
	TopicBlocks       = "/leanconsensus/devnet0/block/ssz_snappy"
	TopicAttestations = "/leanconsensus/devnet0/vote/ssz_snappy"
	TopicEncoding     = "ssz_snappy"

	BlockTopicID       = 0
	AttestationTopicID = 1
)
