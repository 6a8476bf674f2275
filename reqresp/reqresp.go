// Package reqresp implements the request/response sync protocols
// supplemented in SPEC_FULL.md §5: a Status handshake and the
// BlocksByRoot protocol that lets a node backfill blocks its gossip
// window missed. spec.md itself scopes only the gossip message
// contract (§6); this protocol exists so historical_block_hashes can
// ever be filled in for a node that joined late, matching the
// teacher's networking/reqresp + networking/chainsync packages, which
// this package's Handler/StreamHandler split follows directly.
package reqresp

import (
	"github.com/leanconsensus/node/params"
	"github.com/leanconsensus/node/types"
)

// Protocol IDs, grounded on geanlabs-gean/networking/reqresp/types.go's
// StatusProtocolV1/BlocksByRootProtocolV1 naming.
const (
	StatusProtocolV1       = "/leanconsensus/req/status/1/ssz_snappy"
	BlocksByRootProtocolV1 = "/leanconsensus/req/blocks_by_root/1/ssz_snappy"
)

// MaxRequestBlocks bounds a single BlocksByRoot request/response, per
// spec.md §6's MAX_REQUEST_BLOCKS preset.
const MaxRequestBlocks = int(params.MaxRequestBlocks)

// Response codes, grounded on geanlabs-gean/networking/reqresp/stream.go.
const (
	RespCodeSuccess     byte = 0x00
	RespCodeInvalidReq  byte = 0x01
	RespCodeServerError byte = 0x02
)

// Status is the handshake payload exchanged on stream open, letting two
// peers compare chain views before a sync decision is made.
type Status struct {
	Finalized types.Checkpoint
	Head      types.Checkpoint
}

// BlocksByRootRequest asks a peer for blocks by their block roots,
// bounded by MaxRequestBlocks.
type BlocksByRootRequest struct {
	Roots []types.Root
}

// BlockReader is the read-only view of the node's chain state that
// Handler needs; both forkchoice.Store and store.Store satisfy the
// pieces of it, wired together by package node.
type BlockReader interface {
	Head() types.Root
	GetBlock(root types.Root) (*types.SignedBlock, bool)
	LatestFinalized() types.Checkpoint
}

// Handler answers Status and BlocksByRoot requests from BlockReader,
// independent of the concrete libp2p transport. Grounded on
// geanlabs-gean/networking/reqresp/handler.go's Handler.
type Handler struct {
	reader BlockReader
}

// NewHandler builds a Handler over reader.
func NewHandler(reader BlockReader) *Handler {
	return &Handler{reader: reader}
}

// GetStatus reports this node's current head/finalized checkpoints.
func (h *Handler) GetStatus() *Status {
	headRoot := h.reader.Head()
	headSlot := types.Slot(0)
	if block, ok := h.reader.GetBlock(headRoot); ok {
		headSlot = block.Message.Slot
	}
	return &Status{
		Finalized: h.reader.LatestFinalized(),
		Head:      types.Checkpoint{Root: headRoot, Slot: headSlot},
	}
}

// HandleBlocksByRoot returns every requested root this node has,
// skipping roots it doesn't hold rather than failing the whole
// request, and never returning more than MaxRequestBlocks blocks.
func (h *Handler) HandleBlocksByRoot(req *BlocksByRootRequest) []*types.SignedBlock {
	var out []*types.SignedBlock
	for _, root := range req.Roots {
		if len(out) >= MaxRequestBlocks {
			break
		}
		if block, ok := h.reader.GetBlock(root); ok {
			out = append(out, block)
		}
	}
	return out
}
