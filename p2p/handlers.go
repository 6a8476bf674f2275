package p2p

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leanconsensus/node/types"
)

// BlockHandler processes a decoded, gossip-received block.
type BlockHandler func(ctx context.Context, block *types.SignedBlock) error

// AttestationHandler processes a decoded, gossip-received attestation.
type AttestationHandler func(ctx context.Context, signed *types.SignedAttestation) error

// MessageHandlers decodes raw gossip payloads and dispatches to the
// node's ingestion callbacks. Grounded on geanlabs-gean/p2p/handlers.go's
// MessageHandlers.
type MessageHandlers struct {
	OnBlock       BlockHandler
	OnAttestation AttestationHandler
	Logger        *slog.Logger
}

func (h *MessageHandlers) HandleBlockMessage(ctx context.Context, data []byte) error {
	decoded, err := DecompressMessage(data)
	if err != nil {
		return fmt.Errorf("decompress block: %w", err)
	}
	var block types.SignedBlock
	if err := block.UnmarshalSSZ(decoded); err != nil {
		return fmt.Errorf("unmarshal block: %w", err)
	}
	if h.Logger != nil {
		h.Logger.Info("received block", "slot", block.Message.Slot, "proposer", block.Message.ProposerIndex)
	}
	if h.OnBlock != nil {
		return h.OnBlock(ctx, &block)
	}
	return nil
}

func (h *MessageHandlers) HandleAttestationMessage(ctx context.Context, data []byte) error {
	decoded, err := DecompressMessage(data)
	if err != nil {
		return fmt.Errorf("decompress attestation: %w", err)
	}
	var signed types.SignedAttestation
	if err := signed.UnmarshalSSZ(decoded); err != nil {
		return fmt.Errorf("unmarshal attestation: %w", err)
	}
	if h.Logger != nil {
		h.Logger.Info("received attestation", "slot", signed.Message.Slot, "validator", signed.ValidatorID)
	}
	if h.OnAttestation != nil {
		return h.OnAttestation(ctx, &signed)
	}
	return nil
}
