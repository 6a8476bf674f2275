// Package types defines the primitive and composite types of the lean
// consensus protocol's state machine: checkpoints, block headers, blocks,
// attestations, and the beacon-style State container. Every exported
// container here has a matching hand-written MarshalSSZ/UnmarshalSSZ/
// HashTreeRoot triple in encoding.go, written by hand in the calling-
// convention shape a generated codec would take (see encoding.go's package
// comment) rather than through a code generator, since no sszgen binary is
// fetchable in this environment.
package types

import "fmt"

// Slot is a discrete protocol time unit; one potential block per slot.
type Slot uint64

// ValidatorIndex identifies a validator within the registry.
type ValidatorIndex uint64

// Root is a 32-byte tree-hash root or block/state digest.
type Root [32]byte

// IsZero reports whether r is the all-zero root (genesis sentinel).
func (r Root) IsZero() bool { return r == Root{} }

// Compare returns -1, 0, or 1 comparing r to other lexicographically on
// bytes, matching the tie-break rule used by fork-choice head selection.
func (r Root) Compare(other Root) int {
	for i := range r {
		if r[i] != other[i] {
			if r[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Short renders the first 4 bytes as hex, for log lines.
func (r Root) Short() string { return fmt.Sprintf("%x", r[:4]) }

// Pubkey is a 52-byte Generalized XMSS public key (§4.2).
type Pubkey [52]byte

// XMSSSignatureSize is the wire size of the Signature container below:
// a variable Merkle path, a fixed randomness vector, and a fixed run of
// hash-chain digests. It is sized for the mainnet preset's LOG_LIFETIME
// so that every signature value round-trips through a fixed-capacity
// byte array without reallocation.
const XMSSSignatureSize = 3112

// Signature is the XMSS signature container, carried as a fixed-size byte
// array on the wire. Its SSZ tree-hash root is NOT a flat hash of these
// bytes: it is computed as a container of (path, rho, hashes) — see
// SignatureHashTreeRoot in encoding.go — to satisfy the "container root, not opaque
// bytes" rule in spec.md §3.
type Signature [XMSSSignatureSize]byte

// Checkpoint identifies a block at a specific slot for justification or
// finalization bookkeeping. The genesis checkpoint has Root == zero,
// Slot == 0.
type Checkpoint struct {
	Root Root
	Slot Slot
}

// Config holds the chain configuration carried inside State.
type Config struct {
	NumValidators uint64
	GenesisTime   uint64
}

// AttestationData describes a validator's observed chain view at a slot.
type AttestationData struct {
	Slot   Slot
	Head   Checkpoint
	Target Checkpoint
	Source Checkpoint
}

// SignedAttestation is the gossip envelope for a single validator's vote.
type SignedAttestation struct {
	ValidatorID uint64
	Message     AttestationData
	Signature   Signature
}

// BlockHeader is the fixed-size summary of a block used for parent chaining.
// StateRoot is transiently zero between header installation and the next
// ProcessSlot call, which backfills it with the pre-state's own root.
type BlockHeader struct {
	Slot          Slot
	ProposerIndex uint64
	ParentRoot    Root
	StateRoot     Root
	BodyRoot      Root
}

// BlockBody carries the block's attestations, bounded by
// params.ValidatorRegistryLimit (one attestation per validator per slot,
// at most).
type BlockBody struct {
	Attestations []SignedAttestation
}

// Block is a complete, unsigned consensus block.
type Block struct {
	Slot          Slot
	ProposerIndex uint64
	ParentRoot    Root
	StateRoot     Root
	Body          BlockBody
}

// SignedBlock is the top-level block envelope published on the gossip
// network: a block plus the proposer's signature over its own tree-hash
// root at epoch = block.Slot.
type SignedBlock struct {
	Message   Block
	Signature Signature
}

// State is the complete beacon-style consensus state. Field order here
// MUST match the order fixed by the protocol, since it determines the
// tree-hash root.
//
// The justifications map (per-root validator bitsets) is not stored as a
// nested structure; it is flattened into JustificationsRoots (sorted
// ascending) and JustificationsValidators (concatenated per-root
// bitvectors, each exactly NumValidators bits long), per the design note
// in spec.md §9. Callers that need to reason about "does validator v
// support root r" should go through state.GetJustifications, which
// materializes a map view, and state.SetJustifications, which writes the
// flat form back (both in state/justifications.go).
type State struct {
	Config Config
	Slot   Slot

	LatestBlockHeader BlockHeader

	LatestJustified Checkpoint
	LatestFinalized Checkpoint

	HistoricalBlockHashes []Root
	JustifiedSlots        []byte // bitlist, len(HistoricalBlockHashes) bits

	JustificationsRoots      []Root
	JustificationsValidators []byte // bitlist, len(JustificationsRoots)*NumValidators bits
}

// ProtoBlock is the lightweight fork-choice DAG node (§3). FC never
// dereferences full block/state bytes; it reasons only in terms of these.
type ProtoBlock struct {
	Slot       Slot
	BlockRoot  Root
	ParentRoot Root
	StateRoot  Root
	Timeliness bool
}

// GenesisSpec parametrizes genesis state construction (§3 Lifecycles).
type GenesisSpec struct {
	GenesisTime      uint64
	ValidatorPubkeys []Pubkey
}
