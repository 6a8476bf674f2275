package xmss

import "github.com/leanconsensus/node/types"

// Registry resolves validator indices to pubkeys and implements
// state.SignatureVerifier, so the STF can verify proposer and
// attestation signatures without knowing anything about XMSS beyond the
// contract in spec.md §4.2. It is built once from GenesisSpec and never
// mutated, matching §5's "read-only after load, shared by reference"
// policy for PQSig key material.
type Registry struct {
	pubkeys []types.Pubkey
}

// NewRegistry builds a Registry over pubkeys, indexed by position —
// pubkeys[i] belongs to ValidatorIndex(i).
func NewRegistry(pubkeys []types.Pubkey) *Registry {
	return &Registry{pubkeys: pubkeys}
}

// Verify implements state.SignatureVerifier.
func (r *Registry) Verify(validatorIndex uint64, messageRoot types.Root, epoch uint64, sig types.Signature) bool {
	if validatorIndex >= uint64(len(r.pubkeys)) {
		return false
	}
	if epoch > uint64(^uint32(0)) {
		return false
	}
	return Verify(r.pubkeys[validatorIndex], messageRoot, uint32(epoch), sig)
}
