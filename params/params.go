// Package params holds the preset constants for the lean consensus protocol.
//
// Values match the mainnet preset named in the protocol configuration; a
// node only ever runs one preset for its lifetime, so these are compile-time
// constants rather than a loaded config struct.
package params

const (
	// SecondsPerSlot is SECONDS_PER_SLOT.
	SecondsPerSlot uint64 = 4

	// IntervalsPerSlot splits each slot into propose/attest/aggregate.
	// SecondsPerSlot need not divide evenly by IntervalsPerSlot; interval
	// boundaries are computed with scaled integer division (see
	// scheduler.Clock.CurrentInterval) rather than a fixed SecondsPerInterval.
	IntervalsPerSlot uint64 = 3

	// HistoricalRootsLimit is HISTORICAL_ROOTS_LIMIT (2^18).
	HistoricalRootsLimit uint64 = 1 << 18

	// ValidatorRegistryLimit is VALIDATOR_REGISTRY_LIMIT (2^12).
	ValidatorRegistryLimit uint64 = 1 << 12

	// MaxRequestBlocks bounds a single BlocksByRoot request.
	MaxRequestBlocks uint64 = 1024

	// JustificationValidatorsLimit bounds the flat justifications bitlist
	// (HistoricalRootsLimit * ValidatorRegistryLimit).
	JustificationValidatorsLimit uint64 = HistoricalRootsLimit * ValidatorRegistryLimit

	// XMSS parameters (§6).
	XMSSLogLifetime uint64 = 32
	XMSSRandLenFE   uint64 = 7
	XMSSHashLenFE   uint64 = 8
	XMSSFieldElementBytes uint64 = 4

	// NodeListLimit bounds the node-assignment / bootnode lists.
	NodeListLimit uint64 = 1 << 17

	// NetworkTimeoutSeconds is the default request/response timeout (§5).
	NetworkTimeoutSeconds uint64 = 5

	// MaxTransientRetries bounds transient-error backoff (§7 tier 4).
	MaxTransientRetries = 5

	// SignatureVerificationPoolSize bounds the worker pool STF's
	// ApplyTransition fans attestation-signature checks out to (§5:
	// "Heavy CPU work ... signature verification MAY run on a bounded
	// worker pool").
	SignatureVerificationPoolSize = 8
)

// Interval identifies a slot's propose/attest/aggregate phase.
type Interval uint64

const (
	IntervalPropose Interval = 0
	IntervalAttest  Interval = 1
	IntervalObserve Interval = 2
)
