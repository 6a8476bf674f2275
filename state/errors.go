package state

import "errors"

// Failure taxonomy per spec.md §4.3. Wrapped with fmt.Errorf("%w: ...") at
// the point of detection so errors.Is still matches the sentinel.
var (
	ErrInvalidPreState        = errors.New("invalid pre-state")
	ErrInvalidLatestBlockHeader = errors.New("invalid latest block header")
	ErrInvalidProposer         = errors.New("invalid proposer")
	ErrInvalidParentRoot       = errors.New("invalid parent root")
	ErrInvalidPostState        = errors.New("invalid post-state")
	ErrInvalidValidatorID      = errors.New("invalid validator id")
	ErrInvalidBlockSignatures  = errors.New("invalid block signatures")

	// ErrInvalidExecutionPayloadHeaderTimestamp is reserved per spec.md §9
	// open question (a): the execution-payload path is disabled in this
	// devnet and never returned; it is kept only so the taxonomy's shape
	// matches the reference and future execution-layer work has a home.
	ErrInvalidExecutionPayloadHeaderTimestamp = errors.New("invalid execution payload header timestamp")
)
