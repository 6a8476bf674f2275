package forkchoice

import "errors"

// Sentinel errors for fork choice validation, grounded on
// geanlabs-gean/forkchoice/errors.go's sentinel-plus-wrap style.
var (
	ErrParentNotFound      = errors.New("parent not found")
	ErrSourceNotFound      = errors.New("source root not found")
	ErrTargetNotFound      = errors.New("target root not found")
	ErrValidatorOutOfRange = errors.New("validator index out of range")
	ErrSlotMismatch        = errors.New("slot mismatch")
	ErrFutureVote          = errors.New("vote too far in future")
)
