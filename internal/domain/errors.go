package domain

import "errors"

var (
	// ErrInvalidEventLog is returned when a log cannot be decoded into its event schema
	ErrInvalidEventLog = errors.New("invalid event log")

	// ErrUnknownEventSignature is returned for a log whose topic0 matches no known schema
	ErrUnknownEventSignature = errors.New("unknown event signature")

	// ErrCursorAhead is returned when a run's head is older than the block a
	// previous run already recorded for the same job
	ErrCursorAhead = errors.New("stored block cursor is ahead of the chain head")

	// ErrInvalidChain is returned for an unsupported CAIP-2 chain identifier
	ErrInvalidChain = errors.New("invalid chain")
)
