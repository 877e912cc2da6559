package chat

import "errors"

var (
	// ErrInvalidInput is returned for malformed arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrQuotaExceeded aborts a settlement against an invite whose
	// consumption already reached its quota. The whole transaction rolls
	// back: no messages, no ledger entry, no consumption. Distinct from the
	// creation-time "exhausted" check in the invite package.
	ErrQuotaExceeded = errors.New("token quota exceeded at settlement")
)
