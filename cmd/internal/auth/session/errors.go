package session

import "errors"

var (
	// ErrInvalidInput is returned for malformed arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSessionNotFound is returned by stores when a token hash matches no row.
	// The service never surfaces it past Verify; callers see a nil context.
	ErrSessionNotFound = errors.New("session not found")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
