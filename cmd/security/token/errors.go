package token

import "errors"

// Public, stable errors for callers.
var (
	ErrMasterKeyMissing  = errors.New("master key missing")
	ErrMasterKeyTooShort = errors.New("master key too short")
)
