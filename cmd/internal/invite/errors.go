package invite

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("invite not found")
	ErrDisabled     = errors.New("invite disabled")
	ErrExhausted    = errors.New("invite exhausted")
)
