package models

import "errors"

// Every rejected operation maps to one of these. Nothing here is
// fatal: callers match with errors.Is and decide how to present it.
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidDuration   = errors.New("duration must be 24, 48 or 72 hours")
	ErrInvalidCapacity   = errors.New("capacity must not be negative")
	ErrCapacityExceeded  = errors.New("session window is full")
	ErrBidNotFound       = errors.New("bid not found")
	ErrInvalidTransition = errors.New("bid is not in a valid state for this operation")
	ErrSelfAcceptance    = errors.New("cannot accept own bid")
	ErrUnauthorized      = errors.New("caller is not allowed to perform this operation")
)
