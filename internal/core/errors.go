// Package core declares the ports the application layer is written
// against: transport endpoints, backing stores and the identity
// provider. Adapters own the resources behind them.
package core

import "errors"

// Failure taxonomy shared by coordinator and adapters.
var (
	// ErrNotFound: meeting or document absent. Surfaced, non-fatal.
	ErrNotFound = errors.New("not found")
	// ErrForbidden: privilege check failed. The coordinator drops the
	// request without mutating state.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated: token missing or invalid, rejected before
	// any mutation.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnavailable: backing store unreachable. Surfaced as retryable;
	// no automatic retry at this layer.
	ErrUnavailable = errors.New("unavailable")

	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)
