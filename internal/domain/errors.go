package domain

import "errors"

// Failure classes for a sync run. Callers wrap these with fmt.Errorf("...: %w")
// so the engine can classify an entity's outcome with errors.Is.
var (
	// ErrAuth means the upstream rejected our credentials or cached session.
	// Not retryable within a run; the adapter re-authenticates on its next call.
	ErrAuth = errors.New("upstream authentication failed")

	// ErrTransient covers network failures, rate limits, and upstream 5xx.
	ErrTransient = errors.New("transient upstream failure")

	// ErrSchema means an upstream response could not be mapped to our shapes.
	ErrSchema = errors.New("unexpected upstream response shape")

	// ErrStore means a database read or write failed.
	ErrStore = errors.New("store operation failed")
)
