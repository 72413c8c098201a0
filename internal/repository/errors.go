package repository

import "github.com/cadencehq/cadence/internal/coordination"

// The sentinel identities live with the engine's Store contract in
// internal/coordination; this package re-exports them so storage adapters
// and the engine share one set and errors.Is checks never split.
var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = coordination.ErrNotFound

	// ErrDuplicateTrigger is returned when inserting a trigger whose dedup
	// key is already held by a live trigger in the same project
	ErrDuplicateTrigger = coordination.ErrDuplicateTrigger

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = coordination.ErrInvalidInput
)
