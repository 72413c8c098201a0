package coordination

import "errors"

var (
	// ErrInvalidInput indicates a malformed processing request.
	ErrInvalidInput = errors.New("invalid coordination input")

	// ErrMalformedMetadata indicates an event whose metadata is missing or
	// has the wrong shape for a rule that matched its type. Such events are
	// still marked processed so they are not retried forever.
	ErrMalformedMetadata = errors.New("malformed event metadata")

	// ErrNotFound is returned by Store implementations when a requested
	// entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateTrigger is returned by Store implementations when
	// inserting a trigger whose dedup key is already held by a live trigger
	// in the same project.
	ErrDuplicateTrigger = errors.New("duplicate trigger: live trigger already holds dedup key")
)
