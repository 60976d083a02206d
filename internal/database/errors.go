package database

import "errors"

// Sentinel errors shared by all store implementations. Callers match
// with errors.Is after unwrapping.
var (
	// ErrNotFound is returned when a project, image or task does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an insert violates the
	// (project_id, object_key) uniqueness constraint. The orchestrator
	// swallows it: a concurrent run already ingested the object.
	ErrConflict = errors.New("already exists")

	// ErrInvariant signals a state that must never occur, such as a
	// processed counter exceeding the total. It is logged loudly and
	// never silently corrected.
	ErrInvariant = errors.New("invariant violation")
)
