package store

import "errors"

// Sentinel errors recovered at the request boundary. Anything else that
// escapes the pipelines is a storage fault and maps to a server error.
var (
	// ErrInvalidInput marks malformed identifiers, missing required
	// fields and empty upload bodies.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks an unknown file identifier.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a duplicate identifier on create. Identifiers
	// are generated fresh per upload, so hitting this is a bug.
	ErrConflict = errors.New("conflict")
)
