// Package sentinel defines storage-level facts that services translate into
// coded domain errors. Stores return these, optionally wrapped with %w.
package sentinel

import "errors"

var (
	// ErrNotFound means the row does not exist (or is not visible to the caller's scope).
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness constraint rejected the write.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState means the row exists but is not in a state that allows the write.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable means the backing store could not be reached.
	ErrUnavailable = errors.New("unavailable")
)
