// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Error kinds surfaced to the user. Every failure returned by a user-facing
// operation wraps exactly one of them.
var (
	// ErrValidation indicates an empty or malformed required field.
	ErrValidation = errors.New("validation error")

	// ErrInvalidSelection indicates a reference to a project or entity that does not exist.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrInvalidState indicates a timer (or session-guarded) operation attempted from a state that forbids it.
	ErrInvalidState = errors.New("invalid state")

	// ErrStorage indicates a persistence read/write failure.
	ErrStorage = errors.New("storage error")

	// ErrAuth indicates a credential mismatch, duplicate registration or missing login.
	ErrAuth = errors.New("auth error")
)

// Internal sentinels exchanged between storage, repository and service layers.
var (
	// ErrNotFound indicates the requested key or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrRateLimited indicates temporary login lock after repeated failures.
	ErrRateLimited = errors.New("rate limited")
)

// Kind returns the user-facing error kind err belongs to, or nil when err
// is not classified.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrInvalidSelection, ErrInvalidState, ErrStorage, ErrAuth} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Message renders err as a single notification line.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch Kind(err) {
	case ErrValidation:
		return "invalid input: " + err.Error()
	case ErrInvalidSelection:
		return "not found: " + err.Error()
	case ErrInvalidState:
		return "not allowed now: " + err.Error()
	case ErrStorage:
		return "could not save: " + err.Error()
	case ErrAuth:
		return "access denied: " + err.Error()
	}
	return "error: " + err.Error()
}
