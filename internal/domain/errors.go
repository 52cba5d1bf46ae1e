package domain

import "errors"

// Sentinel errors shared by services and adapters. Wrap them with
// fmt.Errorf("%w: ...") and test with errors.Is.
var (
	// ErrValidation marks a bad or missing field, or an invalid enum value.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks a missing, invalid or expired credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden marks an actor that lacks the role an operation requires.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks a referenced record that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a write that clashes with existing state.
	ErrConflict = errors.New("conflict")

	// ErrLocked marks a login attempt against a temporarily locked account.
	ErrLocked = errors.New("account temporarily locked")
)
