package models

import "github.com/pkg/errors"

// Error kinds shared across layers. Wrap them with pkg/errors for context and
// discriminate with errors.Is at the HTTP boundary.
var (
	// ErrConflict: the owner already tracks this code, or the email is taken.
	ErrConflict = errors.New("conflict")
	// ErrNotFound: record absent / not owned, or the carrier does not know the code.
	ErrNotFound = errors.New("not found")
	// ErrProviderFailure: the tracking provider failed for any reason other than
	// an unknown code.
	ErrProviderFailure = errors.New("tracking provider failure")
	// ErrStorage: persistence failure.
	ErrStorage = errors.New("storage failure")
	// ErrUnauthorized: credential check failed.
	ErrUnauthorized = errors.New("unauthorized")
)
