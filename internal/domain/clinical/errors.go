package clinical

import "errors"

var (
	// ErrValidation marks missing or malformed required input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced patient, case, or scan that does not
	// exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized marks an entity that exists but is not owned by the
	// acting party.
	ErrUnauthorized = errors.New("not owned by caller")
)
