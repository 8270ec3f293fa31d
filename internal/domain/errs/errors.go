package errs

import "errors"

var (
	// ErrNotFound indicates the requested entity is absent from every source consulted.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation (duplicate id, duplicate mapping).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the request is malformed or violates a domain rule.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden indicates the caller's role or organization does not allow the action.
	ErrForbidden = errors.New("forbidden")

	// ErrBackendUnavailable indicates the persistence backend could not be reached.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("ai quota exceeded")
)
