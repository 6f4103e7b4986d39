// Package errors provides common domain error types for the casetriage engine.
//
// This package defines sentinel errors for the triage domain conditions like
// "not found" or "already escalated" that can be used across all packages.
// Using typed errors enables consistent error handling patterns with
// errors.Is() checks.
//
// Usage:
//
//	import cterrors "github.com/openredress/casetriage/pkg/errors"
//
//	// Return a domain error
//	return nil, cterrors.ErrNotFound
//
//	// Check for domain errors
//	if cterrors.IsNotFound(err) {
//	    // handle not found case
//	}
package errors

import "errors"

// Domain errors - common sentinel errors for triage conditions.
var (
	// ErrNotFound indicates the requested case was not found.
	ErrNotFound = errors.New("case not found")

	// ErrAlreadyEscalated indicates the case is already in the escalated state.
	ErrAlreadyEscalated = errors.New("case already escalated")

	// ErrInvalidState indicates the operation is not valid for the case's
	// current status (e.g. escalating a closed or completed case).
	ErrInvalidState = errors.New("invalid case state")

	// ErrValidation indicates invalid input or a malformed inference response.
	ErrValidation = errors.New("validation error")

	// ErrClassificationUnavailable indicates the inference call failed or
	// timed out. Callers recover from this locally with a fallback
	// classification; it is never surfaced past the triage service.
	ErrClassificationUnavailable = errors.New("classification unavailable")

	// ErrAuditWriteFailed indicates the audit record could not be persisted.
	// An unaudited decision is treated as a failure of the whole operation.
	ErrAuditWriteFailed = errors.New("audit write failed")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyEscalated reports whether any error in err's chain is ErrAlreadyEscalated.
func IsAlreadyEscalated(err error) bool {
	return errors.Is(err, ErrAlreadyEscalated)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsClassificationUnavailable reports whether any error in err's chain is
// ErrClassificationUnavailable.
func IsClassificationUnavailable(err error) bool {
	return errors.Is(err, ErrClassificationUnavailable)
}

// IsAuditWriteFailed reports whether any error in err's chain is ErrAuditWriteFailed.
func IsAuditWriteFailed(err error) bool {
	return errors.Is(err, ErrAuditWriteFailed)
}
