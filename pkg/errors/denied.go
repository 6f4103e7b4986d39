package errors

import (
	"errors"
	"fmt"
)

// EscalationDeniedError is returned when the escalation policy rejects an
// escalation request because the AI analysis disagrees with high confidence.
// It carries the analysis recommendation and confidence so callers can
// present them to a human reviewer.
type EscalationDeniedError struct {
	// Recommendation is the analysis recommendation text.
	Recommendation string
	// Confidence is the analysis confidence in [0,1].
	Confidence float64
}

// Error implements the error interface.
func (e *EscalationDeniedError) Error() string {
	return fmt.Sprintf("escalation denied: AI analysis recommends against escalation (confidence %s): %s",
		e.ConfidencePercent(), e.Recommendation)
}

// ConfidencePercent formats the confidence as a percentage, e.g. "85.0%".
func (e *EscalationDeniedError) ConfidencePercent() string {
	return fmt.Sprintf("%.1f%%", e.Confidence*100)
}

// NewEscalationDenied creates an EscalationDeniedError.
func NewEscalationDenied(recommendation string, confidence float64) *EscalationDeniedError {
	return &EscalationDeniedError{
		Recommendation: recommendation,
		Confidence:     confidence,
	}
}

// IsEscalationDenied reports whether err is an EscalationDeniedError,
// returning the typed error when it is.
func IsEscalationDenied(err error) (*EscalationDeniedError, bool) {
	var denied *EscalationDeniedError
	if errors.As(err, &denied) {
		return denied, true
	}
	return nil, false
}
