package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"direct match", ErrNotFound, true},
		{"wrapped once", fmt.Errorf("get case: %w", ErrNotFound), true},
		{"wrapped twice", fmt.Errorf("service: %w", fmt.Errorf("repo: %w", ErrNotFound)), true},
		{"different error", ErrAlreadyEscalated, false},
		{"nil error", nil, false},
		{"unrelated error", errors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAlreadyEscalated(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"direct match", ErrAlreadyEscalated, true},
		{"wrapped", fmt.Errorf("escalate: %w", ErrAlreadyEscalated), true},
		{"different error", ErrNotFound, false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAlreadyEscalated(tt.err); got != tt.want {
				t.Errorf("IsAlreadyEscalated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsInvalidState(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"direct match", ErrInvalidState, true},
		{"wrapped", fmt.Errorf("escalate closed case: %w", ErrInvalidState), true},
		{"different error", ErrValidation, false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInvalidState(tt.err); got != tt.want {
				t.Errorf("IsInvalidState() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsClassificationUnavailable(t *testing.T) {
	wrapped := fmt.Errorf("gateway: %w", ErrClassificationUnavailable)
	if !IsClassificationUnavailable(wrapped) {
		t.Error("expected wrapped ErrClassificationUnavailable to match")
	}
	if IsClassificationUnavailable(ErrValidation) {
		t.Error("ErrValidation should not match IsClassificationUnavailable")
	}
}

func TestIsAuditWriteFailed(t *testing.T) {
	wrapped := fmt.Errorf("insert decision record: %w", ErrAuditWriteFailed)
	if !IsAuditWriteFailed(wrapped) {
		t.Error("expected wrapped ErrAuditWriteFailed to match")
	}
	if IsAuditWriteFailed(nil) {
		t.Error("nil should not match IsAuditWriteFailed")
	}
}

func TestEscalationDeniedError(t *testing.T) {
	denied := NewEscalationDenied("insufficient evidence", 0.85)

	if got := denied.ConfidencePercent(); got != "85.0%" {
		t.Errorf("ConfidencePercent() = %q, want %q", got, "85.0%")
	}

	msg := denied.Error()
	if msg == "" {
		t.Fatal("Error() returned empty string")
	}
	for _, want := range []string{"85.0%", "insufficient evidence"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestIsEscalationDenied(t *testing.T) {
	denied := NewEscalationDenied("no new evidence", 0.7)
	wrapped := fmt.Errorf("escalate case: %w", denied)

	got, ok := IsEscalationDenied(wrapped)
	if !ok {
		t.Fatal("expected wrapped EscalationDeniedError to match")
	}
	if got.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want 0.7", got.Confidence)
	}

	if _, ok := IsEscalationDenied(ErrNotFound); ok {
		t.Error("ErrNotFound should not match IsEscalationDenied")
	}
	if _, ok := IsEscalationDenied(nil); ok {
		t.Error("nil should not match IsEscalationDenied")
	}
}
