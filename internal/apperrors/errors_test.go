package apperrors

import (
	"fmt"
	"testing"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		err  error
		is   func(error) bool
		name string
	}{
		{Validation("bad input"), IsValidation, "validation"},
		{Precondition("wrong state"), IsPrecondition, "precondition"},
		{Locked("frozen"), IsLocked, "locked"},
		{Conflict("raced"), IsConflict, "conflict"},
		{NotFound("missing"), IsNotFound, "not found"},
	}
	for _, tt := range tests {
		if !tt.is(tt.err) {
			t.Errorf("%s error not recognized by its predicate", tt.name)
		}
		// Wrapping must not break classification.
		if !tt.is(fmt.Errorf("outer: %w", tt.err)) {
			t.Errorf("wrapped %s error not recognized", tt.name)
		}
	}

	if IsValidation(Conflict("raced")) {
		t.Error("conflict classified as validation")
	}
	if IsNotFound(nil) {
		t.Error("nil classified as not found")
	}
}

func TestMessageFormatting(t *testing.T) {
	err := NotFound("session %d not found", 42)
	if got := err.Error(); got != "session 42 not found" {
		t.Errorf("Error() = %q", got)
	}
}
