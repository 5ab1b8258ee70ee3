package apperrors

import (
	"errors"
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError([]FieldViolation{
		{Entity: "Student", Field: "firstName", Message: "is required"},
		{Entity: "Course", Field: "credits", Message: "must be between 1 and 6"},
	})

	if !errors.Is(err, ErrValidationFailed) {
		t.Error("ValidationError does not unwrap to ErrValidationFailed")
	}

	msg := err.Error()
	if !strings.Contains(msg, "Student.firstName: is required") {
		t.Errorf("Error() = %q, missing first violation", msg)
	}
	if !strings.Contains(msg, "Course.credits: must be between 1 and 6") {
		t.Errorf("Error() = %q, missing second violation", msg)
	}
}

func TestValidationError_Empty(t *testing.T) {
	err := NewValidationError(nil)
	if err.Error() != ErrValidationFailed.Error() {
		t.Errorf("Error() on empty violations = %q", err.Error())
	}
}
