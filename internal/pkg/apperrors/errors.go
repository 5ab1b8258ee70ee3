package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	// Resource errors
	ErrStudentNotFound    = errors.New("student not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	// Constraint errors
	ErrDuplicateEnrollment     = errors.New("student is already enrolled in this course")
	ErrEnrollmentParentMissing = errors.New("enrollment references a missing student or course")
	ErrConstraintViolation     = errors.New("constraint violation")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")

	// Session errors
	ErrSessionClosed = errors.New("session is closed")

	// Store errors
	ErrStoreUnavailable = errors.New("backing store unavailable")
)

// FieldViolation describes a single violated field constraint.
type FieldViolation struct {
	Entity  string `json:"entity"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v FieldViolation) String() string {
	return fmt.Sprintf("%s.%s: %s", v.Entity, v.Field, v.Message)
}

// ValidationError aggregates every field violation found in a staged change
// set. The persist that produced it wrote nothing.
type ValidationError struct {
	Violations []FieldViolation
}

// Error implements error interface
func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrValidationFailed.Error()
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap implements errors.Unwrap interface
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a ValidationError from the collected violations
func NewValidationError(violations []FieldViolation) *ValidationError {
	return &ValidationError{Violations: violations}
}
