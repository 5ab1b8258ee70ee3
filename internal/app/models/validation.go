package models

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/eralpk/studentreg/internal/pkg/apperrors"
)

// Field constraints mirrored by the relational schema.
const (
	MaxNameLength              = 100
	MaxEmailLength             = 200
	MaxCourseCodeLength        = 10
	MaxCourseTitleLength       = 200
	MaxCourseDescriptionLength = 1000
	MinCourseCredits           = 1
	MaxCourseCredits           = 6
	MaxGradeLength             = 2
)

// emailPattern validates email address syntax
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// appendStringViolations applies the required/max-length rules shared by all
// string columns. Limits count characters, not bytes, matching VARCHAR(n).
func appendStringViolations(violations []apperrors.FieldViolation, entity, field, value string, required bool, maxLen int) []apperrors.FieldViolation {
	if required && value == "" {
		return append(violations, apperrors.FieldViolation{
			Entity: entity, Field: field, Message: "is required",
		})
	}

	if utf8.RuneCountInString(value) > maxLen {
		violations = append(violations, apperrors.FieldViolation{
			Entity: entity, Field: field,
			Message: fmt.Sprintf("must be at most %d characters", maxLen),
		})
	}

	return violations
}
