package models

import (
	"fmt"
	"unicode/utf8"

	"github.com/eralpk/studentreg/internal/pkg/apperrors"
)

// Course represents a course students can enroll in.
type Course struct {
	ID          int64   `json:"id" db:"id"`
	Code        string  `json:"code" db:"code" example:"CS101"`
	Title       string  `json:"title" db:"title"`
	Description *string `json:"description,omitempty" db:"description"` // Nullable
	Credits     int     `json:"credits" db:"credits" example:"3"`

	// Relations (populated by eager loading only)
	Enrollments []*Enrollment `json:"enrollments,omitempty"`
}

// Validate checks the course's fields against the schema constraints and
// returns every violation found.
func (c *Course) Validate() []apperrors.FieldViolation {
	var violations []apperrors.FieldViolation

	violations = appendStringViolations(violations, "Course", "code", c.Code, true, MaxCourseCodeLength)
	violations = appendStringViolations(violations, "Course", "title", c.Title, true, MaxCourseTitleLength)

	if c.Description != nil && utf8.RuneCountInString(*c.Description) > MaxCourseDescriptionLength {
		violations = append(violations, apperrors.FieldViolation{
			Entity: "Course", Field: "description",
			Message: fmt.Sprintf("must be at most %d characters", MaxCourseDescriptionLength),
		})
	}

	if c.Credits < MinCourseCredits || c.Credits > MaxCourseCredits {
		violations = append(violations, apperrors.FieldViolation{
			Entity: "Course", Field: "credits",
			Message: fmt.Sprintf("must be between %d and %d", MinCourseCredits, MaxCourseCredits),
		})
	}

	return violations
}
