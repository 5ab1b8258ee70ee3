package models

import (
	"time"

	"github.com/eralpk/studentreg/internal/pkg/apperrors"
)

// Student defines the student model based on the 'students' table
type Student struct {
	ID          int64     `json:"id" db:"id" example:"1"`                         // Unique identifier for the student record
	FirstName   string    `json:"firstName" db:"first_name" example:"John"`       // Student's first name
	LastName    string    `json:"lastName" db:"last_name" example:"Doe"`          // Student's last name
	Email       string    `json:"email" db:"email" example:"john.doe@school.edu"` // Student's email address
	DateOfBirth time.Time `json:"dateOfBirth" db:"date_of_birth"`                 // Student's date of birth

	// Relations (populated by eager loading only)
	Enrollments []*Enrollment `json:"enrollments,omitempty"`
}

// FullName returns the student's first and last name joined with a space.
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// AgeOn returns the student's age in whole years on the given date. The year
// difference is reduced by one when the birthday has not yet occurred that
// year; a birthday falling exactly on the given day counts as occurred.
func (s *Student) AgeOn(on time.Time) int {
	age := on.Year() - s.DateOfBirth.Year()
	if on.Month() < s.DateOfBirth.Month() ||
		(on.Month() == s.DateOfBirth.Month() && on.Day() < s.DateOfBirth.Day()) {
		age--
	}
	return age
}

// Age returns the student's age today.
func (s *Student) Age() int {
	return s.AgeOn(time.Now())
}

// Validate checks the student's fields against the schema constraints and
// returns every violation found.
func (s *Student) Validate() []apperrors.FieldViolation {
	var violations []apperrors.FieldViolation

	violations = appendStringViolations(violations, "Student", "firstName", s.FirstName, true, MaxNameLength)
	violations = appendStringViolations(violations, "Student", "lastName", s.LastName, true, MaxNameLength)
	violations = appendStringViolations(violations, "Student", "email", s.Email, true, MaxEmailLength)

	if s.Email != "" && !emailPattern.MatchString(s.Email) {
		violations = append(violations, apperrors.FieldViolation{
			Entity: "Student", Field: "email", Message: "must be a valid email address",
		})
	}

	if s.DateOfBirth.IsZero() {
		violations = append(violations, apperrors.FieldViolation{
			Entity: "Student", Field: "dateOfBirth", Message: "is required",
		})
	}

	return violations
}
