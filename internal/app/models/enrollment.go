package models

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/eralpk/studentreg/internal/pkg/apperrors"
)

// Enrollment links one student to one course. A nil grade means the course is
// not yet graded. The (StudentID, CourseID) pair is unique.
type Enrollment struct {
	ID         int64     `json:"id" db:"id"`
	StudentID  int64     `json:"studentId" db:"student_id"`
	CourseID   int64     `json:"courseId" db:"course_id"`
	Grade      *string   `json:"grade,omitempty" db:"grade" example:"A"` // Nullable
	EnrolledAt time.Time `json:"enrolledAt" db:"enrolled_at"`

	// Relations (populated by eager loading only)
	Student *Student `json:"student,omitempty"`
	Course  *Course  `json:"course,omitempty"`
}

// Graded reports whether a grade has been recorded.
func (e *Enrollment) Graded() bool {
	return e.Grade != nil
}

// Validate checks the enrollment's fields against the schema constraints and
// returns every violation found.
func (e *Enrollment) Validate() []apperrors.FieldViolation {
	var violations []apperrors.FieldViolation

	if e.StudentID <= 0 {
		violations = append(violations, apperrors.FieldViolation{
			Entity: "Enrollment", Field: "studentId", Message: "must reference a student",
		})
	}

	if e.CourseID <= 0 {
		violations = append(violations, apperrors.FieldViolation{
			Entity: "Enrollment", Field: "courseId", Message: "must reference a course",
		})
	}

	if e.Grade != nil && utf8.RuneCountInString(*e.Grade) > MaxGradeLength {
		violations = append(violations, apperrors.FieldViolation{
			Entity: "Enrollment", Field: "grade",
			Message: fmt.Sprintf("must be at most %d characters", MaxGradeLength),
		})
	}

	return violations
}
