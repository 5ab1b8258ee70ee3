package dto

import (
	"time"

	"github.com/eralpk/studentreg/internal/app/models"
)

// EnrollmentResponse represents basic enrollment information
type EnrollmentResponse struct {
	ID         int64            `json:"id"`
	StudentID  int64            `json:"studentId"`
	CourseID   int64            `json:"courseId"`
	Grade      *string          `json:"grade,omitempty"`
	EnrolledAt time.Time        `json:"enrolledAt"`
	Student    *StudentResponse `json:"student,omitempty"`
	Course     *CourseResponse  `json:"course,omitempty"`
}

// CreateEnrollmentRequest represents enrollment creation data
type CreateEnrollmentRequest struct {
	StudentID  int64      `json:"studentId" binding:"required,gt=0"`
	CourseID   int64      `json:"courseId" binding:"required,gt=0"`
	Grade      *string    `json:"grade,omitempty" binding:"omitempty,max=2"`
	EnrolledAt *time.Time `json:"enrolledAt,omitempty"`
}

// UpdateEnrollmentGradeRequest represents grade update data; a null grade
// clears the recorded grade.
type UpdateEnrollmentGradeRequest struct {
	Grade *string `json:"grade" binding:"omitempty,max=2"`
}

// StatsResponse aggregates registry-wide figures for the stats endpoint.
type StatsResponse struct {
	Students            int64          `json:"students"`
	Courses             int64          `json:"courses"`
	Enrollments         int64          `json:"enrollments"`
	UngradedEnrollments int64          `json:"ungradedEnrollments"`
	AverageCredits      float64        `json:"averageCredits"`
	CoursesByCredits    []CreditsGroup `json:"coursesByCredits"`
}

// CreditsGroup mirrors registry.CreditGroup without importing it into
// the dto package.
type CreditsGroup struct {
	Credits int   `json:"credits"`
	Count   int64 `json:"count"`
}

// NewCreditsGroup builds one coursesByCredits bucket.
func NewCreditsGroup(credits int, count int64) CreditsGroup {
	return CreditsGroup{Credits: credits, Count: count}
}

// NewEnrollmentResponse maps an enrollment entity onto the response shape.
func NewEnrollmentResponse(enrollment *models.Enrollment) *EnrollmentResponse {
	resp := &EnrollmentResponse{
		ID:         enrollment.ID,
		StudentID:  enrollment.StudentID,
		CourseID:   enrollment.CourseID,
		Grade:      enrollment.Grade,
		EnrolledAt: enrollment.EnrolledAt,
	}
	if enrollment.Course != nil {
		resp.Course = NewCourseResponse(enrollment.Course)
	}
	if enrollment.Student != nil {
		resp.Student = &StudentResponse{
			ID:          enrollment.Student.ID,
			FirstName:   enrollment.Student.FirstName,
			LastName:    enrollment.Student.LastName,
			FullName:    enrollment.Student.FullName(),
			Email:       enrollment.Student.Email,
			DateOfBirth: enrollment.Student.DateOfBirth.Format(time.DateOnly),
			Age:         enrollment.Student.Age(),
		}
	}
	return resp
}
