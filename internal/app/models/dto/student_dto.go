package dto

import (
	"time"

	"github.com/eralpk/studentreg/internal/app/models"
)

// StudentResponse represents basic student information
type StudentResponse struct {
	ID          int64                 `json:"id"`
	FirstName   string                `json:"firstName"`
	LastName    string                `json:"lastName"`
	FullName    string                `json:"fullName"`
	Email       string                `json:"email"`
	DateOfBirth string                `json:"dateOfBirth" example:"2000-05-15"`
	Age         int                   `json:"age"`
	Enrollments []*EnrollmentResponse `json:"enrollments,omitempty"`
}

// CreateStudentRequest represents student creation data
type CreateStudentRequest struct {
	FirstName   string `json:"firstName" binding:"required,max=100"`
	LastName    string `json:"lastName" binding:"required,max=100"`
	Email       string `json:"email" binding:"required,email,max=200"`
	DateOfBirth string `json:"dateOfBirth" binding:"required" example:"2000-05-15"`
}

// UpdateStudentRequest represents student update data
type UpdateStudentRequest struct {
	FirstName   string `json:"firstName" binding:"required,max=100"`
	LastName    string `json:"lastName" binding:"required,max=100"`
	Email       string `json:"email" binding:"required,email,max=200"`
	DateOfBirth string `json:"dateOfBirth" binding:"required" example:"2000-05-15"`
}

// NewStudentResponse maps a student entity onto the response shape.
func NewStudentResponse(student *models.Student) *StudentResponse {
	resp := &StudentResponse{
		ID:          student.ID,
		FirstName:   student.FirstName,
		LastName:    student.LastName,
		FullName:    student.FullName(),
		Email:       student.Email,
		DateOfBirth: student.DateOfBirth.Format(time.DateOnly),
		Age:         student.Age(),
	}
	for _, enrollment := range student.Enrollments {
		resp.Enrollments = append(resp.Enrollments, NewEnrollmentResponse(enrollment))
	}
	return resp
}
