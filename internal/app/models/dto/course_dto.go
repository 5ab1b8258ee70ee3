package dto

import "github.com/eralpk/studentreg/internal/app/models"

// CourseResponse represents basic course information
type CourseResponse struct {
	ID          int64   `json:"id"`
	Code        string  `json:"code"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Credits     int     `json:"credits"`
}

// CreateCourseRequest represents course creation data
type CreateCourseRequest struct {
	Code        string  `json:"code" binding:"required,max=10"`
	Title       string  `json:"title" binding:"required,max=200"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=1000"`
	Credits     int     `json:"credits" binding:"required,gte=1,lte=6"`
}

// UpdateCourseRequest represents course update data
type UpdateCourseRequest struct {
	Code        string  `json:"code" binding:"required,max=10"`
	Title       string  `json:"title" binding:"required,max=200"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=1000"`
	Credits     int     `json:"credits" binding:"required,gte=1,lte=6"`
}

// NewCourseResponse maps a course entity onto the response shape.
func NewCourseResponse(course *models.Course) *CourseResponse {
	return &CourseResponse{
		ID:          course.ID,
		Code:        course.Code,
		Title:       course.Title,
		Description: course.Description,
		Credits:     course.Credits,
	}
}
