package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eralpk/studentreg/internal/app/models"
	"github.com/eralpk/studentreg/internal/app/models/dto"
	"github.com/eralpk/studentreg/internal/db"
	"github.com/eralpk/studentreg/internal/middleware"
	"github.com/eralpk/studentreg/internal/registry"
)

// EnrollmentController handles enrollment-related operations
type EnrollmentController struct {
	db db.DB
}

// NewEnrollmentController creates a new EnrollmentController
func NewEnrollmentController(database db.DB) *EnrollmentController {
	return &EnrollmentController{db: database}
}

// ListEnrollments returns enrollments matching the query parameters.
func (c *EnrollmentController) ListEnrollments(ctx *gin.Context) {
	session := registry.NewSession(c.db)
	defer session.Close()

	var opts []registry.EnrollmentOption
	if v := ctx.Query("student_id"); v != "" {
		studentID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(ctx, "Invalid student_id filter", err)
			return
		}
		opts = append(opts, registry.EnrollmentForStudent(studentID))
	}
	if v := ctx.Query("course_id"); v != "" {
		courseID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(ctx, "Invalid course_id filter", err)
			return
		}
		opts = append(opts, registry.EnrollmentForCourse(courseID))
	}
	if ctx.Query("ungraded") == "true" {
		opts = append(opts, registry.EnrollmentUngraded())
	}
	switch ctx.Query("include") {
	case "course":
		opts = append(opts, registry.EnrollmentWithCourse())
	case "student":
		opts = append(opts, registry.EnrollmentWithStudent())
	case "student,course", "course,student":
		opts = append(opts, registry.EnrollmentWithStudent(), registry.EnrollmentWithCourse())
	}
	if ctx.Query("order") == "date" {
		opts = append(opts, registry.EnrollmentOrderByDate())
	}

	enrollments, err := session.Enrollments(ctx, opts...)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	responses := make([]*dto.EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		responses = append(responses, dto.NewEnrollmentResponse(enrollment))
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      responses,
		Timestamp: time.Now(),
	})
}

// CreateEnrollment enrolls a student in a course. Enrolling the same student
// in the same course twice is rejected with a conflict.
func (c *EnrollmentController) CreateEnrollment(ctx *gin.Context) {
	var req dto.CreateEnrollmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "Invalid enrollment data", err)
		return
	}

	session := registry.NewSession(c.db)
	defer session.Close()

	enrollment := &models.Enrollment{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		Grade:     req.Grade,
	}
	if req.EnrolledAt != nil {
		enrollment.EnrolledAt = *req.EnrolledAt
	}
	session.AddEnrollment(enrollment)

	if _, err := session.Persist(ctx); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{
		Data:      dto.NewEnrollmentResponse(enrollment),
		Timestamp: time.Now(),
	})
}

// UpdateEnrollmentGrade sets or clears the recorded grade.
func (c *EnrollmentController) UpdateEnrollmentGrade(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "Enrollment ID")
	if !ok {
		return
	}

	var req dto.UpdateEnrollmentGradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "Invalid grade data", err)
		return
	}

	session := registry.NewSession(c.db)
	defer session.Close()

	enrollment, err := session.EnrollmentByID(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	enrollment.Grade = req.Grade

	if _, err := session.Persist(ctx); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.NewEnrollmentResponse(enrollment),
		Timestamp: time.Now(),
	})
}

// DeleteEnrollment removes a single enrollment.
func (c *EnrollmentController) DeleteEnrollment(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "Enrollment ID")
	if !ok {
		return
	}

	session := registry.NewSession(c.db)
	defer session.Close()

	enrollment, err := session.EnrollmentByID(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	session.RemoveEnrollment(enrollment)

	if _, err := session.Persist(ctx); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.SuccessResponse{Message: "Enrollment deleted"},
		Timestamp: time.Now(),
	})
}
