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

// CourseController handles course-related operations
type CourseController struct {
	db db.DB
}

// NewCourseController creates a new CourseController
func NewCourseController(database db.DB) *CourseController {
	return &CourseController{db: database}
}

// ListCourses returns courses matching the query parameters.
func (c *CourseController) ListCourses(ctx *gin.Context) {
	session := registry.NewSession(c.db)
	defer session.Close()

	var opts []registry.CourseOption
	if v := ctx.Query("code"); v != "" {
		opts = append(opts, registry.CourseCodeEquals(v))
	}
	if v := ctx.Query("title_contains"); v != "" {
		opts = append(opts, registry.CourseTitleContains(v))
	}
	if v := ctx.Query("credits"); v != "" {
		credits, err := strconv.Atoi(v)
		if err != nil {
			badRequest(ctx, "Invalid credits filter", err)
			return
		}
		opts = append(opts, registry.CourseCreditsEquals(credits))
	}
	switch ctx.Query("order") {
	case "code":
		opts = append(opts, registry.CourseOrderByCode())
	case "title":
		opts = append(opts, registry.CourseOrderByTitle())
	}

	courses, err := session.Courses(ctx, opts...)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	responses := make([]*dto.CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, dto.NewCourseResponse(course))
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      responses,
		Timestamp: time.Now(),
	})
}

// GetCourseByID returns a single course.
func (c *CourseController) GetCourseByID(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "Course ID")
	if !ok {
		return
	}

	session := registry.NewSession(c.db)
	defer session.Close()

	course, err := session.CourseByID(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.NewCourseResponse(course),
		Timestamp: time.Now(),
	})
}

// CreateCourse stages and persists a new course.
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req dto.CreateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "Invalid course data", err)
		return
	}

	session := registry.NewSession(c.db)
	defer session.Close()

	course := &models.Course{
		Code:        req.Code,
		Title:       req.Title,
		Description: req.Description,
		Credits:     req.Credits,
	}
	session.AddCourse(course)

	if _, err := session.Persist(ctx); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{
		Data:      dto.NewCourseResponse(course),
		Timestamp: time.Now(),
	})
}

// UpdateCourse loads a tracked course, applies the request fields and
// persists.
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "Course ID")
	if !ok {
		return
	}

	var req dto.UpdateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "Invalid course data", err)
		return
	}

	session := registry.NewSession(c.db)
	defer session.Close()

	course, err := session.CourseByID(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	course.Code = req.Code
	course.Title = req.Title
	course.Description = req.Description
	course.Credits = req.Credits

	if _, err := session.Persist(ctx); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.NewCourseResponse(course),
		Timestamp: time.Now(),
	})
}

// DeleteCourse deletes a course and, with it, all of its enrollments.
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "Course ID")
	if !ok {
		return
	}

	session := registry.NewSession(c.db)
	defer session.Close()

	course, err := session.CourseByID(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	session.RemoveCourse(course)

	if _, err := session.Persist(ctx); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.SuccessResponse{Message: "Course deleted"},
		Timestamp: time.Now(),
	})
}
