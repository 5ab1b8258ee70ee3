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

// StudentController handles student-related operations
type StudentController struct {
	db db.DB
}

// NewStudentController creates a new StudentController
func NewStudentController(database db.DB) *StudentController {
	return &StudentController{db: database}
}

// studentOptionsFromQuery translates request query params into registry
// options. Unknown params are ignored.
func studentOptionsFromQuery(ctx *gin.Context) []registry.StudentOption {
	var opts []registry.StudentOption

	if v := ctx.Query("first_name_contains"); v != "" {
		opts = append(opts, registry.StudentFirstNameContains(v))
	}
	if v := ctx.Query("last_name_contains"); v != "" {
		opts = append(opts, registry.StudentLastNameContains(v))
	}
	if v := ctx.Query("enrolled_in"); v != "" {
		opts = append(opts, registry.StudentEnrolledIn(v))
	}

	switch ctx.Query("order") {
	case "lastName":
		opts = append(opts, registry.StudentOrderByLastName())
	case "firstName":
		opts = append(opts, registry.StudentOrderByFirstName())
	}

	switch ctx.Query("include") {
	case "enrollments":
		opts = append(opts, registry.StudentWithEnrollments())
	case "enrollments.course":
		opts = append(opts, registry.StudentWithEnrollmentCourses())
	}

	return opts
}

// ListStudents returns students matching the query parameters.
func (c *StudentController) ListStudents(ctx *gin.Context) {
	session := registry.NewSession(c.db)
	defer session.Close()

	students, err := session.Students(ctx, studentOptionsFromQuery(ctx)...)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	responses := make([]*dto.StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, dto.NewStudentResponse(student))
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      responses,
		Timestamp: time.Now(),
	})
}

// GetStudentByID returns a single student.
func (c *StudentController) GetStudentByID(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "Student ID")
	if !ok {
		return
	}

	session := registry.NewSession(c.db)
	defer session.Close()

	var opts []registry.StudentOption
	switch ctx.Query("include") {
	case "enrollments":
		opts = append(opts, registry.StudentWithEnrollments())
	case "enrollments.course":
		opts = append(opts, registry.StudentWithEnrollmentCourses())
	}

	student, err := session.StudentByID(ctx, id, opts...)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.NewStudentResponse(student),
		Timestamp: time.Now(),
	})
}

// CreateStudent stages and persists a new student.
func (c *StudentController) CreateStudent(ctx *gin.Context) {
	var req dto.CreateStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "Invalid student data", err)
		return
	}

	dateOfBirth, err := time.Parse(time.DateOnly, req.DateOfBirth)
	if err != nil {
		badRequest(ctx, "Invalid date of birth, expected YYYY-MM-DD", err)
		return
	}

	session := registry.NewSession(c.db)
	defer session.Close()

	student := &models.Student{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		DateOfBirth: dateOfBirth,
	}
	session.AddStudent(student)

	if _, err := session.Persist(ctx); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{
		Data:      dto.NewStudentResponse(student),
		Timestamp: time.Now(),
	})
}

// UpdateStudent loads a tracked student, applies the request fields and
// persists; the session's change tracker decides whether an update is needed.
func (c *StudentController) UpdateStudent(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "Student ID")
	if !ok {
		return
	}

	var req dto.UpdateStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "Invalid student data", err)
		return
	}

	dateOfBirth, err := time.Parse(time.DateOnly, req.DateOfBirth)
	if err != nil {
		badRequest(ctx, "Invalid date of birth, expected YYYY-MM-DD", err)
		return
	}

	session := registry.NewSession(c.db)
	defer session.Close()

	student, err := session.StudentByID(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Email = req.Email
	student.DateOfBirth = dateOfBirth

	if _, err := session.Persist(ctx); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.NewStudentResponse(student),
		Timestamp: time.Now(),
	})
}

// DeleteStudent deletes a student and, with it, all of its enrollments.
func (c *StudentController) DeleteStudent(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "Student ID")
	if !ok {
		return
	}

	session := registry.NewSession(c.db)
	defer session.Close()

	student, err := session.StudentByID(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	session.RemoveStudent(student)

	if _, err := session.Persist(ctx); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.SuccessResponse{Message: "Student deleted"},
		Timestamp: time.Now(),
	})
}

// parseIDParam parses the :id path parameter, answering 400 on bad input.
func parseIDParam(ctx *gin.Context, label string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+label)
		errorDetail = errorDetail.WithDetails(label + " must be a positive number")
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{Error: errorDetail, Timestamp: time.Now()})
		return 0, false
	}
	return id, true
}

// badRequest answers 400 with the given message and error details.
func badRequest(ctx *gin.Context, message string, err error) {
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, message)
	errorDetail = errorDetail.WithDetails(err.Error())
	ctx.JSON(http.StatusBadRequest, dto.APIResponse{Error: errorDetail, Timestamp: time.Now()})
}
