package middleware

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eralpk/studentreg/internal/app/models/dto"
	"github.com/eralpk/studentreg/internal/pkg/apperrors"
)

// HandleAPIError maps data-layer errors onto HTTP responses. Controllers call
// it for every error coming back from a session.
func HandleAPIError(c *gin.Context, err error) {
	var validationErr *apperrors.ValidationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(400, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed").
				WithDetails(validationErr.Violations),
			Timestamp: time.Now(),
		})
	case errors.Is(err, apperrors.ErrValidationFailed):
		c.JSON(400, dto.APIResponse{
			Error:     dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed"),
			Timestamp: time.Now(),
		})
	case errors.Is(err, apperrors.ErrStudentNotFound):
		c.JSON(404, dto.APIResponse{
			Error:     dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Student not found"),
			Timestamp: time.Now(),
		})
	case errors.Is(err, apperrors.ErrCourseNotFound):
		c.JSON(404, dto.APIResponse{
			Error:     dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Course not found"),
			Timestamp: time.Now(),
		})
	case errors.Is(err, apperrors.ErrEnrollmentNotFound):
		c.JSON(404, dto.APIResponse{
			Error:     dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Enrollment not found"),
			Timestamp: time.Now(),
		})
	case errors.Is(err, apperrors.ErrDuplicateEnrollment):
		c.JSON(409, dto.APIResponse{
			Error:     dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, "Student is already enrolled in this course"),
			Timestamp: time.Now(),
		})
	case errors.Is(err, apperrors.ErrEnrollmentParentMissing):
		c.JSON(409, dto.APIResponse{
			Error:     dto.NewErrorDetail(dto.ErrorCodeConstraintViolation, "Enrollment references a missing student or course"),
			Timestamp: time.Now(),
		})
	case errors.Is(err, apperrors.ErrConstraintViolation):
		c.JSON(409, dto.APIResponse{
			Error:     dto.NewErrorDetail(dto.ErrorCodeConstraintViolation, "Constraint violation"),
			Timestamp: time.Now(),
		})
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		c.JSON(503, dto.APIResponse{
			Error:     dto.NewErrorDetail(dto.ErrorCodeStoreOffline, "Backing store unavailable"),
			Timestamp: time.Now(),
		})
	default:
		c.JSON(500, dto.APIResponse{
			Error:     dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error"),
			Timestamp: time.Now(),
		})
	}
}
