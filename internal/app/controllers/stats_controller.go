package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eralpk/studentreg/internal/app/models/dto"
	"github.com/eralpk/studentreg/internal/db"
	"github.com/eralpk/studentreg/internal/middleware"
	"github.com/eralpk/studentreg/internal/registry"
)

// StatsController serves registry-wide aggregates.
type StatsController struct {
	db db.DB
}

// NewStatsController creates a new StatsController
func NewStatsController(database db.DB) *StatsController {
	return &StatsController{db: database}
}

// GetStats returns counts, the ungraded-enrollment count, the average credit
// count and the courses-by-credits grouping in one response.
func (c *StatsController) GetStats(ctx *gin.Context) {
	session := registry.NewSession(c.db)
	defer session.Close()

	students, err := session.CountStudents(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	courses, err := session.CountCourses(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	enrollments, err := session.CountEnrollments(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ungraded, err := session.CountEnrollments(ctx, registry.EnrollmentUngraded())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	averageCredits, err := session.AverageCourseCredits(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	groups, err := session.GroupCoursesByCredits(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	stats := dto.StatsResponse{
		Students:            students,
		Courses:             courses,
		Enrollments:         enrollments,
		UngradedEnrollments: ungraded,
		AverageCredits:      averageCredits,
	}
	for _, group := range groups {
		stats.CoursesByCredits = append(stats.CoursesByCredits, dto.NewCreditsGroup(group.Credits, group.Count))
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      stats,
		Timestamp: time.Now(),
	})
}
