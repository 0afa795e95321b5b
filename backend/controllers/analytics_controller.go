package controllers

import (
	"errors"

	"lms/backend/repository"
	"lms/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AnalyticsController struct {
	Courses *repository.Courses
	Log     *zap.Logger
}

func NewAnalyticsController(courses *repository.Courses, log *zap.Logger) *AnalyticsController {
	return &AnalyticsController{Courses: courses, Log: log.With(zap.String("controller", "analytics"))}
}

// GetCourseAnalytics godoc
// @Summary Course analytics
// @Description Enrolled students and completions per lesson, in course order
// @Tags instructor
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /instructor/courses/{id}/analytics [get]
func (ac *AnalyticsController) GetCourseAnalytics(c *fiber.Ctx) error {
	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	course, err := ac.Courses.Get(c.UserContext(), courseID)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.NotFound(c, "Course not found")
	}
	if err != nil {
		ac.Log.Error("load course", zap.Error(err))
		return utils.InternalServerError(c, "Could not query database")
	}
	if !canEdit(c, course) {
		return utils.Forbidden(c, "Not the course instructor")
	}

	stats, err := ac.Courses.Stats(c.UserContext(), courseID)
	if err != nil {
		ac.Log.Error("course stats", zap.String("course_id", courseID.String()), zap.Error(err))
		return utils.InternalServerError(c, "Failed to fetch course analytics")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"course":    fiber.Map{"id": course.ID, "title": course.Title, "status": course.Status},
		"analytics": stats,
	})
}
