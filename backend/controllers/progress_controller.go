package controllers

import (
	"lms/backend/middleware"
	"lms/backend/repository"
	"lms/backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ProgressController struct {
	Progress *repository.Progress
	Log      *zap.Logger
}

func NewProgressController(progress *repository.Progress, log *zap.Logger) *ProgressController {
	return &ProgressController{Progress: progress, Log: log.With(zap.String("controller", "progress"))}
}

// GetProgressOverview godoc
// @Summary Get progress overview
// @Description Returns completion per enrolled course and overall totals
// @Tags progress
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /student/progress [get]
func (pc *ProgressController) GetProgressOverview(c *fiber.Ctx) error {
	principal := middleware.Principal(c)
	courses, err := pc.Progress.Summary(c.UserContext(), principal.ID)
	if err != nil {
		pc.Log.Error("progress summary", zap.String("user_id", principal.ID.String()), zap.Error(err))
		return utils.InternalServerError(c, "Could not query database")
	}

	var total, completed int64
	finished := 0
	for _, cp := range courses {
		total += cp.TotalLessons
		completed += cp.LessonsCompleted
		if cp.TotalLessons > 0 && cp.LessonsCompleted == cp.TotalLessons {
			finished++
		}
	}
	overall := 0.0
	if total > 0 {
		overall = float64(completed) / float64(total) * 100
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"courses":           courses,
		"courses_completed": finished,
		"lessons_total":     total,
		"lessons_completed": completed,
		"completion_rate":   overall,
	})
}
