package controllers

import (
	"lms/backend/repository"
	"lms/backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type OverviewController struct {
	Courses *repository.Courses
	Log     *zap.Logger
}

func NewOverviewController(courses *repository.Courses, log *zap.Logger) *OverviewController {
	return &OverviewController{Courses: courses, Log: log.With(zap.String("controller", "overview"))}
}

// SearchCourses godoc
// @Summary Search the catalogue
// @Description Published courses whose title or description contains ?search=, sorted by popularity or newest
// @Tags courses
// @Produce json
// @Param search query string false "Text to match"
// @Param sort query string false "popularity or newest"
// @Success 200 {object} utils.SuccessResponse
// @Router /courses/search [get]
func (oc *OverviewController) SearchCourses(c *fiber.Ctx) error {
	courses, err := oc.Courses.Search(c.UserContext(), repository.CourseQuery{
		Search: c.Query("search"),
		Sort:   c.Query("sort", "popularity"),
	})
	if err != nil {
		oc.Log.Error("search courses", zap.Error(err))
		return utils.InternalServerError(c, "Failed to fetch courses")
	}
	return utils.Success(c, fiber.StatusOK, courses)
}
