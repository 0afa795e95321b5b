package controllers

import (
	"errors"
	"strings"

	"lms/backend/middleware"
	"lms/backend/models"
	"lms/backend/progression"
	"lms/backend/repository"
	"lms/backend/storage"
	"lms/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	studentHome  = "/student"
	lockedNotice = "Complete the previous lesson to unlock this one."
)

var errNotEnrolled = errors.New("not enrolled in this course")

type CoursesController struct {
	Courses  *repository.Courses
	Progress *repository.Progress
	Activity *repository.Activity
	Content  storage.Content
	Log      *zap.Logger
}

func NewCoursesController(courses *repository.Courses, progress *repository.Progress, activity *repository.Activity, content storage.Content, log *zap.Logger) *CoursesController {
	return &CoursesController{
		Courses:  courses,
		Progress: progress,
		Activity: activity,
		Content:  content,
		Log:      log.With(zap.String("controller", "courses")),
	}
}

// GetPublishedCourses godoc
// @Summary List published courses
// @Tags courses
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /courses [get]
func (cc *CoursesController) GetPublishedCourses(c *fiber.Ctx) error {
	courses, err := cc.Courses.ListPublished(c.UserContext())
	if err != nil {
		cc.Log.Error("list published courses", zap.Error(err))
		return utils.InternalServerError(c, "Could not query database")
	}

	enrolled := make(map[uuid.UUID]bool)
	if principal := middleware.Principal(c); principal != nil {
		mine, err := cc.Courses.ListEnrolled(c.UserContext(), principal.ID)
		if err != nil {
			cc.Log.Error("list enrolled courses", zap.String("user_id", principal.ID.String()), zap.Error(err))
			return utils.InternalServerError(c, "Could not query database")
		}
		for _, course := range mine {
			enrolled[course.ID] = true
		}
	}

	out := make([]catalogueEntry, 0, len(courses))
	for _, course := range courses {
		out = append(out, catalogueEntry{Course: course, Enrolled: enrolled[course.ID]})
	}
	return utils.Success(c, fiber.StatusOK, out)
}

// catalogueEntry flags the courses the caller is already enrolled in.
type catalogueEntry struct {
	models.Course
	Enrolled bool `json:"enrolled"`
}

// GetEnrolledCourses lists the caller's enrollments.
func (cc *CoursesController) GetEnrolledCourses(c *fiber.Ctx) error {
	principal := middleware.Principal(c)
	courses, err := cc.Courses.ListEnrolled(c.UserContext(), principal.ID)
	if err != nil {
		cc.Log.Error("list enrolled courses", zap.String("user_id", principal.ID.String()), zap.Error(err))
		return utils.InternalServerError(c, "Could not query database")
	}
	return utils.Success(c, fiber.StatusOK, courses)
}

func (cc *CoursesController) Enroll(c *fiber.Ctx) error {
	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}
	principal := middleware.Principal(c)

	err = cc.Courses.Enroll(c.UserContext(), principal.ID, courseID)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.NotFound(c, "Course not found")
	}
	if err != nil {
		cc.Log.Error("enroll", zap.String("course_id", courseID.String()), zap.Error(err))
		return utils.InternalServerError(c, "Could not enroll")
	}
	cc.record(c, principal.ID, "course.enrolled", "course", courseID.String(), nil)
	return utils.Success(c, fiber.StatusOK, fiber.Map{"course_id": courseID, "enrolled": true})
}

// GetCourseView godoc
// @Summary Course player view
// @Description Returns the ordered modules and lessons with lock and completion state
// @Tags student
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Router /student/courses/{id} [get]
func (cc *CoursesController) GetCourseView(c *fiber.Ctx) error {
	tracker, err := cc.tracker(c)
	if err != nil {
		return cc.courseFailure(c, err)
	}
	tracker.InitialSelection()
	return utils.Success(c, fiber.StatusOK, courseView(tracker))
}

func (cc *CoursesController) SelectLesson(c *fiber.Ctx) error {
	tracker, err := cc.tracker(c)
	if err != nil {
		return cc.courseFailure(c, err)
	}
	lessonID, err := uuid.Parse(c.Params("lessonId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	sel, err := tracker.Select(c.UserContext(), lessonID)
	if err != nil {
		return cc.lessonFailure(c, err)
	}
	return utils.Success(c, fiber.StatusOK, sel)
}

// CompleteLesson marks a video or youtube lesson finished.
func (cc *CoursesController) CompleteLesson(c *fiber.Ctx) error {
	tracker, err := cc.tracker(c)
	if err != nil {
		return cc.courseFailure(c, err)
	}
	lessonID, err := uuid.Parse(c.Params("lessonId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	next, err := tracker.MarkComplete(c.UserContext(), lessonID)
	if err != nil {
		return cc.lessonFailure(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"completed": lessonID,
		"advanced":  next,
		"modules":   tracker.Outline(),
	})
}

type PlaybackRequest struct {
	Percent int `json:"percent" example:"42" minimum:"0" maximum:"100"`
}

// ReportPlayback records how much of a video has been watched.
func (cc *CoursesController) ReportPlayback(c *fiber.Ctx) error {
	var req PlaybackRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	tracker, err := cc.tracker(c)
	if err != nil {
		return cc.courseFailure(c, err)
	}
	lessonID, err := uuid.Parse(c.Params("lessonId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	res, err := tracker.ReportPlayback(c.UserContext(), lessonID, req.Percent)
	if err != nil {
		return cc.lessonFailure(c, err)
	}
	return utils.Success(c, fiber.StatusOK, res)
}

// GetInstructorCourses lists courses owned by the caller.
func (cc *CoursesController) GetInstructorCourses(c *fiber.Ctx) error {
	principal := middleware.Principal(c)
	courses, err := cc.Courses.ListForInstructor(c.UserContext(), principal.ID)
	if err != nil {
		cc.Log.Error("list instructor courses", zap.Error(err))
		return utils.InternalServerError(c, "Could not query database")
	}
	return utils.Success(c, fiber.StatusOK, courses)
}

type CreateCourseRequest struct {
	Title        string `json:"title" example:"CA Foundation"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`
	Status       string `json:"status" enums:"draft,published,archived"`
}

// CreateCourse godoc
// @Summary Create a course
// @Tags instructor
// @Accept json
// @Produce json
// @Param course body CreateCourseRequest true "Course data"
// @Success 201 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /instructor/courses [post]
func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if strings.TrimSpace(req.Title) == "" {
		return utils.ValidationError(c, map[string]string{"title": "required"})
	}
	status := models.CourseDraft
	switch models.CourseStatus(req.Status) {
	case "":
	case models.CourseDraft, models.CoursePublished, models.CourseArchived:
		status = models.CourseStatus(req.Status)
	default:
		return utils.ValidationError(c, map[string]string{"status": "must be draft, published or archived"})
	}

	principal := middleware.Principal(c)
	course := &models.Course{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		Status:       status,
		InstructorID: &principal.ID,
	}
	if err := cc.Courses.Create(c.UserContext(), course); err != nil {
		cc.Log.Error("create course", zap.Error(err))
		return utils.InternalServerError(c, "Could not create course")
	}
	cc.record(c, principal.ID, "course.created", "course", course.ID.String(), map[string]any{"title": course.Title})
	return utils.Created(c, course)
}

type AddModuleRequest struct {
	Title string `json:"title"`
	Order int    `json:"order"`
}

func (cc *CoursesController) AddModule(c *fiber.Ctx) error {
	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}
	var req AddModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if strings.TrimSpace(req.Title) == "" {
		return utils.ValidationError(c, map[string]string{"title": "required"})
	}

	course, err := cc.Courses.Get(c.UserContext(), courseID)
	if err != nil {
		return cc.ownedFailure(c, err)
	}
	if !canEdit(c, course) {
		return utils.Forbidden(c, "Not the course instructor")
	}

	module := &models.Module{CourseID: course.ID, Title: strings.TrimSpace(req.Title), Order: req.Order}
	if err := cc.Courses.AddModule(c.UserContext(), module); err != nil {
		cc.Log.Error("add module", zap.Error(err))
		return utils.InternalServerError(c, "Could not add module")
	}
	return utils.Created(c, module)
}

type AddLessonRequest struct {
	Title           string `json:"title" form:"title"`
	Description     string `json:"description" form:"description"`
	Type            string `json:"type" form:"type" enums:"video,youtube,resource"`
	ContentURL      string `json:"content_url" form:"content_url"`
	DurationSeconds int    `json:"duration_seconds" form:"duration_seconds"`
	Order           int    `json:"order" form:"order"`
}

// AddLesson godoc
// @Summary Add a lesson to a module
// @Description Accepts JSON, or a multipart form whose "file" part is uploaded to content storage
// @Tags instructor
// @Accept json,mpfd
// @Produce json
// @Param moduleId path string true "Module ID"
// @Success 201 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /instructor/modules/{moduleId}/lessons [post]
func (cc *CoursesController) AddLesson(c *fiber.Ctx) error {
	moduleID, err := uuid.Parse(c.Params("moduleId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid module ID")
	}
	var req AddLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse request body")
	}
	lessonType, err := models.ParseLessonType(req.Type)
	if err != nil {
		return utils.ValidationError(c, map[string]string{"type": err.Error()})
	}
	if strings.TrimSpace(req.Title) == "" {
		return utils.ValidationError(c, map[string]string{"title": "required"})
	}

	course, err := cc.Courses.ModuleCourse(c.UserContext(), moduleID)
	if err != nil {
		return cc.ownedFailure(c, err)
	}
	if !canEdit(c, course) {
		return utils.Forbidden(c, "Not the course instructor")
	}

	contentURL := req.ContentURL
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return utils.BadRequest(c, "Cannot read uploaded file")
		}
		defer f.Close()
		ref, err := cc.Content.Upload(c.UserContext(), fh.Filename, f, fh.Size, fh.Header.Get(fiber.HeaderContentType))
		if err != nil {
			cc.Log.Error("upload lesson content", zap.String("module_id", moduleID.String()), zap.Error(err))
			return utils.Error(c, fiber.StatusBadGateway, err)
		}
		contentURL = ref
	}

	lesson := &models.Lesson{
		ModuleID:        moduleID,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Type:            lessonType,
		ContentURL:      contentURL,
		DurationSeconds: req.DurationSeconds,
		Order:           req.Order,
	}
	if err := cc.Courses.AddLesson(c.UserContext(), lesson); err != nil {
		cc.Log.Error("add lesson", zap.Error(err))
		return utils.InternalServerError(c, "Could not add lesson")
	}
	cc.record(c, middleware.Principal(c).ID, "lesson.created", "lesson", lesson.ID.String(),
		map[string]any{"course_id": course.ID.String(), "type": lessonType.String()})
	return utils.Created(c, lesson)
}

// tracker loads the course tree and the caller's completions for :id.
func (cc *CoursesController) tracker(c *fiber.Ctx) (*progression.Tracker, error) {
	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, repository.ErrNotFound
	}
	ctx := c.UserContext()
	principal := middleware.Principal(c)

	course, err := cc.Courses.Tree(ctx, courseID)
	if err != nil {
		return nil, err
	}
	enrolled, err := cc.Courses.IsEnrolled(ctx, principal.ID, courseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, errNotEnrolled
	}
	done, err := cc.Progress.Completed(ctx, principal.ID, courseID)
	if err != nil {
		return nil, err
	}
	return progression.NewTracker(principal.ID, course, progression.NewCompletionSet(done...), cc.Progress, cc.Content, cc.Log), nil
}

func (cc *CoursesController) courseFailure(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "course not found", "back": studentHome})
	case errors.Is(err, errNotEnrolled):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "error": err.Error(), "back": studentHome})
	}
	cc.Log.Error("load course", zap.String("course_id", c.Params("id")), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "failed to load course", "back": studentHome})
}

func (cc *CoursesController) lessonFailure(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, progression.ErrLocked):
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{"success": false, "error": err.Error(), "notice": lockedNotice})
	case errors.Is(err, progression.ErrUnknownLesson):
		return utils.NotFound(c, err.Error())
	case errors.Is(err, progression.ErrNotPlayable):
		return utils.BadRequest(c, err.Error())
	}
	cc.Log.Error("lesson action failed", zap.String("lesson_id", c.Params("lessonId")), zap.Error(err))
	return utils.InternalServerError(c, "Could not update lesson progress")
}

func (cc *CoursesController) ownedFailure(c *fiber.Ctx, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return utils.NotFound(c, "Course not found")
	}
	cc.Log.Error("load course", zap.Error(err))
	return utils.InternalServerError(c, "Could not query database")
}

func (cc *CoursesController) record(c *fiber.Ctx, actor uuid.UUID, action, entityType, entityID string, details map[string]any) {
	if err := cc.Activity.Record(c.UserContext(), actor, action, entityType, entityID, details); err != nil {
		cc.Log.Warn("activity not recorded", zap.String("action", action), zap.Error(err))
	}
}

// canEdit allows the owning instructor and any admin.
func canEdit(c *fiber.Ctx, course *models.Course) bool {
	s := middleware.Session(c)
	if s.HasRole(models.RoleAdmin) {
		return true
	}
	p := s.State().Principal
	return course.InstructorID != nil && *course.InstructorID == p.ID
}

func courseView(t *progression.Tracker) fiber.Map {
	course := t.Course()
	return fiber.Map{
		"course": fiber.Map{
			"id":            course.ID,
			"title":         course.Title,
			"description":   course.Description,
			"thumbnail_url": course.ThumbnailURL,
		},
		"modules":  t.Outline(),
		"selected": t.Selected(),
	}
}
