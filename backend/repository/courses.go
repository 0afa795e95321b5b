package repository

import (
	"context"
	"strings"

	"lms/backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Courses is the course data store: courses, their modules and lessons, and enrollments.
type Courses struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCourses(db *gorm.DB, log *zap.Logger) *Courses {
	return &Courses{db: db, log: log.With(zap.String("repo", "Courses"))}
}

// Tree loads a course with its modules and lessons. Sorting by the explicit order
// fields is left to the caller.
func (r *Courses) Tree(ctx context.Context, courseID uuid.UUID) (*models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).
		Preload("Modules").
		Preload("Modules.Lessons").
		First(&course, "id = ?", courseID).Error
	if err != nil {
		return nil, fetchErr("course", err)
	}
	return &course, nil
}

func (r *Courses) ListPublished(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).
		Where("status = ?", models.CoursePublished).
		Order("created_at desc").
		Find(&courses).Error; err != nil {
		return nil, fetchErr("courses", err)
	}
	return courses, nil
}

func (r *Courses) ListForInstructor(ctx context.Context, instructorID uuid.UUID) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).
		Where("instructor_id = ?", instructorID).
		Order("created_at desc").
		Find(&courses).Error; err != nil {
		return nil, fetchErr("courses", err)
	}
	return courses, nil
}

func (r *Courses) ListEnrolled(ctx context.Context, userID uuid.UUID) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).
		Joins("JOIN user_enrollments ON user_enrollments.course_id = courses.id").
		Where("user_enrollments.user_id = ?", userID).
		Order("user_enrollments.enrolled_at desc").
		Find(&courses).Error; err != nil {
		return nil, fetchErr("enrollments", err)
	}
	return courses, nil
}

func (r *Courses) IsEnrolled(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error; err != nil {
		return false, fetchErr("enrollments", err)
	}
	return count > 0, nil
}

// Enroll is idempotent. Only published courses accept enrollments.
func (r *Courses) Enroll(ctx context.Context, userID, courseID uuid.UUID) error {
	var course models.Course
	if err := r.db.WithContext(ctx).
		First(&course, "id = ? AND status = ?", courseID, models.CoursePublished).Error; err != nil {
		return fetchErr("course", err)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Enrollment{UserID: userID, CourseID: courseID}).Error
}

func (r *Courses) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Omit("Modules").Create(course).Error
}

func (r *Courses) Get(ctx context.Context, courseID uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, "id = ?", courseID).Error; err != nil {
		return nil, fetchErr("course", err)
	}
	return &course, nil
}

func (r *Courses) AddModule(ctx context.Context, module *models.Module) error {
	return r.db.WithContext(ctx).Omit("Lessons").Create(module).Error
}

// ModuleCourse returns the course owning a module.
func (r *Courses) ModuleCourse(ctx context.Context, moduleID uuid.UUID) (*models.Course, error) {
	var module models.Module
	if err := r.db.WithContext(ctx).First(&module, "id = ?", moduleID).Error; err != nil {
		return nil, fetchErr("module", err)
	}
	return r.Get(ctx, module.CourseID)
}

func (r *Courses) AddLesson(ctx context.Context, lesson *models.Lesson) error {
	return r.db.WithContext(ctx).Create(lesson).Error
}

// Stats counts enrollments and per-lesson completions for a course.
func (r *Courses) Stats(ctx context.Context, courseID uuid.UUID) (*models.CourseStats, error) {
	stats := &models.CourseStats{CourseID: courseID}
	if err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("course_id = ?", courseID).
		Count(&stats.Enrolled).Error; err != nil {
		return nil, fetchErr("enrollments", err)
	}

	if err := r.db.WithContext(ctx).Model(&models.Lesson{}).
		Select("lessons.id AS lesson_id, lessons.title, lessons.lesson_type AS type, COUNT(user_progress.completed_at) AS completions").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Joins("LEFT JOIN user_progress ON user_progress.lesson_id = lessons.id").
		Where("modules.course_id = ?", courseID).
		Group("lessons.id, lessons.title, lessons.lesson_type, modules.module_order, lessons.lesson_order").
		Order("modules.module_order, lessons.lesson_order").
		Scan(&stats.Lessons).Error; err != nil {
		return nil, fetchErr("lesson stats", err)
	}
	return stats, nil
}

type CourseQuery struct {
	Search string
	// Sort is "newest" or "popularity" (the default).
	Sort string
}

type CourseListing struct {
	models.Course
	Enrollments int64 `json:"enrollments"`
}

// Search lists published courses matching q, with their enrollment counts.
func (r *Courses) Search(ctx context.Context, q CourseQuery) ([]CourseListing, error) {
	enrollments := "(SELECT COUNT(*) FROM user_enrollments WHERE user_enrollments.course_id = courses.id)"
	query := r.db.WithContext(ctx).Model(&models.Course{}).
		Select("courses.*, " + enrollments + " AS enrollments").
		Where("status = ?", models.CoursePublished)

	if s := strings.ToLower(strings.TrimSpace(q.Search)); s != "" {
		like := "%" + s + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	switch q.Sort {
	case "newest":
		query = query.Order("created_at DESC")
	default:
		query = query.Order(enrollments + " DESC").Order("created_at DESC")
	}

	out := make([]CourseListing, 0)
	if err := query.Scan(&out).Error; err != nil {
		return nil, fetchErr("courses", err)
	}
	return out, nil
}
