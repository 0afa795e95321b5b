package repository

import (
	"context"
	"time"

	"lms/backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Progress persists per-lesson progress rows (user_progress).
type Progress struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewProgress(db *gorm.DB, log *zap.Logger) *Progress {
	return &Progress{db: db, log: log.With(zap.String("repo", "Progress"))}
}

// Completed returns the ids of completed lessons of one course.
func (r *Progress) Completed(ctx context.Context, userID, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = user_progress.lesson_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("user_progress.user_id = ? AND modules.course_id = ? AND user_progress.completed_at IS NOT NULL", userID, courseID).
		Pluck("user_progress.lesson_id", &ids).Error
	if err != nil {
		return nil, fetchErr("progress", err)
	}
	return ids, nil
}

// MarkCompleted sets completed_at and a full percentage. An existing completion time is kept.
func (r *Progress) MarkCompleted(ctx context.Context, userID, lessonID uuid.UUID) error {
	now := time.Now().UTC()
	row := models.LessonProgress{
		UserID:             userID,
		LessonID:           lessonID,
		ProgressPercentage: 100,
		CompletedAt:        &now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"progress_percentage": 100,
			"completed_at":        gorm.Expr("COALESCE(user_progress.completed_at, ?)", now),
			"updated_at":          now,
		}),
	}).Create(&row).Error
}

// RecordPercentage stores the highest percentage seen for a lesson.
func (r *Progress) RecordPercentage(ctx context.Context, userID, lessonID uuid.UUID, pct int) error {
	now := time.Now().UTC()
	row := models.LessonProgress{
		UserID:             userID,
		LessonID:           lessonID,
		ProgressPercentage: pct,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"progress_percentage": gorm.Expr("CASE WHEN user_progress.progress_percentage > ? THEN user_progress.progress_percentage ELSE ? END", pct, pct),
			"updated_at":          now,
		}),
	}).Create(&row).Error
}

// Resources are opened, never completed, so they do not count towards a course.
// Anything else scans as a playable type, including empty and unknown values.
const playableLesson = "(lessons.lesson_type IS NULL OR lessons.lesson_type <> ?)"

// Summary reports completion for every course the user is enrolled in.
func (r *Progress) Summary(ctx context.Context, userID uuid.UUID) ([]models.CourseProgress, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).
		Joins("JOIN user_enrollments ON user_enrollments.course_id = courses.id").
		Where("user_enrollments.user_id = ?", userID).
		Find(&courses).Error; err != nil {
		return nil, fetchErr("enrollments", err)
	}

	out := make([]models.CourseProgress, 0, len(courses))
	for _, course := range courses {
		var total, done int64
		if err := r.db.WithContext(ctx).Model(&models.Lesson{}).
			Joins("JOIN modules ON modules.id = lessons.module_id").
			Where("modules.course_id = ?", course.ID).
			Where(playableLesson, models.LessonResource.String()).
			Count(&total).Error; err != nil {
			return nil, fetchErr("lessons", err)
		}
		if err := r.db.WithContext(ctx).Model(&models.LessonProgress{}).
			Joins("JOIN lessons ON lessons.id = user_progress.lesson_id").
			Joins("JOIN modules ON modules.id = lessons.module_id").
			Where("user_progress.user_id = ? AND modules.course_id = ? AND user_progress.completed_at IS NOT NULL", userID, course.ID).
			Count(&done).Error; err != nil {
			return nil, fetchErr("progress", err)
		}

		cp := models.CourseProgress{
			CourseID:         course.ID,
			Title:            course.Title,
			TotalLessons:     total,
			LessonsCompleted: done,
		}
		if total > 0 {
			cp.CompletionRate = float64(done) / float64(total) * 100
		}
		out = append(out, cp)
	}
	return out, nil
}
