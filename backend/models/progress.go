package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LessonProgress struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_lesson" json:"user_id"`
	LessonID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_lesson" json:"lesson_id"`
	ProgressPercentage int        `json:"progress_percentage"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (LessonProgress) TableName() string {
	return "user_progress"
}

func (p *LessonProgress) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CourseProgress summarises a learner's completion of one course.
type CourseProgress struct {
	CourseID         uuid.UUID `json:"course_id"`
	Title            string    `json:"title"`
	TotalLessons     int64     `json:"total_lessons"`
	LessonsCompleted int64     `json:"lessons_completed"`
	CompletionRate   float64   `json:"completion_rate"`
}

type ActivityLog struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ActorUserID      *uuid.UUID     `gorm:"type:uuid" json:"actor_user_id,omitempty"`
	Action           string         `gorm:"not null" json:"action"`
	TargetEntityType string         `json:"target_entity_type"`
	TargetEntityID   string         `json:"target_entity_id"`
	Details          datatypes.JSON `json:"details"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "admin_activity_logs"
}

func (a *ActivityLog) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// CourseStats is the instructor view of a course's learners.
type CourseStats struct {
	CourseID uuid.UUID     `json:"course_id"`
	Enrolled int64         `json:"enrolled"`
	Lessons  []LessonStats `json:"lessons"`
}

type LessonStats struct {
	LessonID    uuid.UUID  `json:"lesson_id"`
	Title       string     `json:"title"`
	Type        LessonType `json:"type"`
	Completions int64      `json:"completions"`
}
