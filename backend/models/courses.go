package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

type Course struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string       `gorm:"not null" json:"title"`
	Description  string       `json:"description"`
	Status       CourseStatus `gorm:"default:draft" json:"status"`
	InstructorID *uuid.UUID   `gorm:"type:uuid" json:"instructor_id,omitempty"`
	ThumbnailURL string       `json:"thumbnail_url"`
	Modules      []Module     `json:"modules,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (c *Course) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Module struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	Title     string    `gorm:"not null" json:"title"`
	Order     int       `gorm:"column:module_order" json:"order"`
	Lessons   []Lesson  `json:"lessons,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Module) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type Lesson struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"module_id"`
	Title           string     `gorm:"not null" json:"title"`
	Description     string     `json:"description"`
	Type            LessonType `gorm:"column:lesson_type" json:"type"`
	ContentURL      string     `json:"content_url"`
	DurationSeconds int        `json:"duration_seconds"`
	Order           int        `gorm:"column:lesson_order" json:"order"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (l *Lesson) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// LessonType discriminates how a lesson is consumed.
type LessonType uint8

const (
	LessonVideo LessonType = iota
	LessonYouTube
	LessonResource
)

func (t LessonType) String() string {
	switch t {
	case LessonVideo:
		return "video"
	case LessonYouTube:
		return "youtube"
	case LessonResource:
		return "resource"
	default:
		return fmt.Sprintf("lesson_type(%d)", uint8(t))
	}
}

// Playable reports whether completion is driven by a player.
func (t LessonType) Playable() bool {
	return t == LessonVideo || t == LessonYouTube
}

func ParseLessonType(s string) (LessonType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "video":
		return LessonVideo, nil
	case "youtube":
		return LessonYouTube, nil
	case "resource":
		return LessonResource, nil
	}
	return 0, fmt.Errorf("unknown lesson type %q", s)
}

func (t LessonType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *LessonType) UnmarshalText(b []byte) error {
	parsed, err := ParseLessonType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t LessonType) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan reads unrecognised stored values as youtube-style playable lessons.
func (t *LessonType) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into LessonType", src)
	}
	parsed, err := ParseLessonType(s)
	if err != nil {
		parsed = LessonYouTube
	}
	*t = parsed
	return nil
}

func (LessonType) GormDataType() string {
	return "string"
}

type Enrollment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment" json:"user_id"`
	CourseID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment" json:"course_id"`
	EnrolledAt time.Time `gorm:"autoCreateTime" json:"enrolled_at"`
}

func (Enrollment) TableName() string {
	return "user_enrollments"
}

func (e *Enrollment) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
