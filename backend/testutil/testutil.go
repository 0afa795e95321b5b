// Package testutil provides in-memory databases and seed data for package tests.
package testutil

import (
	"context"
	"testing"

	"lms/backend/models"
	"lms/backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const Password = "password"

func Logger(tb testing.TB) *zap.Logger {
	tb.Helper()
	return zaptest.NewLogger(tb)
}

// DB returns a migrated in-memory SQLite database private to the test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("test db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := utils.Migrate(db); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return db
}

// SeedUser creates a user with profile and roles. The password is Password.
func SeedUser(tb testing.TB, db *gorm.DB, email string, roles ...models.Role) *models.User {
	tb.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("hash password: %v", err)
	}
	u := &models.User{Email: email, PasswordHash: string(hash)}
	ctx := context.Background()
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	if err := db.WithContext(ctx).Create(&models.Profile{ID: u.ID, FullName: email}).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	for _, r := range roles {
		if err := db.WithContext(ctx).Create(&models.RoleAssignment{UserID: u.ID, Role: r}).Error; err != nil {
			tb.Fatalf("seed role: %v", err)
		}
	}
	return u
}

// LessonSpec describes a lesson to seed.
type LessonSpec struct {
	Title string
	Type  models.LessonType
	Order int
	URL   string
}

// SeedCourse creates a published course with one module per entry of modules.
func SeedCourse(tb testing.TB, db *gorm.DB, instructorID *uuid.UUID, modules ...[]LessonSpec) *models.Course {
	tb.Helper()

	ctx := context.Background()
	course := &models.Course{
		Title:        "CA Foundation",
		Description:  "Principles and practice of accounting",
		Status:       models.CoursePublished,
		InstructorID: instructorID,
	}
	if err := db.WithContext(ctx).Omit("Modules").Create(course).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	for i, lessons := range modules {
		m := models.Module{CourseID: course.ID, Title: "module", Order: i + 1}
		if err := db.WithContext(ctx).Omit("Lessons").Create(&m).Error; err != nil {
			tb.Fatalf("seed module: %v", err)
		}
		for _, spec := range lessons {
			l := models.Lesson{
				ModuleID:   m.ID,
				Title:      spec.Title,
				Type:       spec.Type,
				Order:      spec.Order,
				ContentURL: spec.URL,
			}
			if err := db.WithContext(ctx).Create(&l).Error; err != nil {
				tb.Fatalf("seed lesson: %v", err)
			}
			m.Lessons = append(m.Lessons, l)
		}
		course.Modules = append(course.Modules, m)
	}
	return course
}

// LessonID finds a seeded lesson by title.
func LessonID(tb testing.TB, course *models.Course, title string) uuid.UUID {
	tb.Helper()
	for _, m := range course.Modules {
		for _, l := range m.Lessons {
			if l.Title == title {
				return l.ID
			}
		}
	}
	tb.Fatalf("lesson %q not seeded", title)
	return uuid.Nil
}
