package routes

import (
	"lms/backend/config"
	"lms/backend/controllers"
	"lms/backend/identity"
	"lms/backend/middleware"
	"lms/backend/models"
	"lms/backend/repository"
	"lms/backend/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, log *zap.Logger, revoked identity.Revocations, content storage.Content) {
	directory := repository.NewDirectory(db, log)
	courses := repository.NewCourses(db, log)
	progress := repository.NewProgress(db, log)
	activity := repository.NewActivity(db, log)

	provider := identity.NewLocal(db, identity.LocalConfig{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
	}, revoked, log)
	auth := middleware.NewAuth(provider, directory, log)

	// Auth routes
	authController := controllers.NewAuthController(provider, directory, log)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)
	app.Get("/api/auth/session", auth.Require(), authController.Session)
	app.Post("/api/auth/logout", auth.Require(), authController.Logout)

	// User routes
	userController := controllers.NewUserController(directory, log)
	app.Get("/api/user/profile", auth.Require(), userController.GetProfile)
	app.Put("/api/user/profile", auth.Require(), userController.UpdateProfile)

	coursesController := controllers.NewCoursesController(courses, progress, activity, content, log)
	app.Get("/api/courses", auth.Open(), coursesController.GetPublishedCourses)

	// Overview routes
	overviewController := controllers.NewOverviewController(courses, log)
	app.Get("/api/courses/search", overviewController.SearchCourses)

	// Student routes
	progressController := controllers.NewProgressController(progress, log)
	student := app.Group("/api/student", auth.Require(models.RoleStudent))
	student.Get("/courses", coursesController.GetEnrolledCourses)
	student.Post("/courses/:id/enroll", coursesController.Enroll)
	student.Get("/courses/:id", coursesController.GetCourseView)
	student.Post("/courses/:id/lessons/:lessonId/select", coursesController.SelectLesson)
	student.Post("/courses/:id/lessons/:lessonId/complete", coursesController.CompleteLesson)
	student.Post("/courses/:id/lessons/:lessonId/playback", coursesController.ReportPlayback)
	student.Get("/progress", progressController.GetProgressOverview)

	// Instructor routes
	instructor := app.Group("/api/instructor", auth.Require(models.RoleInstructor, models.RoleAdmin))
	instructor.Get("/courses", coursesController.GetInstructorCourses)
	instructor.Post("/courses", coursesController.CreateCourse)
	instructor.Post("/courses/:id/modules", coursesController.AddModule)
	instructor.Post("/modules/:moduleId/lessons", coursesController.AddLesson)

	analyticsController := controllers.NewAnalyticsController(courses, log)
	instructor.Get("/courses/:id/analytics", analyticsController.GetCourseAnalytics)

	// Admin routes
	adminController := controllers.NewAdminController(directory, activity, log)
	admin := app.Group("/api/admin", auth.Require(models.RoleAdmin))
	admin.Post("/users/:id/roles", adminController.GrantRole)
	admin.Get("/activity", adminController.GetRecentActivity)
}
