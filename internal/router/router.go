package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/testseries-api/internal/config"
	"github.com/noah-isme/testseries-api/internal/handler"
	"github.com/noah-isme/testseries-api/internal/middleware"
	"github.com/noah-isme/testseries-api/internal/observability"
	"github.com/noah-isme/testseries-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler       *handler.SubmissionHandler
	ReviewHandler           *handler.ReviewHandler
	BookingHandler          *handler.BookingHandler
	CatalogHandler          *handler.CatalogHandler
	FileHandler             *handler.FileHandler
	StreamHandler           *handler.StreamHandler
	NotificationHandler     *handler.NotificationHandler
	StudentDashboardHandler *handler.StudentDashboardHandler
	AdminActivityHandler    *handler.AdminActivityHandler
	AdminAnalyticsHandler   *handler.AdminAnalyticsHandler
	HealthProbes            map[string]handler.HealthProbe
	JWTMiddleware           fiber.Handler
	UploadLimiter           fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	var uploadLimiter []fiber.Handler
	if deps.UploadLimiter != nil {
		uploadLimiter = append(uploadLimiter, deps.UploadLimiter)
	}

	student := api.Group("/student", jwtMiddleware, middleware.RequireRole(service.RoleStudent))
	teacher := api.Group("/teacher", jwtMiddleware, middleware.RequireRole(service.RoleTeacher))
	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(service.RoleAdmin))
	authenticated := middleware.RequireRole(service.RoleStudent, service.RoleTeacher, service.RoleAdmin)

	if deps.CatalogHandler != nil {
		deps.CatalogHandler.Register(api.Group("/tests", jwtMiddleware, authenticated))
		deps.CatalogHandler.RegisterSeed(admin.Group("/tests"))
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(student.Group("/submissions"), uploadLimiter...)
	}

	if deps.ReviewHandler != nil {
		deps.ReviewHandler.RegisterTeacher(teacher, uploadLimiter...)
		deps.ReviewHandler.RegisterAdmin(admin)
	}

	if deps.BookingHandler != nil {
		deps.BookingHandler.RegisterStudent(student.Group("/bookings"))
		deps.BookingHandler.RegisterStaff(teacher.Group("/bookings"))
		deps.BookingHandler.RegisterStaff(admin.Group("/bookings"))
	}

	if deps.StudentDashboardHandler != nil {
		deps.StudentDashboardHandler.Register(student)
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(student.Group("/notifications"))
	}

	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activity"))
	}

	if deps.AdminAnalyticsHandler != nil {
		deps.AdminAnalyticsHandler.Register(admin.Group("/analytics"))
	}

	if deps.FileHandler != nil {
		deps.FileHandler.Register(api.Group("/files", jwtMiddleware, authenticated))
	}

	if deps.StreamHandler != nil {
		deps.StreamHandler.Register(api.Group("/events", jwtMiddleware, authenticated))
	}
}
