// Package server assembles repositories, services and handlers into a runnable fiber app.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/config"
	"github.com/noah-isme/testseries-api/internal/handler"
	"github.com/noah-isme/testseries-api/internal/middleware"
	"github.com/noah-isme/testseries-api/internal/repository"
	"github.com/noah-isme/testseries-api/internal/router"
	"github.com/noah-isme/testseries-api/internal/service"
	cloud "github.com/noah-isme/testseries-api/pkg/cloudinary"
	"github.com/noah-isme/testseries-api/pkg/localstore"
	"github.com/noah-isme/testseries-api/pkg/s3store"
	"github.com/noah-isme/testseries-api/pkg/storage"
)

// Infrastructure carries the connections the API runs on. Redis and NATS are optional.
type Infrastructure struct {
	DB    *gorm.DB
	Redis *redis.Client
	NATS  *nats.Conn
	Store storage.Store
}

// Server owns the fiber app and the background workers feeding it.
type Server struct {
	App       *fiber.App
	Hub       service.EventHub
	Catalog   service.CatalogService
	Dashboard service.StudentDashboardService
	logger    zerolog.Logger
}

// New wires every component against the provided infrastructure.
func New(cfg config.Config, infra Infrastructure, logger zerolog.Logger) (*Server, error) {
	if infra.DB == nil {
		return nil, fmt.Errorf("database connection must be provided")
	}
	if infra.Store == nil {
		return nil, fmt.Errorf("file store must be provided")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(infra.DB)
	testRepo := repository.NewTestRepository(infra.DB)
	uploadRepo := repository.NewUploadRepository(infra.DB)
	bookingRepo := repository.NewBookingRepository(infra.DB)
	activityRepo := repository.NewActivityRepository(infra.DB)
	notificationRepo := repository.NewNotificationRepository(infra.DB)
	analyticsRepo := repository.NewAdminAnalyticsRepository(infra.DB)

	hub := service.NewEventHub(infra.Redis, cfg.EventsChannel, infra.NATS, logger)
	activityService := service.NewActivityService(activityRepo, validate, logger)
	notificationService := service.NewNotificationService(notificationRepo, logger)
	deposit := service.NewFileDeposit(infra.Store, uploadRepo, submissionRepo, cfg.UploadMaxMB, logger)

	submissionService := service.NewSubmissionService(submissionRepo, testRepo, deposit, hub, activityService, validate, logger)
	gradingService := service.NewGradingService(submissionRepo, deposit, hub, activityService, validate, logger)
	approvalService := service.NewApprovalService(submissionRepo, hub, activityService, notificationService, logger)
	bookingService := service.NewBookingService(bookingRepo, hub, activityService, notificationService, validate, logger)
	streamService := service.NewReviewStreamService(hub, validate, logger)
	dashboardService := service.NewStudentDashboardService(submissionRepo, bookingRepo, infra.Redis, cfg.DashboardCacheTTL, logger)
	analyticsService := service.NewAdminAnalyticsService(analyticsRepo, infra.Redis, cfg.DashboardCacheTTL, logger)
	catalogService, err := service.NewCatalogService(testRepo, activityService, validate, cfg.SeedEnabled, cfg.SeedToken, logger)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler:       handler.NewSubmissionHandler(submissionService, deposit, logger),
		ReviewHandler:           handler.NewReviewHandler(submissionService, gradingService, approvalService, deposit, logger),
		BookingHandler:          handler.NewBookingHandler(bookingService, logger),
		CatalogHandler:          handler.NewCatalogHandler(catalogService, logger),
		FileHandler:             handler.NewFileHandler(deposit, logger),
		StreamHandler:           handler.NewStreamHandler(streamService, logger, cfg.StreamKeepAlive),
		NotificationHandler:     handler.NewNotificationHandler(notificationService, logger),
		StudentDashboardHandler: handler.NewStudentDashboardHandler(dashboardService, logger),
		AdminActivityHandler:    handler.NewAdminActivityHandler(activityService, logger),
		AdminAnalyticsHandler:   handler.NewAdminAnalyticsHandler(analyticsService, logger),
		HealthProbes:            healthProbes(infra),
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
		UploadLimiter:           middleware.RateLimit("upload", cfg.UploadRateLimit, time.Minute),
	})

	return &Server{
		App:       app,
		Hub:       hub,
		Catalog:   catalogService,
		Dashboard: dashboardService,
		logger:    logger.With().Str("component", "server").Logger(),
	}, nil
}

// Start launches the broker consumers and the dashboard invalidation listener. Both stop
// when ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	s.Hub.Start(ctx)
	go s.Dashboard.Run(ctx, s.Hub)
	s.logger.Debug().Msg("background workers started")
}

func healthProbes(infra Infrastructure) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := infra.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if infra.Redis != nil {
		probes["redis"] = func(ctx context.Context) error {
			return infra.Redis.Ping(ctx).Err()
		}
	}
	if infra.NATS != nil {
		probes["nats"] = func(context.Context) error {
			if !infra.NATS.IsConnected() {
				return fmt.Errorf("nats disconnected")
			}
			return nil
		}
	}
	return probes
}

// NewStore builds the file deposit backend selected by storage.driver.
func NewStore(cfg config.Config, logger zerolog.Logger) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverCloudinary:
		return cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
	case config.StorageDriverS3:
		return s3store.New(s3store.Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		}, logger)
	case config.StorageDriverLocal, "":
		return localstore.New(afero.NewOsFs(), cfg.StorageLocalDir, cfg.StoragePublicBaseURL, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
