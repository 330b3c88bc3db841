package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/classtrack/portal-api/internal/bus"
	"github.com/classtrack/portal-api/internal/config"
	"github.com/classtrack/portal-api/internal/database"
	"github.com/classtrack/portal-api/internal/handler"
	"github.com/classtrack/portal-api/internal/middleware"
	"github.com/classtrack/portal-api/internal/router"
	"github.com/classtrack/portal-api/internal/service"
	"github.com/classtrack/portal-api/internal/session"
	"github.com/classtrack/portal-api/pkg/classtrack"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	// NATS is optional; without it grade events still travel over redis.
	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL,
			nats.Name(cfg.AppName),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	sessions := session.NewStore(redisClient, cfg.SessionTTL, logger)

	upstream, err := classtrack.New(classtrack.Config{
		BaseURL:        cfg.UpstreamBaseURL,
		Timeout:        cfg.UpstreamTimeout,
		OnUnauthorized: sessions.OnUnauthorized,
		Logger:         logger,
	})
	if err != nil {
		log.Fatalf("failed to create upstream client: %v", err)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := bus.New(redisClient, natsConn, "portal", logger)
	events.Start(runCtx)

	validate := validator.New(validator.WithRequiredStructEnabled())

	gradingService := service.NewGradingService(upstream, sessions, redisClient, cfg.WorkspaceCacheTTL, events, logger)
	studentService := service.NewStudentPortalService(upstream, logger)
	violationService := service.NewViolationService(upstream, logger)
	adminService := service.NewAdminDashboardService(upstream, redisClient, cfg.DashboardCacheTTL, cfg.LiveBoardTTL, logger)
	sessionService := service.NewSessionService(upstream, sessions, logger)

	saveLimiter := middleware.RateLimit("grade-save", cfg.SaveRateLimit, cfg.SaveRateWindow)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSOrigins,
	})
	router.Register(app, cfg, router.Dependencies{
		SessionHandler:   handler.NewSessionHandler(sessionService, logger),
		StudentHandler:   handler.NewStudentHandler(studentService, logger),
		GradingHandler:   handler.NewGradingHandler(gradingService, validate, saveLimiter, logger),
		ViolationHandler: handler.NewViolationHandler(violationService, logger),
		AdminHandler:     handler.NewAdminHandler(adminService, validate, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(runCtx, app)
}

func waitForShutdown(ctx context.Context, app *fiber.App) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
