package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"vibedojo-ledger/config"
	"vibedojo-ledger/handlers"
	"vibedojo-ledger/logger"
	"vibedojo-ledger/middleware"
	"vibedojo-ledger/services"
	"vibedojo-ledger/store"
	"vibedojo-ledger/utils"
	"vibedojo-ledger/workers"
)

func main() {
	cfg, dotenv := config.Load()

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logg.Sync()

	if !dotenv {
		logg.Info("⚠️ no .env file found, reading environment variables directly")
	}
	if err := cfg.Validate(); err != nil {
		logg.Fatal("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DatabaseURL, logg)
	if err != nil {
		logg.Fatal("database", "error", err)
	}
	if err := store.Migrate(ctx, db); err != nil {
		logg.Fatal("migration", "error", err)
	}

	// --- Core services ---
	curriculum := services.NewCurriculum()
	awards := services.NewAwardEngine(db, logg, cfg.StoreTimeout)
	streaks := services.NewStreakTracker(db, logg, cfg.StoreTimeout)
	detector := services.NewTransitionDetector(db, curriculum, logg)
	profileService := services.NewProfileService(db, logg, cfg.StoreTimeout)
	progressService := services.NewProgressService(db, curriculum, cfg.StoreTimeout)
	badgeService := services.NewBadgeService(db, cfg.StoreTimeout)
	notificationService := services.NewNotificationService(db, logg, cfg.StoreTimeout)
	dashboardService := services.NewDashboardService(db, streaks, profileService, badgeService,
		cfg.HeatmapCacheSize, cfg.HeatmapCacheTTL, logg, cfg.StoreTimeout)
	authClient := services.NewAuthServiceClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseJWTSecret, logg)

	// --- Background side effects ---
	dispatcher := workers.NewDispatcher(cfg.DispatchWorkers, cfg.DispatchQueue, 2*cfg.StoreTimeout, logg)

	community := services.NewCommunityService(db, awards, dispatcher, notificationService, logg, cfg.StoreTimeout)
	completion := services.NewCompletionService(db, curriculum, awards, detector, community, streaks, logg, cfg.StoreTimeout)
	community.SetHeatmapInvalidator(dashboardService)
	completion.SetHeatmapInvalidator(dashboardService)

	discord, err := workers.NewDiscordAnnouncer(cfg.DiscordWebhookURL, logg)
	if err != nil {
		logg.Warn("discord announcements disabled", "error", err)
	}
	if discord != nil {
		completion.SetSideEffects(dispatcher, notificationService, discord)
		defer discord.Close(context.Background())
	} else {
		completion.SetSideEffects(dispatcher, notificationService, nil)
	}

	// --- Ledger reconciliation ---
	var uploader workers.ReportUploader
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Uploader(ctx, cfg.R2)
		if err != nil {
			logg.Warn("R2 reports disabled", "error", err)
		} else {
			uploader = r2
		}
	}
	reconciler := workers.NewReconcileWorker(db, cfg.ReconcileRepair, uploader, logg)
	sched, err := services.StartScheduler(ctx, logg, services.ScheduledJob{
		Name:     "ledger-reconcile",
		Interval: cfg.ReconcileInterval,
		Run: func(ctx context.Context) error {
			_, err := reconciler.Run(ctx)
			return err
		},
	})
	if err != nil {
		logg.Fatal("scheduler", "error", err)
	}

	// --- HTTP ---
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logg))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOriginsList(), ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Registered ahead of the gateway check: health probes and browser EventSource calls
	// do not pass through the gateway.
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	handlers.SetupNotificationStreamRoute(app, logg, notificationService, authClient)

	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayServiceToken, logg))

	handlers.SetupPublicRoutes(app, curriculum, badgeService)
	handlers.SetupProgressionRoutes(app, logg, profileService, progressService, badgeService, dashboardService)
	handlers.SetupChapterRoutes(app, logg, progressService, completion)
	handlers.SetupStreakRoutes(app, logg, streaks, awards, cfg.DebugEndpoints)
	handlers.SetupCommunityRoutes(app, logg, community)
	handlers.SetupNotificationRoutes(app, logg, notificationService)
	handlers.SetupAdminRoutes(app, logg, reconciler)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logg.Error("server error", "error", err)
			stop()
		}
	}()

	logg.Info("✅ server running", "port", cfg.Port, "debug_endpoints", cfg.DebugEndpoints)
	logg.Info("✅ ledger reconcile scheduled", "interval", cfg.ReconcileInterval.String(), "repair", cfg.ReconcileRepair)
	logg.Info("✅ CORS configured", "origins", cfg.AllowedOriginsList())

	<-ctx.Done()
	logg.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logg.Warn("http shutdown", "error", err)
	}
	if err := sched.Shutdown(); err != nil {
		logg.Warn("scheduler shutdown", "error", err)
	}
	dispatcher.Close()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
