package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	aggRepoPg "pulsetrack-api/internal/aggregate/adapters/postgres"
	aggUsecase "pulsetrack-api/internal/aggregate/core/usecase"
	"pulsetrack-api/internal/config"
	ingestHttp "pulsetrack-api/internal/ingest/adapters/http/fiber"
	ingestRepoPg "pulsetrack-api/internal/ingest/adapters/postgres"
	ingestDomain "pulsetrack-api/internal/ingest/core/domain"
	ingestUsecase "pulsetrack-api/internal/ingest/core/usecase"
	queryHttp "pulsetrack-api/internal/query/adapters/http/fiber"
	queryRepoPg "pulsetrack-api/internal/query/adapters/postgres"
	queryUsecase "pulsetrack-api/internal/query/core/usecase"
	"pulsetrack-api/internal/realtime"
	realtimeHttp "pulsetrack-api/internal/realtime/adapters/http/fiber"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	_ "pulsetrack-api/docs"
)

func main() {
	// Config
	cfg, err := config.New()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	siteIDs := make([]int64, 0, len(cfg.SiteIDs))
	for _, id := range cfg.SiteIDs {
		siteIDs = append(siteIDs, int64(id))
	}

	// DB connection
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		logrus.Fatalf("failed to open postgres: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		logrus.Fatalf("failed to ping postgres: %v", err)
	}

	// Adapter-level DB wrappers
	ingestDB := ingestRepoPg.NewSQLDB(db)
	aggDB := aggRepoPg.NewSQLDB(db)
	queryDB := queryRepoPg.NewSQLDB(db)

	if err := ingestRepoPg.EnsureSchema(context.Background(), ingestDB); err != nil {
		logrus.Fatalf("failed to ensure schema: %v", err)
	}

	// Repositories
	eventLog := ingestRepoPg.NewEventLogRepository(ingestDB)
	cursorRepository := aggRepoPg.NewCursorRepository(aggDB)
	analyticsRepository := queryRepoPg.NewAnalyticsRepository(queryDB, cfg.GoalEvent)

	// Live fan-out
	hub := realtime.NewHub()

	// Aggregation pipeline
	rollupStore := aggUsecase.NewRollupStore(cfg.BucketWidth, cfg.LateGrace, cfg.InactivityGap, cfg.HotWindow)
	sessionTracker := aggUsecase.NewSessionTracker(cfg.InactivityGap, cfg.LateGrace, ingestDomain.EventName(cfg.GoalEvent))
	aggregator := aggUsecase.NewAggregator(
		eventLog,
		cursorRepository,
		rollupStore,
		sessionTracker,
		hub,
		cfg.PollInterval,
		cfg.PollBatch,
		cfg.HotWindow,
	)
	if err := aggregator.Bootstrap(context.Background()); err != nil {
		logrus.Fatalf("aggregator bootstrap failed: %v", err)
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	go aggregator.Run(runCtx)

	// Dedup fast path
	dedup := ingestUsecase.NewDedupIndex(cfg.DedupTTL, cfg.DedupMaxEntries)
	go dedup.Run(runCtx.Done())

	// Usecases
	ingestUC := ingestUsecase.NewIngestEventUseCase(eventLog, dedup, siteIDs, cfg.MaxPropertiesBytes)
	analyticsUC := queryUsecase.NewAnalyticsUseCase(aggregator, analyticsRepository, cfg.BucketWidth)

	// HTTP (Fiber) app + handlers
	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: cfg.CORSAllowCredentials,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// ingest endpoints
	eventHandler := ingestHttp.NewEventHandler(ingestUC)
	api.Post("/events", eventHandler.TrackEvent)

	// analytics endpoints
	analyticsHandler := queryHttp.NewAnalyticsHandler(analyticsUC)
	api.Get("/analytics/overview", analyticsHandler.Overview)
	api.Get("/analytics/pages", analyticsHandler.PagePerformance)
	api.Get("/analytics/page-visits", analyticsHandler.PageVisits)
	api.Get("/analytics/click-rate", analyticsHandler.ClickRate)
	api.Get("/analytics/bounce-rate", analyticsHandler.BounceRate)
	api.Get("/analytics/conversion-rate", analyticsHandler.ConversionRate)
	api.Get("/analytics/retention-rate", analyticsHandler.RetentionRate)

	// websocket endpoints
	defaultSiteID := int64(1)
	if len(siteIDs) > 0 {
		defaultSiteID = siteIDs[0]
	}
	socketHandler := realtimeHttp.NewSocketHandler(hub)
	app.Use("/ws", socketHandler.Upgrade)
	app.Get("/ws", socketHandler.Serve(defaultSiteID))
	app.Get("/ws/:client_id", socketHandler.Serve(defaultSiteID))

	// Swagger
	app.Get("/docs/*", fiberSwagger.WrapHandler)

	// Graceful shutdown
	go func() {
		if err := app.Listen(cfg.Address); err != nil {
			logrus.Errorf("fiber stopped: %v", err)
		}
	}()

	logrus.Infof("server started on %s", cfg.Address)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	logrus.Info("shutting down...")
	cancelRun()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logrus.Errorf("fiber shutdown error: %v", err)
	}

	logrus.Info("server exiting")
}
