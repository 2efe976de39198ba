package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/plaza/internal/adapters/http"
	mongoadapter "github.com/samirrijal/plaza/internal/adapters/mongo"
	natsadapter "github.com/samirrijal/plaza/internal/adapters/nats"
	"github.com/samirrijal/plaza/internal/adapters/postgres"
	"github.com/samirrijal/plaza/internal/adapters/valkey"
	"github.com/samirrijal/plaza/internal/core/locstream"
	"github.com/samirrijal/plaza/internal/core/usecases"
	"github.com/samirrijal/plaza/internal/pkg/config"
	"github.com/samirrijal/plaza/internal/pkg/logging"
	"github.com/samirrijal/plaza/internal/pkg/metrics"
	"github.com/samirrijal/plaza/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("plaza-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Postgres (users, sessions)
	db, err := postgres.New(ctx, cfg.Database.DSN(),
		postgres.WithMaxConns(cfg.Database.MaxConns),
		postgres.WithMinConns(cfg.Database.MinConns),
		postgres.WithConnLifetime(cfg.Database.ConnLifetime()),
	)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Mongo (catalog)
	mdb, err := mongoadapter.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = mdb.Close(closeCtx)
	}()

	catalogRepo := mongoadapter.NewCatalogRepo(mdb)
	if err := catalogRepo.EnsureIndexes(ctx); err != nil {
		slog.Warn("catalog indexes", "error", err)
	}

	// Valkey (cache, preferences)
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	// NATS location provider
	provider, err := natsadapter.NewLocationProvider(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer provider.Close()

	// Use cases
	catalogSvc := usecases.NewCatalogService(catalogRepo, cache)
	authSvc := usecases.NewAuthService(postgres.NewSessionRepo(db))
	prefSvc := usecases.NewPreferenceService(valkey.NewPreferences(cache))
	trackingSvc := usecases.NewTrackingService(provider, cache,
		usecases.WithRetry(cfg.Location.RetryDelay(), cfg.Location.MaxRetries),
		usecases.WithLastKnownTTL(cfg.Location.LastKnownTTL),
		usecases.WithStreamOptions(
			locstream.WithBuffer(cfg.Location.Buffer),
			locstream.WithLogger(logger),
		),
	)

	deps := &http.Dependencies{
		Catalog:          catalogSvc,
		Auth:             authSvc,
		Preferences:      prefSvc,
		Tracking:         trackingSvc,
		LocationDefaults: cfg.Location.RequestConfig(),
		OpenAPIPath:      cfg.Server.OpenAPIPath,
		DB:               db,
		Mongo:            mdb,
		Cache:            cache,
		NATS:             provider,
	}

	// Keep configured sources warm for /v1/location/:source/last
	if len(cfg.Location.FollowSources) > 0 {
		go func() {
			if err := trackingSvc.Warm(ctx, cfg.Location.RequestConfig(), cfg.Location.FollowSources); err != nil {
				slog.Error("location followers stopped", "error", err)
			}
		}()
	}

	// Pool gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Plaza API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
