package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/boldreach/logistics-backend/api/routes"
	"github.com/boldreach/logistics-backend/internal/auth"
	"github.com/boldreach/logistics-backend/internal/locations"
	"github.com/boldreach/logistics-backend/internal/shipments"
	"github.com/boldreach/logistics-backend/internal/users"
	"github.com/boldreach/logistics-backend/pkg/auth/session"
	"github.com/boldreach/logistics-backend/pkg/config"
	"github.com/boldreach/logistics-backend/pkg/db"
	"github.com/boldreach/logistics-backend/pkg/logger"
	"github.com/boldreach/logistics-backend/pkg/mailer"
	"github.com/boldreach/logistics-backend/pkg/metrics"
	"github.com/boldreach/logistics-backend/pkg/migrate"
	"github.com/boldreach/logistics-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	mail := mailer.New(cfg.SMTP, logg)

	usersRepo := users.NewRepository(dbClient.DB())
	shipmentsRepo := shipments.NewRepository(dbClient.DB())
	locationsRepo := locations.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		Users:          usersRepo,
		ResetTokens:    auth.NewResetTokenRepository(dbClient.DB()),
		SessionManager: sessionManager,
		Mailer:         mail,
		Logger:         logg,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		AppBaseURL:     cfg.App.BaseURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	shipmentsService, err := shipments.NewService(shipmentsRepo, usersRepo, logg, cfg.Shipments.DeliveryDateChunkSize, cfg.Shipments.ExportMaxRows)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipment service", err)
		os.Exit(1)
	}

	locationsService, err := locations.NewService(locationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create location service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(usersRepo, mail, logg, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	mail.WithMetrics(metrics.NewMailMetrics(registry))

	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Registry:    registry,
		HTTPMetrics: httpMetrics,
		Sessions:    sessionManager,
		Auth:        authService,
		Shipments:   shipmentsService,
		Locations:   locationsService,
		Users:       usersService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
