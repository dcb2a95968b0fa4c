package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcemesh/router/internal/api"
	"github.com/sourcemesh/router/internal/availability"
	"github.com/sourcemesh/router/internal/config"
	"github.com/sourcemesh/router/internal/directory"
	"github.com/sourcemesh/router/internal/events"
	"github.com/sourcemesh/router/internal/lookup"
	"github.com/sourcemesh/router/internal/routing"
	"github.com/sourcemesh/router/internal/scoring"
	"github.com/sourcemesh/router/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	// Event bus (optional)
	var eventsClient events.Client
	if cfg.Events.URL != "" {
		ec, err := events.NewNATSClient(ctx, cfg.Events.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to event bus, running without events", "error", err)
		} else {
			eventsClient = ec
			defer ec.Close()
			logger.Info("connected to event bus")
		}
	}

	// Buyer directory
	directoryClient := directory.NewHTTPClient(cfg.Directory.URL, cfg.Directory.Token)

	// Availability service
	availabilityClient := availability.NewHTTPClient(cfg.Availability.URL, cfg.ProbeTimeout())

	// Brand and geography lookup tables
	tables, err := lookup.LoadFile(cfg.Lookups.Path)
	if err != nil {
		logger.Warn("failed to load lookup tables, starting with empty tables", "path", cfg.Lookups.Path, "error", err)
		tables = lookup.NewStatic(nil, nil)
	}

	// Routing engine
	scorer := scoring.NewScorer(scoring.DefaultWeights(), tables)
	ranker := routing.NewRanker(directoryClient, availabilityClient, scorer, cfg.ProbeTimeout(), logger)
	engine := routing.New(db, ranker, eventsClient, cfg, logger)
	engine.Start(ctx)
	defer engine.Stop()
	logger.Info("routing engine started", "sweep_interval", cfg.SweepInterval())

	// API server
	router := api.NewRouter(db, engine, ranker, tables, cfg.Server.AdminToken, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(),
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
