package main

import (
	"os"
	"os/signal"
	"syscall"

	"prismatics/internal/adapters/config"
	"prismatics/internal/adapters/errors/noop"
	"prismatics/internal/adapters/errors/sentry"
	"prismatics/internal/bootstrap"
	"prismatics/pkg/errors"
	"prismatics/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Wire the dependency graph
	container, err := bootstrap.New(cfg, log, errorTracker)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	serverErr := container.Start()

	// Wait for shutdown signal or fatal server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infof("Received %s, shutting down...", sig)
	case err := <-serverErr:
		log.Errorf("Server failed: %v", err)
	}

	container.Shutdown()
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}
