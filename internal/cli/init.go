// Package cli provides common initialization shared by cmd/expensetracker
// and cmd/summary-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"

	"github.com/joho/godotenv"
)

// SetupLogger creates the component logger at the given level and makes it
// the process default.
func SetupLogger(component string, level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Component = component
	cfg.Output = os.Stderr
	lc := config.Config{LogLevel: level}
	cfg.Level = lc.SlogLevel()

	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// MigrateStorage applies pending schema migrations to the configured store.
func MigrateStorage(logger *applog.Logger, cfg *config.Config) error {
	sc := cfg.Storage()
	if err := storage.RunMigrations(sc); err != nil {
		logger.Error("Failed to run migrations", "error", err,
			applog.FieldOperation, applog.OpMigrate, applog.FieldDriver, sc.Driver)
		return err
	}
	logger.Info("Migrations applied", applog.FieldOperation, applog.OpMigrate, applog.FieldDriver, sc.Driver)
	return nil
}

// InitStorage opens the gateway for the configured store. It does not touch
// the schema; see MigrateStorage. Exits the process on failure.
func InitStorage(logger *applog.Logger, cfg *config.Config) *storage.DBGateway {
	sc := cfg.Storage()
	gw, err := storage.Open(sc)
	if err != nil {
		logger.Error("Failed to open storage", "error", err, applog.FieldDriver, sc.Driver)
		os.Exit(1)
	}
	logger.Debug("Storage opened", applog.FieldDriver, sc.Driver)
	return gw
}

// InitAMQP connects to the broker when one is configured. It returns nil
// when events are disabled.
func InitAMQP(logger *applog.Logger, cfg *config.Config) *amqp.Client {
	if !cfg.EventsEnabled() {
		logger.Debug("AMQP disabled - no AMQP_URL provided")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	return client
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown, "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}
