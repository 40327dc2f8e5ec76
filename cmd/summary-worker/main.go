package main

import (
	"context"
	"errors"
	"os"

	"expensetracker/internal/cli"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
	"expensetracker/internal/trace"
	"expensetracker/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger(applog.ComponentWorker, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(applog.ComponentWorker, cfg.LogLevel)

	logger.Info("Starting summary-worker", applog.FieldOperation, applog.OpStartup)

	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required for the summary worker")
		os.Exit(1)
	}

	if err := cli.MigrateStorage(logger, cfg); err != nil {
		os.Exit(1)
	}
	gw := cli.InitStorage(logger, cfg)
	defer gw.Close()

	amqpClient := cli.InitAMQP(logger, cfg)
	defer amqpClient.Close()

	transactions := services.NewTransactionService(storage.NewTransactionRepository(gw), nil)
	summaryWorker := worker.NewSummaryWorker(transactions, logger)
	tracer := trace.NewTracer()

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)
	ctx = applog.NewContext(ctx, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeTransactionEvents(gctx, cfg.WorkerPrefetch, tracer.Wrap(summaryWorker.HandleTransactionEvent))
	})
	g.Go(func() error {
		if err := gw.Ping(gctx); err != nil {
			return err
		}
		logger.Info("Storage reachable", applog.FieldDriver, gw.Driver())
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Summary worker stopped", "error", err)
		os.Exit(1)
	}

	<-done
	m := tracer.GetMetrics()
	logger.Info("Summary worker shutdown complete",
		applog.FieldOperation, applog.OpShutdown,
		"events", m.TotalEvents,
		"failed", m.FailedEvents)
}
