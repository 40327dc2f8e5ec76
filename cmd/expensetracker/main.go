package main

import (
	"context"
	"fmt"
	"os"

	"expensetracker/internal/cli"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger(applog.ComponentCLI, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(applog.ComponentCLI, cfg.LogLevel)

	gw := cli.InitStorage(logger, cfg)
	defer gw.Close()

	var publisher services.EventPublisher
	if amqpClient := cli.InitAMQP(logger, cfg); amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	a := &app{
		users:        services.NewUserService(storage.NewUserRepository(gw)),
		categories:   services.NewCategoryService(storage.NewCategoryRepository(gw)),
		transactions: services.NewTransactionService(storage.NewTransactionRepository(gw), publisher),
		pinger:       gw,
		migrate:      func(context.Context) error { return cli.MigrateStorage(logger, cfg) },
		log:          applog.NewStructuredLogger(logger),
		out:          os.Stdout,
	}

	ctx := applog.NewContext(context.Background(), logger)
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		gw.Close()
		os.Exit(1)
	}
}
