package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"mesa/internal/cli"
	apphttp "mesa/internal/http"
	applog "mesa/internal/log"
	"mesa/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.BootstrapLogger())
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	events, closeEvents := cli.InitPublisher(logger, cfg)
	defer closeEvents()

	resolver := services.NewRecurrenceResolver(repo, events)
	srv := apphttp.NewServer(cfg, apphttp.Services{
		Workspaces: services.NewWorkspaceService(repo),
		Entries:    services.NewEntryGenerator(repo, events),
		Expenses:   services.NewExpenseService(repo, events),
		Incomes:    services.NewIncomeService(repo, events),
		Invoices:   services.NewInvoiceCycleManager(repo, events),
		Resolver:   resolver,
		Projection: services.NewProjectionService(repo, resolver),
	}, logger, repo.Ping)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting mesa server",
		"port", cfg.Port,
		"amqp", events != nil,
		"metrics", cfg.MetricsEnabled)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
