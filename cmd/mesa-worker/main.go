package main

import (
	"context"
	"os"
	"time"

	"mesa/internal/amqp"
	"mesa/internal/cache"
	"mesa/internal/cli"
	applog "mesa/internal/log"
	"mesa/internal/services"
	"mesa/internal/sheets"
	gsheet "mesa/internal/sheets/google"
	mem "mesa/internal/sheets/memory"
	"mesa/internal/worker"
)

const debounceKeys = 1024

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.BootstrapLogger())
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting mesa-worker")
	if !cfg.AMQPEnabled {
		logger.Error("mesa-worker consumes ledger events and requires AMQP_ENABLED=true")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var exporter sheets.ProjectionExporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		exporter = client
	} else {
		logger.Info("Google Sheets disabled - projections are kept in memory only")
		exporter = mem.New()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// The worker only reads; a nil publisher keeps it from emitting events.
	projection := services.NewProjectionService(repo, services.NewRecurrenceResolver(repo, nil))

	debounce := cache.NewDebouncer(debounceKeys, cfg.ExportDebounce)
	caches := cache.NewManager()
	caches.Register(debounce)
	caches.StartCleanup(5 * time.Minute)
	defer caches.Stop()

	exportWorker := worker.NewExportWorker(projection, exporter, debounce)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := exportWorker.Run(ctx, amqpClient); err != nil {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
