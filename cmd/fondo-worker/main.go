package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fondo/internal/amqp"
	"fondo/internal/config"
	applog "fondo/internal/log"
	"fondo/internal/mirror"
	"fondo/internal/storage"
	"fondo/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting fondo-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The audit mirror is Google Sheets when configured, otherwise an
	// in-memory sink so the worker still drains the queue.
	var appender mirror.Appender
	if cfg.GoogleSpreadsheetID != "" {
		sheets, err := mirror.NewSheetsFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", applog.FieldError, err)
			os.Exit(1)
		}
		appender = sheets
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		appender = mirror.NewMemoryAppender()
		logger.Info("Google Sheets disabled - mirroring to memory sink")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	auditWorker := worker.NewAuditWorker(repo, appender, cfg.MirrorBatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// On startup, mirror anything the consumer missed while we were down.
	if err := auditWorker.ProcessUnmirrored(ctx); err != nil {
		logger.Error("Startup backfill failed", applog.FieldError, err)
		// Don't exit - the periodic scan will retry.
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := amqpClient.ConsumeAuditEvents(ctx, auditWorker.HandleAuditEvent); err != nil && err != context.Canceled {
			logger.Error("Audit event consumption failed", applog.FieldError, err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.MirrorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := auditWorker.ProcessUnmirrored(ctx); err != nil {
					logger.Error("Periodic backfill failed", applog.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
