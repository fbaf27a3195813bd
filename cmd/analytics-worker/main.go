package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"famfin/internal/amqp"
	"famfin/internal/backend"
	"famfin/internal/cli"
	"famfin/internal/config"
	"famfin/internal/log"
	"famfin/internal/services"
	"famfin/internal/sheets"
	gsheet "famfin/internal/sheets/google"
	"famfin/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting analytics-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend",
			log.NewFields().WithError(err).WithErrorType(log.ErrorTypeDatabase).With("backend", cfg.DataBackend).ToSlice()...)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
	}()

	var exporter sheets.ReportExporter
	if cfg.GoogleSpreadsheetID != "" {
		gs, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.ReportSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
			os.Exit(1)
		}
		exporter = gs
		logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Health reports disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	var (
		amqpClient *amqp.Client
		alerts     worker.AlertPublisher
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(context.Background(), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPJobsQueue, cfg.AMQPAlertsQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client",
				log.NewFields().WithError(err).WithErrorType(log.ErrorTypeNetwork).ToSlice()...)
			os.Exit(1)
		}
		defer amqpClient.Close()
		alerts = amqpClient
	} else {
		logger.Info("AMQP disabled - jobs are not consumed and alerts are not published")
	}

	analytics := services.NewAnalyticsService(result.Store, logger)
	analyticsWorker := worker.NewAnalyticsWorker(analytics, alerts, exporter, cfg.AnalysisMonths, cfg.ScanConcurrency)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	if amqpClient != nil {
		go func() {
			if err := amqpClient.ConsumeJobs(ctx, analyticsWorker.HandleJob); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Job consumption failed", log.FieldError, err)
			}
		}()
	}

	scheduler := startScheduler(ctx, logger, cfg, analyticsWorker)

	cli.WaitForShutdown(ctx, done)
	if scheduler != nil {
		stopCtx := scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(cfg.ShutdownTimeout):
			logger.Warn("Scheduled scan still running at shutdown")
		}
	}
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
}

// startScheduler runs ScanAll on the SCAN_CRON schedule. SCAN_CRON=off
// disables periodic scans.
func startScheduler(ctx context.Context, logger *log.Logger, cfg *config.Config, w *worker.AnalyticsWorker) *cron.Cron {
	if cfg.ScanCron == "" {
		logger.Info("Scheduled scans disabled - SCAN_CRON is off")
		return nil
	}

	c := cron.New(cron.WithParser(config.ScanCronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(cfg.ScanCron, func() {
		summary, err := w.ScanAll(ctx)
		if err != nil {
			logger.Error("Scheduled scan finished with failures",
				log.NewFields().WithError(err).WithOperation(log.OpScan).WithCount(summary.Failed).ToSlice()...)
		}
	})
	if err != nil {
		// Validate already parsed the expression.
		logger.Error("Invalid SCAN_CRON", log.FieldError, err, "schedule", cfg.ScanCron)
		os.Exit(1)
	}
	c.Start()
	logger.Info("Scheduled scans enabled", "schedule", cfg.ScanCron, "concurrency", cfg.ScanConcurrency)
	return c
}
