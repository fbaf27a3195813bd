package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"famfin/internal/amqp"
	"famfin/internal/backend"
	"famfin/internal/cli"
	"famfin/internal/config"
	apphttp "famfin/internal/http"
	"famfin/internal/log"
	"famfin/internal/services"
	gsheet "famfin/internal/sheets/google"
)

// pinger is implemented by stores that can check their connection.
type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), "famfin")
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

	analytics := services.NewAnalyticsService(result.Store, logger)
	opts := []apphttp.Option{
		apphttp.WithLogger(logger),
		apphttp.WithDefaultMonths(cfg.AnalysisMonths),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
	}
	if p, ok := result.Store.(pinger); ok {
		opts = append(opts, apphttp.WithReadiness(p.Ping))
	}

	if cfg.GoogleSpreadsheetID != "" {
		exporter, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.ReportSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
			os.Exit(1)
		}
		opts = append(opts, apphttp.WithExporter(exporter))
		logger.Info("Report export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.ReportSheetName)
	} else {
		logger.Info("Report export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient := connectAMQP(logger, cfg)
	if amqpClient != nil {
		opts = append(opts, apphttp.WithJobPublisher(amqpClient))
	}

	srv := apphttp.NewServer(":"+cfg.Port, analytics, opts...)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting famfin server",
		"port", cfg.Port, "backend", cfg.DataBackend, "analysis_months", cfg.AnalysisMonths, log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	requests, limits := srv.Metrics()
	logger.Info("Server stopped gracefully",
		"total_requests", requests.TotalRequests,
		"server_errors", requests.ServerErrors,
		"rate_limited", limits.TotalHits)
}

// connectAMQP returns nil when no broker is configured or reachable; the job
// endpoint then answers 503 while every other route keeps working.
func connectAMQP(logger *log.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("Job queue disabled - no AMQP_URL provided")
		return nil
	}
	client, err := amqp.NewClient(context.Background(), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPJobsQueue, cfg.AMQPAlertsQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, job endpoint disabled",
			log.NewFields().WithError(err).WithErrorType(log.ErrorTypeNetwork).ToSlice()...)
		return nil
	}
	return client
}
