package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"famfin/internal/amqp"
	"famfin/internal/anomaly"
	"famfin/internal/core"
	"famfin/internal/health"
	"famfin/internal/sheets"
)

// Analytics is the part of the analytics service the worker drives.
type Analytics interface {
	DetectAnomalies(ctx context.Context, familyID string, w core.Window) ([]anomaly.Anomaly, error)
	ComputeHealthScore(ctx context.Context, familyID string, w core.Window) (health.Score, error)
	FamilyIDs(ctx context.Context) ([]string, error)
}

type AlertPublisher interface {
	PublishAlert(ctx context.Context, msg *amqp.AnomalyAlertMessage) error
}

// AnalyticsWorker runs anomaly scans and health reports, either per job
// message or for every family on a schedule.
type AnalyticsWorker struct {
	analytics   Analytics
	alerts      AlertPublisher
	exporter    sheets.ReportExporter
	months      int
	concurrency int
	now         func() time.Time
}

// ScanSummary counts the outcome of one ScanAll pass.
type ScanSummary struct {
	Families  int
	Alerted   int
	Anomalies int
	Failed    int
}

// NewAnalyticsWorker builds a worker. alerts and exporter may be nil; the
// matching outputs are then skipped.
func NewAnalyticsWorker(analytics Analytics, alerts AlertPublisher, exporter sheets.ReportExporter, months, concurrency int) *AnalyticsWorker {
	if months < 1 {
		months = 6
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &AnalyticsWorker{
		analytics:   analytics,
		alerts:      alerts,
		exporter:    exporter,
		months:      months,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// HandleJob processes one job message from AMQP.
func (w *AnalyticsWorker) HandleJob(ctx context.Context, msg *amqp.AnalyticsJobMessage) error {
	slog.InfoContext(ctx, "Processing analytics job",
		"component", "worker", "job_id", msg.ID, "family_id", msg.FamilyID, "job", msg.Job)

	months := msg.Months
	if months == 0 {
		months = w.months
	}

	switch msg.Job {
	case amqp.JobAnomalyScan:
		_, err := w.ScanFamily(ctx, msg.FamilyID, msg.ID, months)
		return err
	case amqp.JobHealthReport:
		return w.ReportHealth(ctx, msg.FamilyID, months)
	default:
		return fmt.Errorf("%w: unknown job %q", amqp.ErrInvalidMessage, msg.Job)
	}
}

// ScanFamily detects anomalies and publishes an alert when any are found.
func (w *AnalyticsWorker) ScanFamily(ctx context.Context, familyID, jobID string, months int) (int, error) {
	now := w.now()
	win, err := core.TrailingMonths(now, months)
	if err != nil {
		return 0, err
	}

	found, err := w.analytics.DetectAnomalies(ctx, familyID, win)
	if err != nil {
		return 0, fmt.Errorf("detect anomalies for %s: %w", familyID, err)
	}
	if len(found) == 0 {
		slog.DebugContext(ctx, "No anomalies found", "component", "worker", "family_id", familyID)
		return 0, nil
	}

	if w.alerts == nil {
		slog.WarnContext(ctx, "Alert publisher not available, skipping anomaly alert",
			"component", "worker", "family_id", familyID, "count", len(found))
		return len(found), nil
	}
	if err := w.alerts.PublishAlert(ctx, amqp.NewAnomalyAlertMessage(familyID, jobID, found, now)); err != nil {
		return len(found), fmt.Errorf("publish alert for %s: %w", familyID, err)
	}
	return len(found), nil
}

// ReportHealth computes the health score and exports it.
func (w *AnalyticsWorker) ReportHealth(ctx context.Context, familyID string, months int) error {
	if w.exporter == nil {
		slog.WarnContext(ctx, "No report exporter configured, skipping health report",
			"component", "worker", "family_id", familyID)
		return nil
	}

	now := w.now()
	win, err := core.TrailingMonths(now, months)
	if err != nil {
		return err
	}
	score, err := w.analytics.ComputeHealthScore(ctx, familyID, win)
	if err != nil {
		return fmt.Errorf("compute health score for %s: %w", familyID, err)
	}
	ref, err := w.exporter.ExportHealthScore(ctx, sheets.HealthReport{
		FamilyID: familyID,
		Period:   core.PeriodOf(now),
		Score:    score,
	})
	if err != nil {
		return fmt.Errorf("export health score: %w", err)
	}
	slog.InfoContext(ctx, "Health report exported",
		"component", "worker", "family_id", familyID, "total", score.Total, "ref", ref)
	return nil
}

// ScanAll scans every family with at most concurrency scans in flight. A
// failing family does not stop the others; all failures are returned joined.
func (w *AnalyticsWorker) ScanAll(ctx context.Context) (ScanSummary, error) {
	ids, err := w.analytics.FamilyIDs(ctx)
	if err != nil {
		return ScanSummary{}, err
	}

	var (
		alerted, anomalies, failed int64
		errs                       = make([]error, len(ids))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			n, err := w.ScanFamily(gctx, id, "", w.months)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				errs[i] = err
				slog.ErrorContext(gctx, "Family scan failed", "component", "worker", "family_id", id, "error", err)
				return nil
			}
			if n > 0 {
				atomic.AddInt64(&alerted, 1)
				atomic.AddInt64(&anomalies, int64(n))
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := ScanSummary{
		Families:  len(ids),
		Alerted:   int(alerted),
		Anomalies: int(anomalies),
		Failed:    int(failed),
	}
	slog.InfoContext(ctx, "Anomaly scan finished",
		"component", "worker",
		"families", summary.Families,
		"alerted", summary.Alerted,
		"anomalies", summary.Anomalies,
		"failed", summary.Failed)
	return summary, errors.Join(errs...)
}
