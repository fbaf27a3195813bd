package sheets

import (
	"context"

	"famfin/internal/core"
	"famfin/internal/health"
	"famfin/internal/payoff"
)

// ReportExporter publishes analytics results to an external reporting sink.
// Each export returns a reference to where the rows were written.
type ReportExporter interface {
	ExportSchedule(ctx context.Context, r ScheduleReport) (ref string, err error)
	ExportHealthScore(ctx context.Context, r HealthReport) (ref string, err error)
}

type ScheduleReport struct {
	FamilyID      string
	LiabilityID   string
	LiabilityName string
	Simulation    payoff.Simulation
}

type HealthReport struct {
	FamilyID string
	Period   core.Period
	Score    health.Score
}
