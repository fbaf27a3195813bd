package memory

import (
	"context"
	"fmt"
	"sync"

	"famfin/internal/sheets"
)

// Exporter records exported reports in memory. It backs the service when no
// spreadsheet is configured and doubles as a test sink.
type Exporter struct {
	mu        sync.Mutex
	schedules []sheets.ScheduleReport
	health    []sheets.HealthReport
}

var _ sheets.ReportExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

func (e *Exporter) ExportSchedule(_ context.Context, r sheets.ScheduleReport) (string, error) {
	if r.LiabilityID == "" {
		return "", fmt.Errorf("export schedule: missing liability id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.schedules = append(e.schedules, r)
	return fmt.Sprintf("mem:schedule:%d", len(e.schedules)), nil
}

func (e *Exporter) ExportHealthScore(_ context.Context, r sheets.HealthReport) (string, error) {
	if r.FamilyID == "" {
		return "", fmt.Errorf("export health score: missing family id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.health = append(e.health, r)
	return fmt.Sprintf("mem:health:%d", len(e.health)), nil
}

// Schedules returns a copy of the exported schedules.
func (e *Exporter) Schedules() []sheets.ScheduleReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sheets.ScheduleReport(nil), e.schedules...)
}

// HealthReports returns a copy of the exported health reports.
func (e *Exporter) HealthReports() []sheets.HealthReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sheets.HealthReport(nil), e.health...)
}
