package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"famfin/internal/amqp"
	"famfin/internal/anomaly"
	"famfin/internal/core"
	"famfin/internal/health"
	sheetsmem "famfin/internal/sheets/memory"
)

type fakeAnalytics struct {
	mu        sync.Mutex
	families  []string
	anomalies map[string][]anomaly.Anomaly
	failFor   string
	windows   []core.Window
}

func (f *fakeAnalytics) DetectAnomalies(_ context.Context, familyID string, w core.Window) ([]anomaly.Anomaly, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, w)
	if familyID == f.failFor {
		return nil, errors.New("store unavailable")
	}
	return f.anomalies[familyID], nil
}

func (f *fakeAnalytics) ComputeHealthScore(_ context.Context, familyID string, w core.Window) (health.Score, error) {
	if familyID == f.failFor {
		return health.Score{}, errors.New("store unavailable")
	}
	return health.Score{Total: 64, RawTotal: 64, Rating: health.Fair}, nil
}

func (f *fakeAnalytics) FamilyIDs(context.Context) ([]string, error) {
	return f.families, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	alerts []*amqp.AnomalyAlertMessage
	err    error
}

func (p *fakePublisher) PublishAlert(_ context.Context, msg *amqp.AnomalyAlertMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.alerts = append(p.alerts, msg)
	return nil
}

var fixedNow = time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)

func newTestWorker(a Analytics, p AlertPublisher, e *sheetsmem.Exporter) *AnalyticsWorker {
	w := NewAnalyticsWorker(a, p, e, 3, 2)
	w.now = func() time.Time { return fixedNow }
	return w
}

func oneAnomaly() []anomaly.Anomaly {
	return []anomaly.Anomaly{{Kind: anomaly.IncomeDrop, Severity: anomaly.High, Description: "income fell"}}
}

func TestHandleJob_AnomalyScan(t *testing.T) {
	a := &fakeAnalytics{anomalies: map[string][]anomaly.Anomaly{"fam1": oneAnomaly()}}
	p := &fakePublisher{}
	w := newTestWorker(a, p, nil)

	msg := &amqp.AnalyticsJobMessage{ID: "job-1", FamilyID: "fam1", Job: amqp.JobAnomalyScan, Months: 4}
	if err := w.HandleJob(context.Background(), msg); err != nil {
		t.Fatalf("HandleJob() error = %v", err)
	}
	if len(p.alerts) != 1 || p.alerts[0].JobID != "job-1" || p.alerts[0].Count != 1 {
		t.Fatalf("alerts = %+v", p.alerts)
	}
	if a.windows[0].Months != 4 || !a.windows[0].To.Equal(core.MonthStart(fixedNow)) {
		t.Errorf("window = %+v, want 4 months ending at the start of June", a.windows[0])
	}
}

func TestHandleJob_NoAnomaliesNoAlert(t *testing.T) {
	p := &fakePublisher{}
	w := newTestWorker(&fakeAnalytics{}, p, nil)

	if err := w.HandleJob(context.Background(), &amqp.AnalyticsJobMessage{FamilyID: "fam1", Job: amqp.JobAnomalyScan}); err != nil {
		t.Fatalf("HandleJob() error = %v", err)
	}
	if len(p.alerts) != 0 {
		t.Fatalf("unexpected alerts %+v", p.alerts)
	}
}

func TestHandleJob_PublishFailureIsReturned(t *testing.T) {
	a := &fakeAnalytics{anomalies: map[string][]anomaly.Anomaly{"fam1": oneAnomaly()}}
	w := newTestWorker(a, &fakePublisher{err: errors.New("connection closed")}, nil)

	err := w.HandleJob(context.Background(), &amqp.AnalyticsJobMessage{FamilyID: "fam1", Job: amqp.JobAnomalyScan})
	if err == nil {
		t.Fatal("expected publish error so the job is requeued")
	}
}

func TestHandleJob_HealthReport(t *testing.T) {
	exp := sheetsmem.New()
	w := newTestWorker(&fakeAnalytics{}, nil, exp)

	if err := w.HandleJob(context.Background(), &amqp.AnalyticsJobMessage{FamilyID: "fam1", Job: amqp.JobHealthReport}); err != nil {
		t.Fatalf("HandleJob() error = %v", err)
	}
	reports := exp.HealthReports()
	if len(reports) != 1 || reports[0].Score.Total != 64 || reports[0].Period != (core.Period{Year: 2025, Month: 6}) {
		t.Fatalf("reports = %+v", reports)
	}
}

func TestHandleJob_HealthReportWithoutExporter(t *testing.T) {
	w := newTestWorker(&fakeAnalytics{}, nil, nil)
	if err := w.HandleJob(context.Background(), &amqp.AnalyticsJobMessage{FamilyID: "fam1", Job: amqp.JobHealthReport}); err != nil {
		t.Fatalf("HandleJob() error = %v", err)
	}
}

func TestHandleJob_UnknownJob(t *testing.T) {
	w := newTestWorker(&fakeAnalytics{}, nil, nil)
	err := w.HandleJob(context.Background(), &amqp.AnalyticsJobMessage{FamilyID: "fam1", Job: "rebuild"})
	if !errors.Is(err, amqp.ErrInvalidMessage) {
		t.Fatalf("error = %v, want ErrInvalidMessage", err)
	}
}

func TestScanAll(t *testing.T) {
	a := &fakeAnalytics{
		families: []string{"fam1", "fam2", "fam3", "fam4"},
		anomalies: map[string][]anomaly.Anomaly{
			"fam1": oneAnomaly(),
			"fam3": append(oneAnomaly(), oneAnomaly()...),
		},
		failFor: "fam4",
	}
	p := &fakePublisher{}
	w := newTestWorker(a, p, nil)

	summary, err := w.ScanAll(context.Background())
	if err == nil {
		t.Fatal("expected the failing family to be reported")
	}
	want := ScanSummary{Families: 4, Alerted: 2, Anomalies: 3, Failed: 1}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}
	if len(p.alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(p.alerts))
	}
}
