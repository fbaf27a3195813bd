package http

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"famfin/internal/amortization"
	"famfin/internal/amqp"
	"famfin/internal/anomaly"
	"famfin/internal/budget"
	"famfin/internal/core"
	"famfin/internal/forecast"
	"famfin/internal/health"
	"famfin/internal/log"
	"famfin/internal/patterns"
	"famfin/internal/payoff"
	"famfin/internal/services"
	"famfin/internal/sheets"
)

type patternsResponse struct {
	FamilyID string             `json:"family_id"`
	Window   core.Window        `json:"window"`
	Patterns []patterns.Pattern `json:"patterns"`
}

type anomaliesResponse struct {
	FamilyID   string                   `json:"family_id"`
	Window     core.Window              `json:"window"`
	Count      int                      `json:"count"`
	BySeverity map[anomaly.Severity]int `json:"by_severity"`
	Anomalies  []anomaly.Anomaly        `json:"anomalies"`
}

type budgetResponse struct {
	FamilyID string      `json:"family_id"`
	Window   core.Window `json:"window"`
	budget.Result
}

type healthResponse struct {
	FamilyID string      `json:"family_id"`
	Window   core.Window `json:"window"`
	health.Score
}

type forecastResponse struct {
	FamilyID string      `json:"family_id"`
	Window   core.Window `json:"window"`
	forecast.Forecast
}

// Amounts accept JSON numbers or decimal strings.
type simulateRequest struct {
	OneTime        decimal.Decimal `json:"one_time"`
	RecurringExtra decimal.Decimal `json:"recurring_extra"`
	YearlyBonus    decimal.Decimal `json:"yearly_bonus"`
	Export         bool            `json:"export"`
}

func (req simulateRequest) policy() amortization.Policy {
	return amortization.Policy{
		OneTime:        core.ToFloat(req.OneTime),
		RecurringExtra: core.ToFloat(req.RecurringExtra),
		YearlyBonus:    core.ToFloat(req.YearlyBonus),
	}
}

type simulateResponse struct {
	FamilyID string `json:"family_id"`
	services.PayoffReport
	ExportRef string `json:"export_ref,omitempty"`
}

type scenariosRequest struct {
	ExtraPayments []decimal.Decimal `json:"extra_payments"`
	TargetMonths  int               `json:"target_months"`
}

func (req scenariosRequest) options() payoff.Options {
	opts := payoff.Options{TargetMonths: req.TargetMonths}
	if len(req.ExtraPayments) > 0 {
		opts.ExtraPayments = make([]float64, len(req.ExtraPayments))
		for i, extra := range req.ExtraPayments {
			opts.ExtraPayments[i] = core.ToFloat(extra)
		}
	}
	return opts
}

type scenariosResponse struct {
	FamilyID string `json:"family_id"`
	services.ScenarioReport
}

type jobRequest struct {
	Job    amqp.JobKind `json:"job"`
	Months int          `json:"months"`
}

type jobResponse struct {
	JobID    string       `json:"job_id"`
	FamilyID string       `json:"family_id"`
	Job      amqp.JobKind `json:"job"`
}

func (s *Server) handleSpendingPatterns(w http.ResponseWriter, r *http.Request) {
	familyID, win, ok := s.familyWindow(w, r)
	if !ok {
		return
	}
	found, err := s.analytics.AnalyzeSpendingPatterns(r.Context(), familyID, win)
	if err != nil {
		s.fail(w, r, err, log.OpSpendingPatterns)
		return
	}
	if found == nil {
		found = []patterns.Pattern{}
	}
	NewJSONResponse().Body(patternsResponse{FamilyID: familyID, Window: win, Patterns: found}).Write(w)
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	familyID, win, ok := s.familyWindow(w, r)
	if !ok {
		return
	}
	found, err := s.analytics.DetectAnomalies(r.Context(), familyID, win)
	if err != nil {
		s.fail(w, r, err, log.OpAnomalies)
		return
	}
	if found == nil {
		found = []anomaly.Anomaly{}
	}
	NewJSONResponse().Body(anomaliesResponse{
		FamilyID:   familyID,
		Window:     win,
		Count:      len(found),
		BySeverity: anomaly.Count(found),
		Anomalies:  found,
	}).Write(w)
}

func (s *Server) handleBudgetRecommendations(w http.ResponseWriter, r *http.Request) {
	familyID, win, ok := s.familyWindow(w, r)
	if !ok {
		return
	}
	period, err := ParsePeriod(r.URL.Query(), win.Now)
	if err != nil {
		errorResponseFor(err).Write(w)
		return
	}
	res, err := s.analytics.RecommendBudgets(r.Context(), familyID, period, win)
	if err != nil {
		s.fail(w, r, err, log.OpBudgets)
		return
	}
	if res.Recommendations == nil {
		res.Recommendations = []budget.Recommendation{}
	}
	NewJSONResponse().Body(budgetResponse{FamilyID: familyID, Window: win, Result: res}).Write(w)
}

func (s *Server) handleHealthScore(w http.ResponseWriter, r *http.Request) {
	familyID, win, ok := s.familyWindow(w, r)
	if !ok {
		return
	}
	score, err := s.analytics.ComputeHealthScore(r.Context(), familyID, win)
	if err != nil {
		s.fail(w, r, err, log.OpHealthScore)
		return
	}
	NewJSONResponse().Body(healthResponse{FamilyID: familyID, Window: win, Score: score}).Write(w)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	familyID, win, ok := s.familyWindow(w, r)
	if !ok {
		return
	}
	split, err := ParseSplit(r.URL.Query())
	if err != nil {
		errorResponseFor(err).Write(w)
		return
	}
	fc, err := s.analytics.ForecastNextMonth(r.Context(), familyID, win, split)
	if err != nil {
		s.fail(w, r, err, log.OpForecast)
		return
	}
	NewJSONResponse().Body(forecastResponse{FamilyID: familyID, Window: win, Forecast: fc}).Write(w)
}

func (s *Server) handleSimulatePayoff(w http.ResponseWriter, r *http.Request) {
	familyID, liabilityID, ok := s.liabilityPath(w, r)
	if !ok {
		return
	}
	var req simulateRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		errorResponseFor(err).Write(w)
		return
	}
	if req.Export && s.exporter == nil {
		ServiceUnavailableError("report export is not configured").Write(w)
		return
	}

	report, err := s.analytics.SimulatePayoff(r.Context(), familyID, liabilityID, req.policy())
	if err != nil {
		s.fail(w, r, err, log.OpSimulatePayoff)
		return
	}

	resp := simulateResponse{FamilyID: familyID, PayoffReport: report}
	if req.Export {
		ref, err := s.exporter.ExportSchedule(r.Context(), sheets.ScheduleReport{
			FamilyID:      familyID,
			LiabilityID:   report.LiabilityID,
			LiabilityName: report.Name,
			Simulation:    report.Simulation,
		})
		if err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentSheets).ErrorContext(r.Context(), "Schedule export failed",
				log.NewFields().WithError(err).WithOperation(log.OpExport).WithFamily(familyID).With(log.FieldLiability, liabilityID).ToSlice()...)
			ErrorResponse(http.StatusBadGateway, "report export failed").Write(w)
			return
		}
		resp.ExportRef = ref
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleCompareScenarios(w http.ResponseWriter, r *http.Request) {
	familyID, liabilityID, ok := s.liabilityPath(w, r)
	if !ok {
		return
	}
	var req scenariosRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		errorResponseFor(err).Write(w)
		return
	}
	if req.TargetMonths < 0 || req.TargetMonths > amortization.MaxMonths {
		BadRequestError("invalid target_months: must be between 0 and 600").Write(w)
		return
	}

	report, err := s.analytics.CompareScenarios(r.Context(), familyID, liabilityID, req.options())
	if err != nil {
		s.fail(w, r, err, log.OpCompareScenarios)
		return
	}
	NewJSONResponse().Body(scenariosResponse{FamilyID: familyID, ScenarioReport: report}).Write(w)
}

func (s *Server) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	familyID, err := PathID(r, "familyID")
	if err != nil {
		errorResponseFor(err).Write(w)
		return
	}
	if s.jobs == nil {
		ServiceUnavailableError("job queue is not configured").Write(w)
		return
	}
	var req jobRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		errorResponseFor(err).Write(w)
		return
	}

	msg := amqp.NewAnalyticsJobMessage(familyID, req.Job)
	msg.Months = req.Months
	if err := msg.Validate(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.jobs.PublishJob(r.Context(), msg); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentAMQP).ErrorContext(r.Context(), "Job publish failed",
			log.NewFields().WithError(err).WithErrorType(log.ErrorTypeNetwork).WithFamily(familyID).With(log.FieldJobID, msg.ID).With(log.FieldJobKind, msg.Job).ToSlice()...)
		ServiceUnavailableError("job queue unavailable").Write(w)
		return
	}
	NewJSONResponse().
		Status(http.StatusAccepted).
		Body(jobResponse{JobID: msg.ID, FamilyID: familyID, Job: msg.Job}).
		Write(w)
}

// familyWindow resolves the family path value and the analysis window,
// writing a 400 when either is malformed.
func (s *Server) familyWindow(w http.ResponseWriter, r *http.Request) (string, core.Window, bool) {
	familyID, err := PathID(r, "familyID")
	if err != nil {
		errorResponseFor(err).Write(w)
		return "", core.Window{}, false
	}
	win, err := ParseWindow(r.URL.Query(), s.now(), s.defaultMonths)
	if err != nil {
		errorResponseFor(err).Write(w)
		return "", core.Window{}, false
	}
	return familyID, win, true
}

func (s *Server) liabilityPath(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	familyID, err := PathID(r, "familyID")
	if err != nil {
		errorResponseFor(err).Write(w)
		return "", "", false
	}
	liabilityID, err := PathID(r, "liabilityID")
	if err != nil {
		errorResponseFor(err).Write(w)
		return "", "", false
	}
	return familyID, liabilityID, true
}

// fail writes the error response for a failed analytics call. Server-side
// failures are logged; client errors are not.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	resp := errorResponseFor(err)
	if statusFor(err) == http.StatusInternalServerError && !errors.Is(err, r.Context().Err()) {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Analytics operation failed", err, log.ComponentAnalytics, op, log.NewFields().WithErrorType(log.ErrorTypeInternal))
	}
	resp.Write(w)
}
