package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"famfin/internal/amortization"
	"famfin/internal/amqp"
	"famfin/internal/anomaly"
	"famfin/internal/budget"
	"famfin/internal/core"
	"famfin/internal/forecast"
	"famfin/internal/health"
	"famfin/internal/log"
	"famfin/internal/middleware/ratelimit"
	"famfin/internal/middleware/security"
	"famfin/internal/middleware/trace"
	"famfin/internal/patterns"
	"famfin/internal/payoff"
	"famfin/internal/services"
	"famfin/internal/sheets"
)

// Analytics is the set of operations the API exposes.
type Analytics interface {
	AnalyzeSpendingPatterns(ctx context.Context, familyID string, w core.Window) ([]patterns.Pattern, error)
	DetectAnomalies(ctx context.Context, familyID string, w core.Window) ([]anomaly.Anomaly, error)
	RecommendBudgets(ctx context.Context, familyID string, period core.Period, w core.Window) (budget.Result, error)
	ComputeHealthScore(ctx context.Context, familyID string, w core.Window) (health.Score, error)
	ForecastNextMonth(ctx context.Context, familyID string, w core.Window, split int) (forecast.Forecast, error)
	SimulatePayoff(ctx context.Context, familyID, liabilityID string, policy amortization.Policy) (services.PayoffReport, error)
	CompareScenarios(ctx context.Context, familyID, liabilityID string, opts payoff.Options) (services.ScenarioReport, error)
}

// JobPublisher queues analytics jobs for the worker.
type JobPublisher interface {
	PublishJob(ctx context.Context, msg *amqp.AnalyticsJobMessage) error
}

type Server struct {
	http.Server
	analytics     Analytics
	exporter      sheets.ReportExporter
	jobs          JobPublisher
	ready         func(context.Context) error
	logger        *log.Logger
	now           func() time.Time
	defaultMonths int
	rateLimit     int

	detector     *security.Detector
	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

type Option func(*Server)

// WithExporter enables exporting simulations to a report sink.
func WithExporter(e sheets.ReportExporter) Option {
	return func(s *Server) { s.exporter = e }
}

// WithJobPublisher enables the job trigger endpoint.
func WithJobPublisher(p JobPublisher) Option {
	return func(s *Server) { s.jobs = p }
}

// WithReadiness sets the check behind /readyz.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock replaces time.Now as the source of "now" for analysis windows.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithDefaultMonths(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.defaultMonths = n
		}
	}
}

func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.rateLimit = perMinute
		}
	}
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, analytics Analytics, opts ...Option) *Server {
	s := &Server{
		analytics:     analytics,
		now:           time.Now,
		defaultMonths: 6,
		rateLimit:     ratelimit.DefaultConfig().RequestsPerMinute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)

	s.detector = security.NewDetector()
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: s.rateLimit})
	s.tracer = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("GET /api/families/{familyID}/spending-patterns", s.api(s.handleSpendingPatterns))
	mux.Handle("GET /api/families/{familyID}/anomalies", s.api(s.handleAnomalies))
	mux.Handle("GET /api/families/{familyID}/budget-recommendations", s.api(s.handleBudgetRecommendations))
	mux.Handle("GET /api/families/{familyID}/health-score", s.api(s.handleHealthScore))
	mux.Handle("GET /api/families/{familyID}/forecast", s.api(s.handleForecast))
	mux.Handle("POST /api/families/{familyID}/liabilities/{liabilityID}/simulate", s.api(s.handleSimulatePayoff))
	mux.Handle("POST /api/families/{familyID}/liabilities/{liabilityID}/scenarios", s.api(s.handleCompareScenarios))
	mux.Handle("POST /api/families/{familyID}/jobs", s.api(s.handleTriggerJob))

	var handler http.Handler = mux
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// api applies per-client rate limiting to an API handler.
func (s *Server) api(h http.HandlerFunc) http.Handler {
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	}
	return s.limiter.Middleware(s.detector.ExtractClientIP, onLimit)(h)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns the request counters of the trace and rate-limit middleware.
func (s *Server) Metrics() (trace.Metrics, ratelimit.Metrics) {
	return s.tracer.GetMetrics(), s.limiter.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ServiceUnavailableError("not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
