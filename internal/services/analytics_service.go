package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"famfin/internal/amortization"
	"famfin/internal/anomaly"
	"famfin/internal/budget"
	"famfin/internal/core"
	"famfin/internal/forecast"
	"famfin/internal/health"
	applog "famfin/internal/log"
	"famfin/internal/patterns"
	"famfin/internal/payoff"
	"famfin/internal/ports"
)

// AnalyticsService loads the inputs of each analytics operation from the
// store and hands them to the pure computation packages. It keeps no state
// between calls.
type AnalyticsService struct {
	store  ports.Store
	logger *applog.StructuredLogger
}

func NewAnalyticsService(store ports.Store, logger *applog.Logger) *AnalyticsService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &AnalyticsService{
		store:  store,
		logger: applog.NewStructuredLogger(logger),
	}
}

// PayoffReport is a payoff simulation together with the liability's payment history.
type PayoffReport struct {
	LiabilityID string `json:"liability_id"`
	Name        string `json:"name"`
	payoff.Simulation
	History payoff.History `json:"history"`
}

type ScenarioReport struct {
	LiabilityID string `json:"liability_id"`
	Name        string `json:"name"`
	payoff.Comparison
}

func (s *AnalyticsService) AnalyzeSpendingPatterns(ctx context.Context, familyID string, w core.Window) ([]patterns.Pattern, error) {
	var (
		expenses []core.LedgerEntry
		names    map[string]string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		expenses, err = s.listEntries(gctx, familyID, w.Filter(core.Expense))
		return err
	})
	g.Go(func() (err error) {
		names, err = s.categoryNames(gctx, familyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := patterns.Analyze(expenses, w, names)
	s.logger.LogAnalytics(ctx, applog.OpSpendingPatterns, familyID, w.Months, len(out))
	return out, nil
}

func (s *AnalyticsService) DetectAnomalies(ctx context.Context, familyID string, w core.Window) ([]anomaly.Anomaly, error) {
	now := w.Now
	if now.IsZero() {
		now = w.To
	}
	current := core.MonthStart(now)
	yearStart := time.Date(current.Year(), 1, 1, 0, 0, 0, 0, time.UTC)

	in := anomaly.Input{Now: now}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Expenses, err = s.listEntries(gctx, familyID, w.Filter(core.Expense))
		return err
	})
	g.Go(func() (err error) {
		in.Budgets, err = s.listBudgets(gctx, familyID, current.Year(), 0)
		return err
	})
	g.Go(func() (err error) {
		in.YearExpenses, err = s.listEntries(gctx, familyID, core.EntryFilter{
			Kind: core.Expense,
			From: yearStart,
			To:   current.AddDate(0, 1, 0),
		})
		return err
	})
	g.Go(func() (err error) {
		in.Income, err = s.listEntries(gctx, familyID, core.EntryFilter{
			Kind: core.Income,
			From: current.AddDate(0, -2, 0),
			To:   current,
		})
		return err
	})
	g.Go(func() (err error) {
		in.CategoryNames, err = s.categoryNames(gctx, familyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := anomaly.Detect(in)
	s.logger.LogAnalytics(ctx, applog.OpAnomalies, familyID, w.Months, len(out))
	return out, nil
}

func (s *AnalyticsService) RecommendBudgets(ctx context.Context, familyID string, period core.Period, w core.Window) (budget.Result, error) {
	if err := period.Validate(); err != nil {
		return budget.Result{}, err
	}

	in := budget.Input{Period: period, Window: w}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Expenses, err = s.listEntries(gctx, familyID, w.Filter(core.Expense))
		return err
	})
	g.Go(func() (err error) {
		in.Income, err = s.listEntries(gctx, familyID, w.Filter(core.Income))
		return err
	})
	g.Go(func() (err error) {
		in.CurrentBudgets, err = s.listBudgets(gctx, familyID, period.Year, period.Month)
		return err
	})
	g.Go(func() (err error) {
		in.CategoryNames, err = s.categoryNames(gctx, familyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return budget.Result{}, err
	}

	out := budget.Recommend(in)
	s.logger.LogAnalytics(ctx, applog.OpBudgets, familyID, w.Months, len(out.Recommendations))
	return out, nil
}

func (s *AnalyticsService) ComputeHealthScore(ctx context.Context, familyID string, w core.Window) (health.Score, error) {
	now := w.Now
	if now.IsZero() {
		now = w.To
	}
	current := core.PeriodOf(now)

	var (
		income, expenses []core.LedgerEntry
		budgets          []core.BudgetRecord
		wallets          []core.Wallet
		goals            []core.Goal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		income, err = s.listEntries(gctx, familyID, w.Filter(core.Income))
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.listEntries(gctx, familyID, w.Filter(core.Expense))
		return err
	})
	g.Go(func() (err error) {
		budgets, err = s.listBudgets(gctx, familyID, current.Year, current.Month)
		return err
	})
	g.Go(func() (err error) {
		wallets, err = s.store.ListWallets(gctx, familyID)
		if err != nil {
			return fmt.Errorf("list wallets: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		goals, err = s.store.ListActiveGoals(gctx, familyID)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return health.Score{}, err
	}

	balance := decimal.Zero
	for _, wl := range wallets {
		balance = balance.Add(wl.Balance)
	}

	score := health.Calculate(health.Input{
		TotalIncome:   core.SumAmounts(income),
		TotalExpense:  core.SumAmounts(expenses),
		Months:        w.Months,
		ActiveBudgets: len(budgets),
		WalletBalance: balance,
		Goals:         goals,
	})
	s.logger.LogAnalytics(ctx, applog.OpHealthScore, familyID, w.Months, score.Total)
	return score, nil
}

// ForecastNextMonth projects the month after the window. split is the number
// of recent months compared against the older ones; 0 picks half the window.
func (s *AnalyticsService) ForecastNextMonth(ctx context.Context, familyID string, w core.Window, split int) (forecast.Forecast, error) {
	in := forecast.Input{Window: w, SplitMonths: split}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Income, err = s.listEntries(gctx, familyID, w.Filter(core.Income))
		return err
	})
	g.Go(func() (err error) {
		in.Expenses, err = s.listEntries(gctx, familyID, w.Filter(core.Expense))
		return err
	})
	if err := g.Wait(); err != nil {
		return forecast.Forecast{}, err
	}

	out, err := forecast.Predict(in)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("forecast: %w", err)
	}
	s.logger.LogAnalytics(ctx, applog.OpForecast, familyID, w.Months, 1)
	return out, nil
}

func (s *AnalyticsService) SimulatePayoff(ctx context.Context, familyID, liabilityID string, policy amortization.Policy) (PayoffReport, error) {
	var (
		liability core.LiabilityRecord
		payments  []core.LiabilityPayment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		liability, err = s.getLiability(gctx, familyID, liabilityID)
		return err
	})
	g.Go(func() (err error) {
		payments, err = s.store.ListLiabilityPayments(gctx, liabilityID)
		if err != nil {
			return fmt.Errorf("list liability payments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return PayoffReport{}, err
	}

	sim, err := payoff.Simulate(payoff.LoanFrom(liability), policy)
	if err != nil {
		return PayoffReport{}, fmt.Errorf("simulate payoff: %w", err)
	}
	s.logger.LogAnalytics(ctx, applog.OpSimulatePayoff, familyID, sim.Totals.Months, len(sim.Schedule))
	return PayoffReport{
		LiabilityID: liability.ID,
		Name:        liability.Name,
		Simulation:  sim,
		History:     payoff.Summarize(payments),
	}, nil
}

func (s *AnalyticsService) CompareScenarios(ctx context.Context, familyID, liabilityID string, opts payoff.Options) (ScenarioReport, error) {
	liability, err := s.getLiability(ctx, familyID, liabilityID)
	if err != nil {
		return ScenarioReport{}, err
	}

	cmp, err := payoff.Compare(payoff.LoanFrom(liability), opts)
	if err != nil {
		return ScenarioReport{}, fmt.Errorf("compare scenarios: %w", err)
	}
	s.logger.LogAnalytics(ctx, applog.OpCompareScenarios, familyID, cmp.Baseline.Months, len(cmp.Scenarios))
	return ScenarioReport{
		LiabilityID: liability.ID,
		Name:        liability.Name,
		Comparison:  cmp,
	}, nil
}

// FamilyIDs lists every family known to the store.
func (s *AnalyticsService) FamilyIDs(ctx context.Context) ([]string, error) {
	ids, err := s.store.ListFamilyIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	return ids, nil
}

func (s *AnalyticsService) listEntries(ctx context.Context, familyID string, f core.EntryFilter) ([]core.LedgerEntry, error) {
	entries, err := s.store.ListEntries(ctx, familyID, f)
	if err != nil {
		return nil, fmt.Errorf("list %s entries: %w", f.Kind, err)
	}
	return entries, nil
}

func (s *AnalyticsService) listBudgets(ctx context.Context, familyID string, year, month int) ([]core.BudgetRecord, error) {
	budgets, err := s.store.ListBudgets(ctx, familyID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

func (s *AnalyticsService) getLiability(ctx context.Context, familyID, liabilityID string) (core.LiabilityRecord, error) {
	l, err := s.store.GetLiability(ctx, familyID, liabilityID)
	if err != nil {
		return core.LiabilityRecord{}, fmt.Errorf("get liability: %w", err)
	}
	return l, nil
}

func (s *AnalyticsService) categoryNames(ctx context.Context, familyID string) (map[string]string, error) {
	cats, err := s.store.ListCategories(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}
