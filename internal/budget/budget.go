// Package budget derives suggested monthly budgets from historical variance.
package budget

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"famfin/internal/core"
	"famfin/internal/patterns"
	"famfin/internal/stats"
)

type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

const (
	bufferIncreasing = 0.5
	bufferDecreasing = -0.3
	bufferStable     = 0.2

	maxBufferSigma = 1.5

	highConfidenceCV   = 20.0
	mediumConfidenceCV = 40.0

	incomeRatioWarnPercent = 80.0
	incomeRatioNotePercent = 50.0
)

type Recommendation struct {
	CategoryID             string           `json:"category_id"`
	CategoryName           string           `json:"category_name,omitempty"`
	AverageMonthly         decimal.Decimal  `json:"average_monthly"`
	StdDev                 decimal.Decimal  `json:"std_dev"`
	CoefficientOfVariation float64          `json:"coefficient_of_variation"`
	Trend                  stats.Trend      `json:"trend"`
	TrendPercentage        float64          `json:"trend_percentage"`
	BufferFactor           float64          `json:"buffer_factor"`
	Recommended            decimal.Decimal  `json:"recommended"`
	MinBudget              decimal.Decimal  `json:"min_budget"`
	MaxBudget              decimal.Decimal  `json:"max_budget"`
	Confidence             Confidence       `json:"confidence"`
	CurrentBudget          *decimal.Decimal `json:"current_budget,omitempty"`
	Difference             *decimal.Decimal `json:"difference,omitempty"`
	DifferencePercent      *float64         `json:"difference_percent,omitempty"`
	Reason                 string           `json:"reason"`
}

type FamilySummary struct {
	TotalRecommended     decimal.Decimal `json:"total_recommended"`
	AverageMonthlyIncome decimal.Decimal `json:"average_monthly_income"`
	IncomeRatioPercent   float64         `json:"income_ratio_percent"`
	Warnings             []string        `json:"warnings,omitempty"`
	Notes                []string        `json:"notes,omitempty"`
}

type Result struct {
	Period          core.Period      `json:"period"`
	MonthsAnalyzed  int              `json:"months_analyzed"`
	Recommendations []Recommendation `json:"recommendations"`
	Summary         FamilySummary    `json:"summary"`
}

type Input struct {
	Period core.Period
	Window core.Window
	// Expenses and Income over Window.
	Expenses []core.LedgerEntry
	Income   []core.LedgerEntry
	// CurrentBudgets may hold any records; only those for Period are compared.
	CurrentBudgets []core.BudgetRecord
	CategoryNames  map[string]string
}

// Recommend builds one recommendation per expense category with history in
// the window, sorted by recommended amount, highest first. The output depends
// only on the input.
func Recommend(in Input) Result {
	months := in.Window.Months
	if months < 1 {
		months = 1
	}

	current := make(map[string]decimal.Decimal)
	for _, b := range in.CurrentBudgets {
		if b.Period() == in.Period {
			current[b.CategoryID] = b.Amount
		}
	}

	var expenses []core.LedgerEntry
	for _, e := range in.Expenses {
		if e.Kind == core.Expense && in.Window.Contains(e.OccurredAt) {
			expenses = append(expenses, e)
		}
	}

	groups := core.GroupByCategory(expenses)
	recs := make([]Recommendation, 0, len(groups))
	var totalRecommended float64
	for categoryID, group := range groups {
		rec, recommended := recommendCategory(categoryID, group, in.Window, months)
		rec.CategoryName = in.CategoryNames[categoryID]
		if cur, ok := current[categoryID]; ok {
			compareWithCurrent(&rec, cur, recommended)
		}
		totalRecommended += recommended
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		if c := recs[i].Recommended.Cmp(recs[j].Recommended); c != 0 {
			return c > 0
		}
		return recs[i].CategoryID < recs[j].CategoryID
	})

	return Result{
		Period:          in.Period,
		MonthsAnalyzed:  months,
		Recommendations: recs,
		Summary:         summarize(totalRecommended, in.Income, in.Window, months),
	}
}

func recommendCategory(categoryID string, group []core.LedgerEntry, w core.Window, months int) (Recommendation, float64) {
	monthly := core.MonthlyTotals(group, w)
	if len(monthly) == 0 {
		monthly = []float64{core.ToFloat(core.SumAmounts(group))}
	}

	average := core.ToFloat(core.SumAmounts(group)) / float64(months)
	sd, _ := stats.StdDev(monthly)
	cv, _ := stats.CoefficientOfVariation(monthly)
	trend, trendPct := patterns.CategoryTrend(group, w)
	buffer := BufferFactor(trend)

	recommended := stats.RoundUpToStep(average+sd*buffer, stats.BudgetRoundingStep)
	minBudget := stats.RoundUpToStep(average-sd, stats.BudgetRoundingStep)
	maxBudget := stats.RoundUpToStep(average+maxBufferSigma*sd, stats.BudgetRoundingStep)

	rec := Recommendation{
		CategoryID:             categoryID,
		AverageMonthly:         core.FromFloat(average),
		StdDev:                 core.FromFloat(sd),
		CoefficientOfVariation: stats.Round2(cv),
		Trend:                  trend,
		TrendPercentage:        stats.Round2(trendPct),
		BufferFactor:           buffer,
		Recommended:            core.FromFloat(recommended),
		MinBudget:              core.FromFloat(minBudget),
		MaxBudget:              core.FromFloat(maxBudget),
		Confidence:             ConfidenceFor(cv),
		Reason:                 reason(trend, buffer, cv),
	}
	return rec, recommended
}

func compareWithCurrent(rec *Recommendation, current decimal.Decimal, recommended float64) {
	cur := current
	diff := rec.Recommended.Sub(cur)
	var pct float64
	if c := core.ToFloat(cur); c != 0 {
		pct = stats.Round2((recommended - c) * 100 / c)
	}
	rec.CurrentBudget = &cur
	rec.Difference = &diff
	rec.DifferencePercent = &pct
}

// BufferFactor is the share of one standard deviation added on top of the average.
func BufferFactor(t stats.Trend) float64 {
	switch t {
	case stats.Increasing:
		return bufferIncreasing
	case stats.Decreasing:
		return bufferDecreasing
	default:
		return bufferStable
	}
}

func ConfidenceFor(cv float64) Confidence {
	switch {
	case cv < highConfidenceCV:
		return High
	case cv < mediumConfidenceCV:
		return Medium
	default:
		return Low
	}
}

func summarize(totalRecommended float64, income []core.LedgerEntry, w core.Window, months int) FamilySummary {
	var incomeTotal float64
	for _, e := range income {
		if e.Kind == core.Income && w.Contains(e.OccurredAt) {
			incomeTotal += core.ToFloat(e.Amount)
		}
	}
	avgIncome := incomeTotal / float64(months)

	s := FamilySummary{
		TotalRecommended:     core.FromFloat(totalRecommended),
		AverageMonthlyIncome: core.FromFloat(avgIncome),
	}
	if avgIncome <= 0 {
		return s
	}

	ratio := totalRecommended * 100 / avgIncome
	s.IncomeRatioPercent = stats.Round2(ratio)
	switch {
	case ratio > incomeRatioWarnPercent:
		s.Warnings = append(s.Warnings, fmt.Sprintf(
			"Recommended budgets total %.1f%% of average monthly income; the budget is too high to leave room for savings", ratio))
	case ratio < incomeRatioNotePercent:
		s.Notes = append(s.Notes, fmt.Sprintf(
			"Recommended budgets total only %.1f%% of average monthly income; consider directing the difference to savings or goals", ratio))
	}
	return s
}

func reason(trend stats.Trend, buffer, cv float64) string {
	var r string
	switch trend {
	case stats.Increasing:
		r = fmt.Sprintf("spending is increasing, %.0f%% of a standard deviation added as buffer", buffer*100)
	case stats.Decreasing:
		r = fmt.Sprintf("spending is decreasing, %.0f%% of a standard deviation taken off the average", -buffer*100)
	default:
		r = fmt.Sprintf("spending is stable, %.0f%% of a standard deviation added as buffer", buffer*100)
	}
	return fmt.Sprintf("%s; month-to-month variation %.1f%%", r, cv)
}
