// Package health computes the composite 0-100 financial health score.
package health

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"famfin/internal/core"
	"famfin/internal/stats"
)

type Rating string

const (
	Excellent        Rating = "Excellent"
	Good             Rating = "Good"
	Fair             Rating = "Fair"
	NeedsImprovement Rating = "Needs Improvement"
)

// Component caps. They add up to 100.
const (
	SavingsMax       = 30.0
	BudgetMax        = 25.0
	EmergencyFundMax = 25.0
	GoalsMax         = 20.0

	emergencyFundTargetMonths = 6.0
)

type Component struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Max         float64 `json:"max"`
	Description string  `json:"description"`
}

type Score struct {
	// Total is RawTotal rounded to the nearest integer; RawTotal is the exact
	// sum of the unrounded component scores. Only the sum is ever rounded.
	Total               int         `json:"total"`
	RawTotal            float64     `json:"raw_total"`
	Rating              Rating      `json:"rating"`
	Breakdown           []Component `json:"breakdown"`
	SavingsRatePercent  float64     `json:"savings_rate_percent"`
	EmergencyFundMonths float64     `json:"emergency_fund_months"`
}

type Input struct {
	// TotalIncome and TotalExpense over Months.
	TotalIncome   decimal.Decimal
	TotalExpense  decimal.Decimal
	Months        int
	ActiveBudgets int
	WalletBalance decimal.Decimal
	Goals         []core.Goal
}

func Calculate(in Input) Score {
	income := core.ToFloat(in.TotalIncome)
	expense := core.ToFloat(in.TotalExpense)

	var savingsRate float64
	if income != 0 {
		savingsRate = (income - expense) * 100 / income
	}
	savings := stats.Clamp(savingsRate/30*SavingsMax, 0, SavingsMax)

	var budget float64
	if in.ActiveBudgets > 0 {
		budget = BudgetMax
	}

	months := in.Months
	if months < 1 {
		months = 1
	}
	avgExpense := expense / float64(months)
	var coverage float64
	if avgExpense != 0 {
		coverage = math.Max(0, core.ToFloat(in.WalletBalance)/avgExpense)
	}
	emergency := math.Min(EmergencyFundMax, coverage/emergencyFundTargetMonths*EmergencyFundMax)

	var active int
	var progressSum float64
	for _, g := range in.Goals {
		if !g.Active {
			continue
		}
		active++
		progressSum += g.Progress()
	}
	var avgProgress float64
	if active > 0 {
		avgProgress = progressSum / float64(active)
	}
	goals := stats.Clamp(avgProgress/100*GoalsMax, 0, GoalsMax)

	breakdown := []Component{
		{
			Name:        "savings_rate",
			Score:       savings,
			Max:         SavingsMax,
			Description: fmt.Sprintf("Saving %.1f%% of income; full credit at 30%%", savingsRate),
		},
		{
			Name:        "budget_adherence",
			Score:       budget,
			Max:         BudgetMax,
			Description: budgetDescription(in.ActiveBudgets),
		},
		{
			Name:        "emergency_fund",
			Score:       emergency,
			Max:         EmergencyFundMax,
			Description: fmt.Sprintf("Wallet balances cover %.1f months of expenses; full credit at 6 months", coverage),
		},
		{
			Name:        "goal_progress",
			Score:       goals,
			Max:         GoalsMax,
			Description: fmt.Sprintf("%d active goals at %.1f%% average progress", active, avgProgress),
		},
	}

	var raw float64
	for _, c := range breakdown {
		raw += c.Score
	}
	total := int(math.Round(raw))

	return Score{
		Total:               total,
		RawTotal:            raw,
		Rating:              RatingFor(total),
		Breakdown:           breakdown,
		SavingsRatePercent:  stats.Round2(savingsRate),
		EmergencyFundMonths: stats.Round2(coverage),
	}
}

func RatingFor(total int) Rating {
	switch {
	case total >= 80:
		return Excellent
	case total >= 60:
		return Good
	case total >= 40:
		return Fair
	default:
		return NeedsImprovement
	}
}

func budgetDescription(active int) string {
	if active == 0 {
		return "No active budget for the current month"
	}
	return fmt.Sprintf("%d active budgets for the current month", active)
}
