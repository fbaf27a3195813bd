// Package anomaly finds unusual expenses, exceeded budgets and income drops.
package anomaly

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"famfin/internal/core"
	"famfin/internal/stats"
)

type Kind string

const (
	HighSpending   Kind = "high_spending"
	BudgetExceeded Kind = "budget_exceeded"
	IncomeDrop     Kind = "income_drop"
)

type Severity string

const (
	Low    Severity = "low"
	Medium Severity = "medium"
	High   Severity = "high"
)

func (s Severity) rank() int {
	switch s {
	case High:
		return 3
	case Medium:
		return 2
	case Low:
		return 1
	default:
		return 0
	}
}

const (
	breachHighPercent   = 50.0
	breachMediumPercent = 20.0

	// incomeDropRatio is the fraction of the prior month's income below which
	// the latest month is flagged.
	incomeDropRatio         = 0.8
	incomeDropHighPercent   = 50.0
	incomeDropMediumPercent = 30.0
)

type Anomaly struct {
	Kind        Kind             `json:"kind"`
	Severity    Severity         `json:"severity"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	CategoryID  string           `json:"category_id,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
}

// Input carries every series the detector looks at.
type Input struct {
	// Expenses in the analysis window, used for outliers.
	Expenses []core.LedgerEntry
	// Budgets and the expenses they are checked against, both for Now's year.
	Budgets      []core.BudgetRecord
	YearExpenses []core.LedgerEntry
	// Income covering at least the two months before Now's month.
	Income        []core.LedgerEntry
	Now           time.Time
	CategoryNames map[string]string
}

// Detect runs the three detectors independently and returns their findings
// ordered by severity, highest first. A missing input yields no findings of
// that class.
func Detect(in Input) []Anomaly {
	var out []Anomaly
	out = append(out, Outliers(in.Expenses, in.CategoryNames)...)
	out = append(out, BudgetBreaches(in.Budgets, in.YearExpenses, in.Now.Year(), in.CategoryNames)...)
	out = append(out, IncomeDrops(in.Income, in.Now)...)
	SortBySeverity(out)
	return out
}

// Outliers flags expenses above mean+2σ of all expense amounts, and as high
// above mean+3σ. Fewer than two entries produce nothing.
func Outliers(expenses []core.LedgerEntry, names map[string]string) []Anomaly {
	expenses = core.FilterKind(expenses, core.Expense)
	if len(expenses) < 2 {
		return nil
	}
	amounts := core.Amounts(expenses)
	mean, _ := stats.Mean(amounts)
	sd, _ := stats.StdDev(amounts)
	if sd == 0 {
		return nil
	}

	mediumCut := mean + stats.OutlierMediumSigma*sd
	highCut := mean + stats.OutlierHighSigma*sd

	var out []Anomaly
	for i, e := range expenses {
		v := amounts[i]
		if v <= mediumCut {
			continue
		}
		sev := Medium
		if v > highCut {
			sev = High
		}
		amount := e.Amount
		at := e.OccurredAt
		out = append(out, Anomaly{
			Kind:     HighSpending,
			Severity: sev,
			Description: fmt.Sprintf("Unusually large expense of %s in %s (%.1f standard deviations above the average of %s)",
				e.Amount.StringFixed(2), label(e.CategoryID, names), (v-mean)/sd, core.FromFloat(mean).StringFixed(2)),
			Amount:     &amount,
			CategoryID: e.CategoryID,
			Date:       &at,
		})
	}
	return out
}

// BudgetBreaches compares every budget of the given year with the actual
// spend in its category and month.
func BudgetBreaches(budgets []core.BudgetRecord, expenses []core.LedgerEntry, year int, names map[string]string) []Anomaly {
	var out []Anomaly
	for _, b := range budgets {
		if b.PeriodYear != year {
			continue
		}
		period := b.Period()
		actual := decimal.Zero
		for _, e := range expenses {
			if e.Kind == core.Expense && e.CategoryID == b.CategoryID && period.Contains(e.OccurredAt) {
				actual = actual.Add(e.Amount)
			}
		}
		if !actual.GreaterThan(b.Amount) {
			continue
		}

		overage := actual.Sub(b.Amount)
		pct := OveragePercent(core.ToFloat(actual), core.ToFloat(b.Amount))
		at := period.Start()
		desc := fmt.Sprintf("Budget for %s in %s exceeded by %s (%.1f%%): spent %s of %s",
			label(b.CategoryID, names), period, overage.StringFixed(2), pct, actual.StringFixed(2), b.Amount.StringFixed(2))
		if math.IsInf(pct, 1) {
			desc = fmt.Sprintf("Spent %s on %s in %s against a budget of %s",
				actual.StringFixed(2), label(b.CategoryID, names), period, b.Amount.StringFixed(2))
		}
		out = append(out, Anomaly{
			Kind:        BudgetExceeded,
			Severity:    BreachSeverity(pct),
			Description: desc,
			Amount:      &overage,
			CategoryID:  b.CategoryID,
			Date:        &at,
		})
	}
	return out
}

// OveragePercent returns how far actual exceeds budget as a percentage. Any
// spend above a budget of zero is an unbounded overage and returns +Inf.
func OveragePercent(actual, budget float64) float64 {
	if budget <= 0 {
		if actual > budget {
			return math.Inf(1)
		}
		return 0
	}
	return (actual - budget) * 100 / budget
}

func BreachSeverity(overagePercent float64) Severity {
	switch {
	case overagePercent > breachHighPercent:
		return High
	case overagePercent > breachMediumPercent:
		return Medium
	default:
		return Low
	}
}

// IncomeDrops compares the last completed month's income with the month before.
func IncomeDrops(income []core.LedgerEntry, now time.Time) []Anomaly {
	currentStart := core.MonthStart(now).AddDate(0, -1, 0)
	current := core.PeriodOf(currentStart)
	prior := core.PeriodOf(currentStart.AddDate(0, -1, 0))

	cur := core.MonthTotal(income, core.Income, current)
	prev := core.MonthTotal(income, core.Income, prior)
	if prev <= 0 || cur >= prev*incomeDropRatio {
		return nil
	}

	drop := (prev - cur) * 100 / prev
	sev := Low
	switch {
	case drop > incomeDropHighPercent:
		sev = High
	case drop > incomeDropMediumPercent:
		sev = Medium
	}
	amount := core.FromFloat(prev - cur)
	return []Anomaly{{
		Kind:     IncomeDrop,
		Severity: sev,
		Description: fmt.Sprintf("Income in %s fell %.1f%% compared to %s (%s vs %s)",
			current, drop, prior, core.FromFloat(cur).StringFixed(2), core.FromFloat(prev).StringFixed(2)),
		Amount: &amount,
		Date:   &currentStart,
	}}
}

// SortBySeverity orders anomalies highest severity first, keeping detector order within a level.
func SortBySeverity(anomalies []Anomaly) {
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Severity.rank() > anomalies[j].Severity.rank()
	})
}

// Count returns the number of anomalies at each severity.
func Count(anomalies []Anomaly) map[Severity]int {
	counts := make(map[Severity]int, 3)
	for _, a := range anomalies {
		counts[a.Severity]++
	}
	return counts
}

func label(categoryID string, names map[string]string) string {
	if name, ok := names[categoryID]; ok && name != "" {
		return name
	}
	return categoryID
}
