// Package patterns aggregates expense history per category and classifies
// the spending trend of each one.
package patterns

import (
	"sort"

	"github.com/shopspring/decimal"

	"famfin/internal/core"
	"famfin/internal/stats"
)

// Pattern summarises one category's expenses over an analysis window.
type Pattern struct {
	CategoryID      string          `json:"category_id"`
	CategoryName    string          `json:"category_name,omitempty"`
	Total           decimal.Decimal `json:"total"`
	AverageAmount   decimal.Decimal `json:"average_amount"`
	Median          decimal.Decimal `json:"median"`
	StdDev          decimal.Decimal `json:"std_dev"`
	Frequency       int             `json:"frequency"`
	Trend           stats.Trend     `json:"trend"`
	TrendPercentage float64         `json:"trend_percentage"`

	average float64
}

// Analyze builds one pattern per category that has at least one expense in w.
// Income entries and entries outside the window are ignored. The result is
// sorted by average amount, highest first, ties broken by category id.
func Analyze(entries []core.LedgerEntry, w core.Window, names map[string]string) []Pattern {
	var inWindow []core.LedgerEntry
	for _, e := range entries {
		if e.Kind == core.Expense && w.Contains(e.OccurredAt) {
			inWindow = append(inWindow, e)
		}
	}

	groups := core.GroupByCategory(inWindow)
	out := make([]Pattern, 0, len(groups))
	for categoryID, group := range groups {
		out = append(out, analyzeCategory(categoryID, group, w, names[categoryID]))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].average != out[j].average {
			return out[i].average > out[j].average
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

func analyzeCategory(categoryID string, group []core.LedgerEntry, w core.Window, name string) Pattern {
	amounts := core.Amounts(group)
	total := core.SumAmounts(group)

	// group is never empty here, so the statistics cannot fail.
	median, _ := stats.Median(amounts)
	sd, _ := stats.StdDev(amounts)

	months := w.Months
	if months < 1 {
		months = 1
	}
	average := core.ToFloat(total) / float64(months)
	trend, pct := CategoryTrend(group, w)

	return Pattern{
		CategoryID:      categoryID,
		CategoryName:    name,
		Total:           total,
		AverageAmount:   core.FromFloat(average),
		Median:          core.FromFloat(median),
		StdDev:          core.FromFloat(sd),
		Frequency:       len(group),
		Trend:           trend,
		TrendPercentage: stats.Round2(pct),
		average:         average,
	}
}

// CategoryTrend splits w at its elapsed-time midpoint and compares the summed
// amounts of each half. A single entry carries no trend.
func CategoryTrend(entries []core.LedgerEntry, w core.Window) (stats.Trend, float64) {
	if len(entries) < 2 {
		return stats.Stable, 0
	}
	mid := w.Midpoint()
	var first, second float64
	for _, e := range entries {
		if e.OccurredAt.Before(mid) {
			first += core.ToFloat(e.Amount)
		} else {
			second += core.ToFloat(e.Amount)
		}
	}
	return stats.ClassifyTrend(first, second)
}
