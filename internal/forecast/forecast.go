// Package forecast projects next month's income and expense by extrapolating
// the trend between the recent and older parts of a trailing window. It is a
// lightweight heuristic, not a regression.
package forecast

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"famfin/internal/core"
	"famfin/internal/stats"
)

var ErrInvalidSplit = errors.New("invalid forecast split")

type Confidence string

const (
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// minMonthsForMedium is the history length from which confidence is medium.
const minMonthsForMedium = 3

type Projection struct {
	TrailingAverage decimal.Decimal `json:"trailing_average"`
	RecentAverage   decimal.Decimal `json:"recent_average"`
	OlderAverage    decimal.Decimal `json:"older_average"`
	TrendPercent    float64         `json:"trend_percent"`
	Predicted       decimal.Decimal `json:"predicted"`

	predicted float64
}

type Forecast struct {
	Period           core.Period     `json:"period"`
	PredictedIncome  decimal.Decimal `json:"predicted_income"`
	PredictedExpense decimal.Decimal `json:"predicted_expense"`
	PredictedSavings decimal.Decimal `json:"predicted_savings"`
	Confidence       Confidence      `json:"confidence"`
	MonthsAnalyzed   int             `json:"months_analyzed"`
	SplitMonths      int             `json:"split_months"`
	Income           Projection      `json:"income"`
	Expense          Projection      `json:"expense"`
}

type Input struct {
	Window   core.Window
	Income   []core.LedgerEntry
	Expenses []core.LedgerEntry
	// SplitMonths is how many of the latest months form the recent part.
	// Zero selects half the window, rounded down, and at least one month.
	SplitMonths int
}

// ResolveSplit validates split against a window of n months, substituting the default for 0.
func ResolveSplit(n, split int) (int, error) {
	if split == 0 {
		split = n / 2
		if split < 1 {
			split = 1
		}
	}
	if split < 1 || split > n {
		return 0, fmt.Errorf("%w: %d of %d months", ErrInvalidSplit, split, n)
	}
	return split, nil
}

func Predict(in Input) (Forecast, error) {
	n := in.Window.Months
	if n < 1 {
		return Forecast{}, core.ErrInvalidWindow
	}
	split, err := ResolveSplit(n, in.SplitMonths)
	if err != nil {
		return Forecast{}, err
	}

	income := project(core.MonthlyTotals(core.FilterKind(in.Income, core.Income), in.Window), split)
	expense := project(core.MonthlyTotals(core.FilterKind(in.Expenses, core.Expense), in.Window), split)

	confidence := Low
	if n >= minMonthsForMedium {
		confidence = Medium
	}

	return Forecast{
		Period:           core.PeriodOf(in.Window.To),
		PredictedIncome:  income.Predicted,
		PredictedExpense: expense.Predicted,
		PredictedSavings: core.FromFloat(income.predicted - expense.predicted),
		Confidence:       confidence,
		MonthsAnalyzed:   n,
		SplitMonths:      split,
		Income:           income,
		Expense:          expense,
	}, nil
}

// project splits monthly totals into older months and the last split months.
// An empty older part averages to 0, which yields a 0% trend.
func project(monthly []float64, split int) Projection {
	n := len(monthly)
	older := monthly[:n-split]
	recent := monthly[n-split:]

	trailing, _ := stats.Mean(monthly)
	recentAvg, _ := stats.Mean(recent)
	var olderAvg float64
	if len(older) > 0 {
		olderAvg, _ = stats.Mean(older)
	}

	trend := stats.PercentChange(olderAvg, recentAvg)
	predicted := trailing * (1 + trend/100)

	return Projection{
		TrailingAverage: core.FromFloat(trailing),
		RecentAverage:   core.FromFloat(recentAvg),
		OlderAverage:    core.FromFloat(olderAvg),
		TrendPercent:    stats.Round2(trend),
		Predicted:       core.FromFloat(predicted),
		predicted:       predicted,
	}
}
