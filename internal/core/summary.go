package core

import (
	"errors"
	"time"
)

var ErrInvalidWindow = errors.New("invalid analysis window")

// Window is an analysis range of whole calendar months, [From, To).
// Now is the explicit clock reading the window was built from.
type Window struct {
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Months int       `json:"months"`
	Now    time.Time `json:"-"`
}

// MonthStart truncates t to the first instant of its month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// TrailingMonths builds the window of the n complete months before now's month.
func TrailingMonths(now time.Time, n int) (Window, error) {
	if n < 1 {
		return Window{}, ErrInvalidWindow
	}
	to := MonthStart(now)
	return Window{
		From:   to.AddDate(0, -n, 0),
		To:     to,
		Months: n,
		Now:    now,
	}, nil
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// Midpoint splits the window in half by elapsed time.
func (w Window) Midpoint() time.Time {
	return w.From.Add(w.To.Sub(w.From) / 2)
}

// MonthIndex returns the zero-based month offset of t inside the window, or -1.
func (w Window) MonthIndex(t time.Time) int {
	if !w.Contains(t) {
		return -1
	}
	t = t.UTC()
	idx := (t.Year()-w.From.Year())*12 + int(t.Month()) - int(w.From.Month())
	if idx < 0 || idx >= w.Months {
		return -1
	}
	return idx
}

// Filter returns the window bounds as an entry filter for the given kind.
func (w Window) Filter(kind EntryKind) EntryFilter {
	return EntryFilter{Kind: kind, From: w.From, To: w.To}
}

// MonthlyTotals sums entry amounts per window month. Months with no entries are 0.
func MonthlyTotals(entries []LedgerEntry, w Window) []float64 {
	totals := make([]float64, w.Months)
	for _, e := range entries {
		if idx := w.MonthIndex(e.OccurredAt); idx >= 0 {
			totals[idx] += ToFloat(e.Amount)
		}
	}
	return totals
}

// MonthTotal sums the amounts of entries of the given kind in one calendar month.
func MonthTotal(entries []LedgerEntry, kind EntryKind, p Period) float64 {
	var total float64
	for _, e := range entries {
		if e.Kind == kind && p.Contains(e.OccurredAt) {
			total += ToFloat(e.Amount)
		}
	}
	return total
}
