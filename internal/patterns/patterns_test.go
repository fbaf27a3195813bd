package patterns

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"famfin/internal/core"
	"famfin/internal/stats"
)

func entry(cat string, amount int64, at time.Time) core.LedgerEntry {
	return core.LedgerEntry{
		ID:         cat + at.Format("0102"),
		Kind:       core.Expense,
		Amount:     decimal.NewFromInt(amount),
		OccurredAt: at,
		CategoryID: cat,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func testWindow(t *testing.T) core.Window {
	t.Helper()
	// January through June 2025; midpoint falls on April 1st.
	w, err := core.TrailingMonths(day(2025, 7, 10), 6)
	if err != nil {
		t.Fatalf("TrailingMonths() error = %v", err)
	}
	return w
}

func TestAnalyze(t *testing.T) {
	w := testWindow(t)
	entries := []core.LedgerEntry{
		entry("food", 100, day(2025, 1, 5)),
		entry("food", 100, day(2025, 2, 5)),
		entry("food", 300, day(2025, 5, 5)),
		entry("food", 300, day(2025, 6, 5)),
		entry("rent", 1200, day(2025, 3, 1)),
		entry("rent", 1200, day(2025, 4, 1)),
		entry("gift", 60, day(2025, 2, 14)),
		entry("rent", 5000, day(2024, 12, 31)), // outside window
	}
	income := entry("salary", 9000, day(2025, 3, 1))
	income.Kind = core.Income
	entries = append(entries, income)

	got := Analyze(entries, w, map[string]string{"food": "Groceries"})
	if len(got) != 3 {
		t.Fatalf("Analyze() returned %d patterns, want 3", len(got))
	}

	if got[0].CategoryID != "rent" || got[1].CategoryID != "food" || got[2].CategoryID != "gift" {
		t.Fatalf("unexpected order: %s, %s, %s", got[0].CategoryID, got[1].CategoryID, got[2].CategoryID)
	}

	food := got[1]
	if food.CategoryName != "Groceries" {
		t.Errorf("CategoryName = %q", food.CategoryName)
	}
	if !food.Total.Equal(decimal.NewFromInt(800)) {
		t.Errorf("Total = %s, want 800", food.Total)
	}
	if !food.AverageAmount.Equal(decimal.RequireFromString("133.33")) {
		t.Errorf("AverageAmount = %s, want 133.33", food.AverageAmount)
	}
	if !food.Median.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Median = %s, want 100 (lower middle)", food.Median)
	}
	if !food.StdDev.Equal(decimal.NewFromInt(100)) {
		t.Errorf("StdDev = %s, want 100", food.StdDev)
	}
	if food.Frequency != 4 {
		t.Errorf("Frequency = %d", food.Frequency)
	}
	if food.Trend != stats.Increasing || food.TrendPercentage != 200 {
		t.Errorf("Trend = %s %.2f, want increasing 200", food.Trend, food.TrendPercentage)
	}

	if rent := got[0]; rent.Trend != stats.Stable || rent.TrendPercentage != 0 {
		t.Errorf("rent trend = %s %.2f, want stable 0", rent.Trend, rent.TrendPercentage)
	}
}

func TestAnalyzeSingleEntryIsStable(t *testing.T) {
	w := testWindow(t)
	got := Analyze([]core.LedgerEntry{entry("gift", 60, day(2025, 6, 1))}, w, nil)
	if len(got) != 1 {
		t.Fatalf("Analyze() returned %d patterns", len(got))
	}
	if got[0].Trend != stats.Stable || got[0].TrendPercentage != 0 {
		t.Fatalf("single entry trend = %s %.2f", got[0].Trend, got[0].TrendPercentage)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	if got := Analyze(nil, testWindow(t), nil); len(got) != 0 {
		t.Fatalf("Analyze(nil) = %v, want empty", got)
	}
}

func TestAnalyzeTieBreaksByCategoryID(t *testing.T) {
	w := testWindow(t)
	got := Analyze([]core.LedgerEntry{
		entry("b", 10, day(2025, 2, 1)),
		entry("a", 10, day(2025, 2, 1)),
	}, w, nil)
	if got[0].CategoryID != "a" {
		t.Fatalf("expected a before b, got %s", got[0].CategoryID)
	}
}
