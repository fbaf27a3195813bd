package anomaly

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"famfin/internal/core"
)

func expense(cat string, amount int64, at time.Time) core.LedgerEntry {
	return core.LedgerEntry{Kind: core.Expense, CategoryID: cat, Amount: decimal.NewFromInt(amount), OccurredAt: at}
}

func income(amount int64, at time.Time) core.LedgerEntry {
	return core.LedgerEntry{Kind: core.Income, CategoryID: "salary", Amount: decimal.NewFromInt(amount), OccurredAt: at}
}

func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 9, 0, 0, 0, time.UTC)
}

func TestOutliers(t *testing.T) {
	t.Run("high above three sigma", func(t *testing.T) {
		var entries []core.LedgerEntry
		for i := 1; i <= 10; i++ {
			entries = append(entries, expense("food", 100, day(3, i)))
		}
		entries = append(entries, expense("travel", 1000, day(3, 20)))

		got := Outliers(entries, map[string]string{"travel": "Travel"})
		if len(got) != 1 {
			t.Fatalf("Outliers() returned %d anomalies, want 1", len(got))
		}
		if got[0].Severity != High || got[0].Kind != HighSpending || got[0].CategoryID != "travel" {
			t.Fatalf("unexpected anomaly %+v", got[0])
		}
		if got[0].Amount == nil || !got[0].Amount.Equal(decimal.NewFromInt(1000)) {
			t.Fatalf("Amount = %v", got[0].Amount)
		}
		if got[0].Date == nil || !got[0].Date.Equal(day(3, 20)) {
			t.Fatalf("Date = %v", got[0].Date)
		}
	})

	t.Run("medium between two and three sigma", func(t *testing.T) {
		entries := []core.LedgerEntry{
			expense("a", 10, day(3, 1)), expense("a", 10, day(3, 2)), expense("a", 10, day(3, 3)),
			expense("a", 10, day(3, 4)), expense("a", 10, day(3, 5)), expense("b", 50, day(3, 6)),
		}
		got := Outliers(entries, nil)
		if len(got) != 1 || got[0].Severity != Medium {
			t.Fatalf("Outliers() = %+v, want one medium", got)
		}
	})

	t.Run("fewer than two entries", func(t *testing.T) {
		if got := Outliers([]core.LedgerEntry{expense("a", 1000, day(3, 1))}, nil); got != nil {
			t.Fatalf("Outliers() = %+v, want nil", got)
		}
	})

	t.Run("no variation", func(t *testing.T) {
		entries := []core.LedgerEntry{expense("a", 10, day(3, 1)), expense("a", 10, day(3, 2))}
		if got := Outliers(entries, nil); got != nil {
			t.Fatalf("Outliers() = %+v, want nil", got)
		}
	})
}

func TestBudgetBreaches(t *testing.T) {
	budgets := []core.BudgetRecord{
		{CategoryID: "food", PeriodYear: 2025, PeriodMonth: 3, Amount: decimal.NewFromInt(100)},
		{CategoryID: "fun", PeriodYear: 2025, PeriodMonth: 3, Amount: decimal.NewFromInt(100)},
		{CategoryID: "car", PeriodYear: 2025, PeriodMonth: 3, Amount: decimal.NewFromInt(100)},
		{CategoryID: "rent", PeriodYear: 2025, PeriodMonth: 3, Amount: decimal.NewFromInt(100)},
		{CategoryID: "food", PeriodYear: 2024, PeriodMonth: 3, Amount: decimal.NewFromInt(1)},
	}
	expenses := []core.LedgerEntry{
		expense("food", 160, day(3, 2)),
		expense("fun", 130, day(3, 2)),
		expense("car", 110, day(3, 2)),
		expense("rent", 100, day(3, 2)),
		expense("rent", 500, day(4, 2)),
	}

	got := BudgetBreaches(budgets, expenses, 2025, nil)
	want := map[string]Severity{"food": High, "fun": Medium, "car": Low}
	if len(got) != len(want) {
		t.Fatalf("BudgetBreaches() returned %d anomalies, want %d: %+v", len(got), len(want), got)
	}
	for _, a := range got {
		if want[a.CategoryID] != a.Severity {
			t.Errorf("%s severity = %s, want %s", a.CategoryID, a.Severity, want[a.CategoryID])
		}
	}
}

func TestBreachSeverityBoundaries(t *testing.T) {
	tests := []struct {
		pct  float64
		want Severity
	}{
		{50, Medium},
		{50.01, High},
		{20, Low},
		{20.01, Medium},
		{0, Low},
	}
	for _, tt := range tests {
		if got := BreachSeverity(tt.pct); got != tt.want {
			t.Errorf("BreachSeverity(%v) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func TestZeroBudgetOverage(t *testing.T) {
	if got := OveragePercent(10, 0); !math.IsInf(got, 1) {
		t.Errorf("OveragePercent(10, 0) = %v, want +Inf", got)
	}
	if got := OveragePercent(0, 0); got != 0 {
		t.Errorf("OveragePercent(0, 0) = %v, want 0", got)
	}

	budgets := []core.BudgetRecord{
		{CategoryID: "gifts", PeriodYear: 2025, PeriodMonth: 3, Amount: decimal.Zero},
		{CategoryID: "travel", PeriodYear: 2025, PeriodMonth: 3, Amount: decimal.Zero},
	}
	expenses := []core.LedgerEntry{expense("gifts", 1, day(3, 4))}

	got := BudgetBreaches(budgets, expenses, 2025, map[string]string{"gifts": "Gifts"})
	if len(got) != 1 {
		t.Fatalf("BudgetBreaches() = %+v, want one breach", got)
	}
	if got[0].Severity != High {
		t.Errorf("severity = %s, want %s", got[0].Severity, High)
	}
	if strings.Contains(got[0].Description, "Inf") || !strings.Contains(got[0].Description, "Gifts") {
		t.Errorf("description = %q", got[0].Description)
	}
}

func TestIncomeDrops(t *testing.T) {
	now := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		prior   int64
		current int64
		want    Severity
		flagged bool
	}{
		{"sixty percent drop", 1000, 400, High, true},
		{"thirty five percent drop", 1000, 650, Medium, true},
		{"twenty five percent drop", 1000, 750, Low, true},
		{"exactly eighty percent", 1000, 800, "", false},
		{"growth", 1000, 1200, "", false},
		{"no prior income", 0, 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := []core.LedgerEntry{
				income(tt.prior, day(5, 25)),
				income(tt.current, day(6, 25)),
				income(99999, day(7, 1)), // current month is still open
			}
			got := IncomeDrops(entries, now)
			if !tt.flagged {
				if got != nil {
					t.Fatalf("IncomeDrops() = %+v, want nil", got)
				}
				return
			}
			if len(got) != 1 || got[0].Severity != tt.want || got[0].Kind != IncomeDrop {
				t.Fatalf("IncomeDrops() = %+v, want one %s", got, tt.want)
			}
		})
	}
}

func TestDetectSortsBySeverity(t *testing.T) {
	now := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	in := Input{
		Budgets:      []core.BudgetRecord{{CategoryID: "car", PeriodYear: 2025, PeriodMonth: 6, Amount: decimal.NewFromInt(100)}},
		YearExpenses: []core.LedgerEntry{expense("car", 110, day(6, 3))},
		Income:       []core.LedgerEntry{income(1000, day(5, 1)), income(100, day(6, 1))},
		Now:          now,
	}
	got := Detect(in)
	if len(got) != 2 {
		t.Fatalf("Detect() returned %d anomalies, want 2", len(got))
	}
	if got[0].Severity != High || got[1].Severity != Low {
		t.Fatalf("unexpected order: %s, %s", got[0].Severity, got[1].Severity)
	}
	counts := Count(got)
	if counts[High] != 1 || counts[Low] != 1 {
		t.Fatalf("Count() = %v", counts)
	}
}
