package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"famfin/internal/core"
)

func testDataset() core.Dataset {
	jan := time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)
	due := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	return core.Dataset{
		Families:   []core.Family{{ID: "fam1", Name: "Bianchi"}},
		Categories: []core.Category{{ID: "food", FamilyID: "fam1", Name: "Food"}},
		Wallets:    []core.Wallet{{ID: "w1", FamilyID: "fam1", Name: "Main", Balance: decimal.RequireFromString("2500.75")}},
		Entries: []core.LedgerEntry{
			{ID: "e2", FamilyID: "fam1", Kind: core.Expense, Amount: decimal.RequireFromString("45.10"), OccurredAt: jan.AddDate(0, 1, 0), CategoryID: "food", WalletID: "w1"},
			{ID: "e1", FamilyID: "fam1", Kind: core.Expense, Amount: decimal.RequireFromString("12.34"), OccurredAt: jan, CategoryID: "food", WalletID: "w1", Description: "market"},
			{ID: "e3", FamilyID: "fam1", Kind: core.Income, Amount: decimal.NewFromInt(3000), OccurredAt: jan, CategoryID: "salary", WalletID: "w1"},
			{ID: "e4", FamilyID: "fam2", Kind: core.Expense, Amount: decimal.NewFromInt(7), OccurredAt: jan, CategoryID: "food"},
		},
		Budgets: []core.BudgetRecord{
			{ID: "b1", FamilyID: "fam1", CategoryID: "food", PeriodYear: 2025, PeriodMonth: 1, Amount: decimal.NewFromInt(200)},
			{ID: "b2", FamilyID: "fam1", CategoryID: "food", PeriodYear: 2025, PeriodMonth: 2, Amount: decimal.NewFromInt(250)},
		},
		Liabilities: []core.LiabilityRecord{{
			ID: "l1", FamilyID: "fam1", Name: "Mortgage",
			Principal:                 decimal.NewFromInt(100000),
			RemainingBalance:          decimal.NewFromInt(90000),
			AnnualInterestRatePercent: decimal.RequireFromString("3.5"),
			MonthlyPaymentAmount:      decimal.NewFromInt(600),
			OriginationDate:           time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			DueDate:                   &due,
		}},
		Payments: []core.LiabilityPayment{
			{ID: "p1", LiabilityID: "l1", Amount: decimal.NewFromInt(600), PrincipalComponent: decimal.NewFromInt(340), InterestComponent: decimal.NewFromInt(260), PaidAt: jan},
		},
		Goals: []core.Goal{
			{ID: "g1", FamilyID: "fam1", Name: "Car", TargetAmount: decimal.NewFromInt(5000), ContributedAmount: decimal.NewFromInt(1000), Active: true},
			{ID: "g2", FamilyID: "fam1", Name: "Done", TargetAmount: decimal.NewFromInt(10), ContributedAmount: decimal.NewFromInt(10), Active: false},
		},
	}
}

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "famfin.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := repo.Seed(context.Background(), testDataset()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return repo
}

func TestSQLiteRepositoryEntries(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	all, err := repo.ListEntries(ctx, "fam1", core.EntryFilter{})
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListEntries() = %d entries, want 3", len(all))
	}
	if all[len(all)-1].ID != "e2" {
		t.Fatalf("entries not chronological: last = %s", all[len(all)-1].ID)
	}

	tests := []struct {
		name   string
		filter core.EntryFilter
		want   int
	}{
		{"expenses", core.EntryFilter{Kind: core.Expense}, 2},
		{"income", core.EntryFilter{Kind: core.Income}, 1},
		{"category", core.EntryFilter{CategoryID: "salary"}, 1},
		{"january", core.EntryFilter{
			From: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		}, 2},
		{"half open", core.EntryFilter{
			From: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC),
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListEntries(ctx, "fam1", tt.filter)
			if err != nil {
				t.Fatalf("ListEntries() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("ListEntries() = %d entries, want %d", len(got), tt.want)
			}
		})
	}

	for _, e := range all {
		if e.ID == "e1" {
			if !e.Amount.Equal(decimal.RequireFromString("12.34")) || e.Description != "market" {
				t.Errorf("e1 round trip = %+v", e)
			}
		}
	}
}

func TestSQLiteRepositoryBudgets(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	year, err := repo.ListBudgets(ctx, "fam1", 2025, 0)
	if err != nil || len(year) != 2 {
		t.Fatalf("ListBudgets(year) = %d, %v", len(year), err)
	}
	feb, _ := repo.ListBudgets(ctx, "fam1", 2025, 2)
	if len(feb) != 1 || !feb[0].Amount.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("ListBudgets(feb) = %+v", feb)
	}
}

func TestSQLiteRepositoryLiability(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	l, err := repo.GetLiability(ctx, "fam1", "l1")
	if err != nil {
		t.Fatalf("GetLiability() error = %v", err)
	}
	if !l.AnnualInterestRatePercent.Equal(decimal.RequireFromString("3.5")) {
		t.Errorf("rate = %s", l.AnnualInterestRatePercent)
	}
	if l.DueDate == nil || l.DueDate.Year() != 2030 {
		t.Errorf("due date = %v", l.DueDate)
	}

	if _, err := repo.GetLiability(ctx, "fam2", "l1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetLiability(other family) error = %v, want ErrNotFound", err)
	}

	payments, err := repo.ListLiabilityPayments(ctx, "l1")
	if err != nil || len(payments) != 1 {
		t.Fatalf("ListLiabilityPayments() = %d, %v", len(payments), err)
	}
}

func TestSQLiteRepositoryWalletsGoalsCategories(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	wallets, _ := repo.ListWallets(ctx, "fam1")
	if len(wallets) != 1 || !wallets[0].Balance.Equal(decimal.RequireFromString("2500.75")) {
		t.Errorf("wallets = %+v", wallets)
	}
	goals, _ := repo.ListActiveGoals(ctx, "fam1")
	if len(goals) != 1 || goals[0].ID != "g1" || !goals[0].Active {
		t.Errorf("goals = %+v", goals)
	}
	cats, _ := repo.ListCategories(ctx, "fam1")
	if len(cats) != 1 || cats[0].Kind != core.Expense {
		t.Errorf("categories = %+v", cats)
	}
	ids, _ := repo.ListFamilyIDs(ctx)
	if len(ids) != 2 || ids[0] != "fam1" || ids[1] != "fam2" {
		t.Errorf("family ids = %v", ids)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	ds := testDataset()
	ds.Budgets[0].Amount = decimal.NewFromInt(999)
	if err := repo.Seed(ctx, ds); err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	jan, _ := repo.ListBudgets(ctx, "fam1", 2025, 1)
	if len(jan) != 1 || !jan[0].Amount.Equal(decimal.NewFromInt(999)) {
		t.Fatalf("reseeded budget = %+v", jan)
	}
	all, _ := repo.ListEntries(ctx, "fam1", core.EntryFilter{})
	if len(all) != 3 {
		t.Fatalf("reseed duplicated entries: %d", len(all))
	}
}

func TestSeedRejectsInvalidDataset(t *testing.T) {
	repo := newTestRepository(t)
	ds := core.Dataset{Budgets: []core.BudgetRecord{{ID: "bad", CategoryID: "food", PeriodYear: 2025, PeriodMonth: 13}}}
	if err := repo.Seed(context.Background(), ds); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("Seed() error = %v, want ErrInvalidPeriod", err)
	}
}
