package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"famfin/internal/core"
)

const seed = `{
  "families": [{"id": "fam1", "name": "Rossi"}],
  "categories": [{"id": "food", "family_id": "fam1", "name": "Food", "kind": "expense"}],
  "wallets": [{"id": "w1", "family_id": "fam1", "name": "Checking", "balance": "1500.50"}],
  "entries": [
    {"id": "e2", "family_id": "fam1", "kind": "expense", "amount": "20", "occurred_at": "2025-02-03T10:00:00Z", "category_id": "food", "wallet_id": "w1"},
    {"id": "e1", "family_id": "fam1", "kind": "expense", "amount": 10.25, "occurred_at": "2025-01-03T10:00:00Z", "category_id": "food", "wallet_id": "w1"},
    {"id": "e3", "family_id": "fam1", "kind": "income", "amount": "3000", "occurred_at": "2025-01-27T10:00:00Z", "category_id": "salary", "wallet_id": "w1"},
    {"id": "e4", "family_id": "fam2", "kind": "expense", "amount": "1", "occurred_at": "2025-01-03T10:00:00Z", "category_id": "food", "wallet_id": "w9"}
  ],
  "budgets": [
    {"id": "b1", "family_id": "fam1", "category_id": "food", "period_year": 2025, "period_month": 1, "amount": "100"},
    {"id": "b2", "family_id": "fam1", "category_id": "food", "period_year": 2025, "period_month": 2, "amount": "100"}
  ],
  "liabilities": [
    {"id": "l1", "family_id": "fam1", "name": "Car", "principal": "10000", "remaining_balance": "8000",
     "annual_interest_rate_percent": "6", "monthly_payment_amount": "300", "origination_date": "2024-01-01T00:00:00Z"}
  ],
  "payments": [
    {"id": "p2", "liability_id": "l1", "amount": "300", "principal_component": "255", "interest_component": "45", "paid_at": "2024-03-01T00:00:00Z"},
    {"id": "p1", "liability_id": "l1", "amount": "300", "principal_component": "250", "interest_component": "50", "paid_at": "2024-02-01T00:00:00Z"}
  ],
  "goals": [
    {"id": "g1", "family_id": "fam1", "name": "Holiday", "target_amount": "2000", "contributed_amount": "500", "active": true},
    {"id": "g2", "family_id": "fam1", "name": "Old", "target_amount": "100", "contributed_amount": "100", "active": false}
  ]
}`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(seed), 0644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile() error = %v", err)
	}
	return s
}

func TestStoreListEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	all, err := s.ListEntries(ctx, "fam1", core.EntryFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("ListEntries() = %d entries, %v", len(all), err)
	}
	if all[0].ID != "e1" {
		t.Fatalf("entries should be chronological, first = %s", all[0].ID)
	}
	if !all[0].Amount.Equal(decimal.RequireFromString("10.25")) {
		t.Fatalf("numeric JSON amount not decoded: %s", all[0].Amount)
	}

	jan, _ := s.ListEntries(ctx, "fam1", core.EntryFilter{
		Kind: core.Expense,
		From: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	if len(jan) != 1 || jan[0].ID != "e1" {
		t.Fatalf("filtered entries = %+v", jan)
	}
}

func TestStoreBudgetsAndGoals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if b, _ := s.ListBudgets(ctx, "fam1", 2025, 0); len(b) != 2 {
		t.Fatalf("year budgets = %d, want 2", len(b))
	}
	if b, _ := s.ListBudgets(ctx, "fam1", 2025, 2); len(b) != 1 || b[0].ID != "b2" {
		t.Fatalf("month budgets = %+v", b)
	}
	if g, _ := s.ListActiveGoals(ctx, "fam1"); len(g) != 1 || g[0].ID != "g1" {
		t.Fatalf("active goals = %+v", g)
	}
	if w, _ := s.ListWallets(ctx, "fam1"); len(w) != 1 || !w[0].Balance.Equal(decimal.RequireFromString("1500.5")) {
		t.Fatalf("wallets = %+v", w)
	}
}

func TestStoreLiabilities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	l, err := s.GetLiability(ctx, "fam1", "l1")
	if err != nil || l.Name != "Car" {
		t.Fatalf("GetLiability() = %+v, %v", l, err)
	}
	if _, err := s.GetLiability(ctx, "fam2", "l1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("liability of another family: error = %v, want ErrNotFound", err)
	}
	payments, _ := s.ListLiabilityPayments(ctx, "l1")
	if len(payments) != 2 || payments[0].ID != "p1" {
		t.Fatalf("payments = %+v", payments)
	}
}

func TestStoreListFamilyIDs(t *testing.T) {
	ids, err := newTestStore(t).ListFamilyIDs(context.Background())
	if err != nil || len(ids) != 2 || ids[0] != "fam1" || ids[1] != "fam2" {
		t.Fatalf("ListFamilyIDs() = %v, %v", ids, err)
	}
}

func TestNewRejectsInvalidDataset(t *testing.T) {
	_, err := New(core.Dataset{Entries: []core.LedgerEntry{{ID: "x", Kind: core.Expense, Amount: decimal.NewFromInt(-1), OccurredAt: time.Now()}}})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("New() error = %v, want ErrInvalidAmount", err)
	}
}
