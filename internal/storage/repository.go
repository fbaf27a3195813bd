package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"famfin/internal/core"
	"famfin/internal/log"
	"famfin/internal/ports"

	_ "modernc.org/sqlite"
)

var _ ports.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListEntries(ctx context.Context, familyID string, f core.EntryFilter) ([]core.LedgerEntry, error) {
	params := ListEntriesParams{
		FamilyID:   familyID,
		Kind:       string(f.Kind),
		CategoryID: f.CategoryID,
	}
	if !f.From.IsZero() {
		params.From = formatTime(f.From)
	}
	if !f.To.IsZero() {
		params.To = formatTime(f.To)
	}

	rows, err := r.queries.ListEntries(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	out := make([]core.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		at, err := parseTime(row.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", row.ID, err)
		}
		out = append(out, core.LedgerEntry{
			ID:          row.ID,
			FamilyID:    row.FamilyID,
			Kind:        core.EntryKind(row.Kind),
			Amount:      row.Amount,
			OccurredAt:  at,
			CategoryID:  row.CategoryID,
			WalletID:    row.WalletID,
			Description: row.Description,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, familyID string, year, month int) ([]core.BudgetRecord, error) {
	rows, err := r.queries.ListBudgets(ctx, familyID, int64(year), int64(month))
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.BudgetRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.BudgetRecord{
			ID:          row.ID,
			FamilyID:    row.FamilyID,
			CategoryID:  row.CategoryID,
			PeriodYear:  int(row.PeriodYear),
			PeriodMonth: int(row.PeriodMonth),
			Amount:      row.Amount,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) GetLiability(ctx context.Context, familyID, liabilityID string) (core.LiabilityRecord, error) {
	row, err := r.queries.GetLiability(ctx, liabilityID, familyID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LiabilityRecord{}, fmt.Errorf("liability %s: %w", liabilityID, core.ErrNotFound)
	}
	if err != nil {
		return core.LiabilityRecord{}, fmt.Errorf("get liability: %w", err)
	}

	origination, err := parseTime(row.OriginationDate)
	if err != nil {
		return core.LiabilityRecord{}, fmt.Errorf("liability %s: %w", row.ID, err)
	}
	due, err := parseNullTime(row.DueDate)
	if err != nil {
		return core.LiabilityRecord{}, fmt.Errorf("liability %s: %w", row.ID, err)
	}
	return core.LiabilityRecord{
		ID:                        row.ID,
		FamilyID:                  row.FamilyID,
		Name:                      row.Name,
		Principal:                 row.Principal,
		RemainingBalance:          row.RemainingBalance,
		AnnualInterestRatePercent: row.AnnualInterestRatePercent,
		MonthlyPaymentAmount:      row.MonthlyPaymentAmount,
		OriginationDate:           origination,
		DueDate:                   due,
	}, nil
}

func (r *SQLiteRepository) ListLiabilityPayments(ctx context.Context, liabilityID string) ([]core.LiabilityPayment, error) {
	rows, err := r.queries.ListLiabilityPayments(ctx, liabilityID)
	if err != nil {
		return nil, fmt.Errorf("list liability payments: %w", err)
	}
	out := make([]core.LiabilityPayment, 0, len(rows))
	for _, row := range rows {
		at, err := parseTime(row.PaidAt)
		if err != nil {
			return nil, fmt.Errorf("payment %s: %w", row.ID, err)
		}
		out = append(out, core.LiabilityPayment{
			ID:                 row.ID,
			LiabilityID:        row.LiabilityID,
			Amount:             row.Amount,
			PrincipalComponent: row.PrincipalComponent,
			InterestComponent:  row.InterestComponent,
			PaidAt:             at,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) ListWallets(ctx context.Context, familyID string) ([]core.Wallet, error) {
	rows, err := r.queries.ListWallets(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	out := make([]core.Wallet, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Wallet{ID: row.ID, FamilyID: row.FamilyID, Name: row.Name, Balance: row.Balance})
	}
	return out, nil
}

func (r *SQLiteRepository) ListActiveGoals(ctx context.Context, familyID string) ([]core.Goal, error) {
	rows, err := r.queries.ListActiveGoals(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.Goal, 0, len(rows))
	for _, row := range rows {
		deadline, err := parseNullTime(row.Deadline)
		if err != nil {
			return nil, fmt.Errorf("goal %s: %w", row.ID, err)
		}
		out = append(out, core.Goal{
			ID:                row.ID,
			FamilyID:          row.FamilyID,
			Name:              row.Name,
			TargetAmount:      row.TargetAmount,
			ContributedAmount: row.ContributedAmount,
			Active:            row.Active,
			Deadline:          deadline,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, familyID string) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Category{ID: row.ID, FamilyID: row.FamilyID, Name: row.Name, Kind: core.EntryKind(row.Kind)})
	}
	return out, nil
}

func (r *SQLiteRepository) ListFamilyIDs(ctx context.Context) ([]string, error) {
	ids, err := r.queries.ListFamilyIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	return ids, nil
}

// Seed validates ds and upserts every record in a single transaction.
func (r *SQLiteRepository) Seed(ctx context.Context, ds core.Dataset) error {
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("validate dataset: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, f := range ds.Families {
		if err := q.UpsertFamily(ctx, f.ID, f.Name); err != nil {
			return fmt.Errorf("seed family %s: %w", f.ID, err)
		}
	}
	for _, c := range ds.Categories {
		kind := c.Kind
		if kind == "" {
			kind = core.Expense
		}
		if err := q.UpsertCategory(ctx, Category{ID: c.ID, FamilyID: c.FamilyID, Name: c.Name, Kind: string(kind)}); err != nil {
			return fmt.Errorf("seed category %s: %w", c.ID, err)
		}
	}
	for _, w := range ds.Wallets {
		if err := q.UpsertWallet(ctx, Wallet{ID: w.ID, FamilyID: w.FamilyID, Name: w.Name, Balance: w.Balance}); err != nil {
			return fmt.Errorf("seed wallet %s: %w", w.ID, err)
		}
	}
	for _, e := range ds.Entries {
		err := q.UpsertEntry(ctx, LedgerEntry{
			ID:          e.ID,
			FamilyID:    e.FamilyID,
			Kind:        string(e.Kind),
			Amount:      e.Amount,
			OccurredAt:  formatTime(e.OccurredAt),
			CategoryID:  e.CategoryID,
			WalletID:    e.WalletID,
			Description: e.Description,
		})
		if err != nil {
			return fmt.Errorf("seed entry %s: %w", e.ID, err)
		}
	}
	for _, b := range ds.Budgets {
		err := q.UpsertBudget(ctx, Budget{
			ID:          b.ID,
			FamilyID:    b.FamilyID,
			CategoryID:  b.CategoryID,
			PeriodYear:  int64(b.PeriodYear),
			PeriodMonth: int64(b.PeriodMonth),
			Amount:      b.Amount,
		})
		if err != nil {
			return fmt.Errorf("seed budget %s: %w", b.ID, err)
		}
	}
	for _, l := range ds.Liabilities {
		err := q.UpsertLiability(ctx, Liability{
			ID:                        l.ID,
			FamilyID:                  l.FamilyID,
			Name:                      l.Name,
			Principal:                 l.Principal,
			RemainingBalance:          l.RemainingBalance,
			AnnualInterestRatePercent: l.AnnualInterestRatePercent,
			MonthlyPaymentAmount:      l.MonthlyPaymentAmount,
			OriginationDate:           formatTime(l.OriginationDate),
			DueDate:                   nullTime(l.DueDate),
		})
		if err != nil {
			return fmt.Errorf("seed liability %s: %w", l.ID, err)
		}
	}
	for _, p := range ds.Payments {
		err := q.UpsertLiabilityPayment(ctx, LiabilityPayment{
			ID:                 p.ID,
			LiabilityID:        p.LiabilityID,
			Amount:             p.Amount,
			PrincipalComponent: p.PrincipalComponent,
			InterestComponent:  p.InterestComponent,
			PaidAt:             formatTime(p.PaidAt),
		})
		if err != nil {
			return fmt.Errorf("seed payment %s: %w", p.ID, err)
		}
	}
	for _, g := range ds.Goals {
		err := q.UpsertGoal(ctx, Goal{
			ID:                g.ID,
			FamilyID:          g.FamilyID,
			Name:              g.Name,
			TargetAmount:      g.TargetAmount,
			ContributedAmount: g.ContributedAmount,
			Active:            g.Active,
			Deadline:          nullTime(g.Deadline),
		})
		if err != nil {
			return fmt.Errorf("seed goal %s: %w", g.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	log.FromContext(ctx).WithComponent(log.ComponentStorage).InfoContext(ctx, "Dataset seeded",
		"entries", len(ds.Entries),
		"budgets", len(ds.Budgets),
		"liabilities", len(ds.Liabilities))
	return nil
}
