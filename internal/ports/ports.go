package ports

import (
	"context"

	"famfin/internal/core"
)

// Read-only query ports consumed by the analytics service. Implementations
// return core.ErrNotFound, wrapped, for unknown records.
type (
	LedgerReader interface {
		ListEntries(ctx context.Context, familyID string, filter core.EntryFilter) ([]core.LedgerEntry, error)
	}

	BudgetReader interface {
		// ListBudgets returns budgets of a year; month 0 selects every month.
		ListBudgets(ctx context.Context, familyID string, year, month int) ([]core.BudgetRecord, error)
	}

	LiabilityReader interface {
		GetLiability(ctx context.Context, familyID, liabilityID string) (core.LiabilityRecord, error)
		ListLiabilityPayments(ctx context.Context, liabilityID string) ([]core.LiabilityPayment, error)
	}

	WalletReader interface {
		ListWallets(ctx context.Context, familyID string) ([]core.Wallet, error)
	}

	GoalReader interface {
		ListActiveGoals(ctx context.Context, familyID string) ([]core.Goal, error)
	}

	CategoryReader interface {
		ListCategories(ctx context.Context, familyID string) ([]core.Category, error)
	}

	FamilyLister interface {
		ListFamilyIDs(ctx context.Context) ([]string, error)
	}

	// Store is everything a backend provides.
	Store interface {
		LedgerReader
		BudgetReader
		LiabilityReader
		WalletReader
		GoalReader
		CategoryReader
		FamilyLister
	}
)
