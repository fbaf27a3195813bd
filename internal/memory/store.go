package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"famfin/internal/core"
	"famfin/internal/ports"
)

// Store serves a dataset held in memory. It is safe for concurrent readers.
type Store struct {
	mu sync.RWMutex
	ds core.Dataset
}

var _ ports.Store = (*Store)(nil)

func New(ds core.Dataset) (*Store, error) {
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("validate dataset: %w", err)
	}
	return &Store{ds: ds}, nil
}

// NewFromFile loads a JSON dataset. An empty path yields an empty store.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(core.Dataset{})
	}
	ds, err := LoadDataset(path)
	if err != nil {
		return nil, err
	}
	return New(ds)
}

// LoadDataset reads a JSON seed file.
func LoadDataset(path string) (core.Dataset, error) {
	var ds core.Dataset
	raw, err := os.ReadFile(path)
	if err != nil {
		return ds, fmt.Errorf("read dataset: %w", err)
	}
	if err := json.Unmarshal(raw, &ds); err != nil {
		return ds, fmt.Errorf("decode dataset: %w", err)
	}
	return ds, nil
}

func (s *Store) ListEntries(_ context.Context, familyID string, filter core.EntryFilter) ([]core.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.LedgerEntry
	for _, e := range s.ds.Entries {
		if e.FamilyID == familyID && filter.Matches(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (s *Store) ListBudgets(_ context.Context, familyID string, year, month int) ([]core.BudgetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.BudgetRecord
	for _, b := range s.ds.Budgets {
		if b.FamilyID != familyID || b.PeriodYear != year {
			continue
		}
		if month != 0 && b.PeriodMonth != month {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) GetLiability(_ context.Context, familyID, liabilityID string) (core.LiabilityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.ds.Liabilities {
		if l.ID == liabilityID && l.FamilyID == familyID {
			return l, nil
		}
	}
	return core.LiabilityRecord{}, fmt.Errorf("liability %s: %w", liabilityID, core.ErrNotFound)
}

func (s *Store) ListLiabilityPayments(_ context.Context, liabilityID string) ([]core.LiabilityPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.LiabilityPayment
	for _, p := range s.ds.Payments {
		if p.LiabilityID == liabilityID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaidAt.Before(out[j].PaidAt) })
	return out, nil
}

func (s *Store) ListWallets(_ context.Context, familyID string) ([]core.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Wallet
	for _, w := range s.ds.Wallets {
		if w.FamilyID == familyID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *Store) ListActiveGoals(_ context.Context, familyID string) ([]core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Goal
	for _, g := range s.ds.Goals {
		if g.FamilyID == familyID && g.Active {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Store) ListCategories(_ context.Context, familyID string) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Category
	for _, c := range s.ds.Categories {
		if c.FamilyID == familyID {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListFamilyIDs returns declared families plus any family referenced by an entry.
func (s *Store) ListFamilyIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, f := range s.ds.Families {
		seen[f.ID] = struct{}{}
	}
	for _, e := range s.ds.Entries {
		seen[e.FamilyID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		if id != "" {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}
