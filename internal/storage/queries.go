package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05Z"

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type LedgerEntry struct {
	ID          string
	FamilyID    string
	Kind        string
	Amount      decimal.Decimal
	OccurredAt  string
	CategoryID  string
	WalletID    string
	Description string
}

type ListEntriesParams struct {
	FamilyID   string
	Kind       string
	CategoryID string
	From       string
	To         string
}

const listEntries = `-- name: ListEntries :many
SELECT id, family_id, kind, amount, occurred_at, category_id, wallet_id, description
FROM ledger_entries
WHERE family_id = ?1
  AND (?2 = '' OR kind = ?2)
  AND (?3 = '' OR category_id = ?3)
  AND (?4 = '' OR occurred_at >= ?4)
  AND (?5 = '' OR occurred_at < ?5)
ORDER BY occurred_at, id
`

func (q *Queries) ListEntries(ctx context.Context, arg ListEntriesParams) ([]LedgerEntry, error) {
	rows, err := q.db.QueryContext(ctx, listEntries, arg.FamilyID, arg.Kind, arg.CategoryID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerEntry
	for rows.Next() {
		var i LedgerEntry
		if err := rows.Scan(&i.ID, &i.FamilyID, &i.Kind, &i.Amount, &i.OccurredAt, &i.CategoryID, &i.WalletID, &i.Description); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertEntry = `-- name: UpsertEntry :exec
INSERT INTO ledger_entries (id, family_id, kind, amount, occurred_at, category_id, wallet_id, description)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    family_id = excluded.family_id, kind = excluded.kind, amount = excluded.amount,
    occurred_at = excluded.occurred_at, category_id = excluded.category_id,
    wallet_id = excluded.wallet_id, description = excluded.description
`

func (q *Queries) UpsertEntry(ctx context.Context, e LedgerEntry) error {
	_, err := q.db.ExecContext(ctx, upsertEntry, e.ID, e.FamilyID, e.Kind, e.Amount.String(), e.OccurredAt, e.CategoryID, e.WalletID, e.Description)
	return err
}

type Budget struct {
	ID          string
	FamilyID    string
	CategoryID  string
	PeriodYear  int64
	PeriodMonth int64
	Amount      decimal.Decimal
}

const listBudgets = `-- name: ListBudgets :many
SELECT id, family_id, category_id, period_year, period_month, amount
FROM budgets
WHERE family_id = ?1 AND period_year = ?2 AND (?3 = 0 OR period_month = ?3)
ORDER BY period_month, category_id
`

func (q *Queries) ListBudgets(ctx context.Context, familyID string, year, month int64) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, familyID, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		var i Budget
		if err := rows.Scan(&i.ID, &i.FamilyID, &i.CategoryID, &i.PeriodYear, &i.PeriodMonth, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertBudget = `-- name: UpsertBudget :exec
INSERT INTO budgets (id, family_id, category_id, period_year, period_month, amount)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (family_id, category_id, period_year, period_month) DO UPDATE SET amount = excluded.amount
`

func (q *Queries) UpsertBudget(ctx context.Context, b Budget) error {
	_, err := q.db.ExecContext(ctx, upsertBudget, b.ID, b.FamilyID, b.CategoryID, b.PeriodYear, b.PeriodMonth, b.Amount.String())
	return err
}

type Liability struct {
	ID                        string
	FamilyID                  string
	Name                      string
	Principal                 decimal.Decimal
	RemainingBalance          decimal.Decimal
	AnnualInterestRatePercent decimal.Decimal
	MonthlyPaymentAmount      decimal.Decimal
	OriginationDate           string
	DueDate                   sql.NullString
}

const getLiability = `-- name: GetLiability :one
SELECT id, family_id, name, principal, remaining_balance, annual_interest_rate_percent,
       monthly_payment_amount, origination_date, due_date
FROM liabilities
WHERE id = ? AND family_id = ?
`

func (q *Queries) GetLiability(ctx context.Context, id, familyID string) (Liability, error) {
	row := q.db.QueryRowContext(ctx, getLiability, id, familyID)
	var i Liability
	err := row.Scan(&i.ID, &i.FamilyID, &i.Name, &i.Principal, &i.RemainingBalance,
		&i.AnnualInterestRatePercent, &i.MonthlyPaymentAmount, &i.OriginationDate, &i.DueDate)
	return i, err
}

const upsertLiability = `-- name: UpsertLiability :exec
INSERT INTO liabilities (id, family_id, name, principal, remaining_balance, annual_interest_rate_percent,
                         monthly_payment_amount, origination_date, due_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    family_id = excluded.family_id, name = excluded.name, principal = excluded.principal,
    remaining_balance = excluded.remaining_balance,
    annual_interest_rate_percent = excluded.annual_interest_rate_percent,
    monthly_payment_amount = excluded.monthly_payment_amount,
    origination_date = excluded.origination_date, due_date = excluded.due_date
`

func (q *Queries) UpsertLiability(ctx context.Context, l Liability) error {
	_, err := q.db.ExecContext(ctx, upsertLiability, l.ID, l.FamilyID, l.Name, l.Principal.String(),
		l.RemainingBalance.String(), l.AnnualInterestRatePercent.String(), l.MonthlyPaymentAmount.String(),
		l.OriginationDate, l.DueDate)
	return err
}

type LiabilityPayment struct {
	ID                 string
	LiabilityID        string
	Amount             decimal.Decimal
	PrincipalComponent decimal.Decimal
	InterestComponent  decimal.Decimal
	PaidAt             string
}

const listLiabilityPayments = `-- name: ListLiabilityPayments :many
SELECT id, liability_id, amount, principal_component, interest_component, paid_at
FROM liability_payments
WHERE liability_id = ?
ORDER BY paid_at, id
`

func (q *Queries) ListLiabilityPayments(ctx context.Context, liabilityID string) ([]LiabilityPayment, error) {
	rows, err := q.db.QueryContext(ctx, listLiabilityPayments, liabilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LiabilityPayment
	for rows.Next() {
		var i LiabilityPayment
		if err := rows.Scan(&i.ID, &i.LiabilityID, &i.Amount, &i.PrincipalComponent, &i.InterestComponent, &i.PaidAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertLiabilityPayment = `-- name: UpsertLiabilityPayment :exec
INSERT INTO liability_payments (id, liability_id, amount, principal_component, interest_component, paid_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    liability_id = excluded.liability_id, amount = excluded.amount,
    principal_component = excluded.principal_component,
    interest_component = excluded.interest_component, paid_at = excluded.paid_at
`

func (q *Queries) UpsertLiabilityPayment(ctx context.Context, p LiabilityPayment) error {
	_, err := q.db.ExecContext(ctx, upsertLiabilityPayment, p.ID, p.LiabilityID, p.Amount.String(),
		p.PrincipalComponent.String(), p.InterestComponent.String(), p.PaidAt)
	return err
}

type Wallet struct {
	ID       string
	FamilyID string
	Name     string
	Balance  decimal.Decimal
}

const listWallets = `-- name: ListWallets :many
SELECT id, family_id, name, balance FROM wallets WHERE family_id = ? ORDER BY id
`

func (q *Queries) ListWallets(ctx context.Context, familyID string) ([]Wallet, error) {
	rows, err := q.db.QueryContext(ctx, listWallets, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Wallet
	for rows.Next() {
		var i Wallet
		if err := rows.Scan(&i.ID, &i.FamilyID, &i.Name, &i.Balance); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertWallet = `-- name: UpsertWallet :exec
INSERT INTO wallets (id, family_id, name, balance) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET family_id = excluded.family_id, name = excluded.name, balance = excluded.balance
`

func (q *Queries) UpsertWallet(ctx context.Context, w Wallet) error {
	_, err := q.db.ExecContext(ctx, upsertWallet, w.ID, w.FamilyID, w.Name, w.Balance.String())
	return err
}

type Goal struct {
	ID                string
	FamilyID          string
	Name              string
	TargetAmount      decimal.Decimal
	ContributedAmount decimal.Decimal
	Active            bool
	Deadline          sql.NullString
}

const listActiveGoals = `-- name: ListActiveGoals :many
SELECT id, family_id, name, target_amount, contributed_amount, active, deadline
FROM goals
WHERE family_id = ? AND active = 1
ORDER BY id
`

func (q *Queries) ListActiveGoals(ctx context.Context, familyID string) ([]Goal, error) {
	rows, err := q.db.QueryContext(ctx, listActiveGoals, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Goal
	for rows.Next() {
		var i Goal
		if err := rows.Scan(&i.ID, &i.FamilyID, &i.Name, &i.TargetAmount, &i.ContributedAmount, &i.Active, &i.Deadline); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertGoal = `-- name: UpsertGoal :exec
INSERT INTO goals (id, family_id, name, target_amount, contributed_amount, active, deadline)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    family_id = excluded.family_id, name = excluded.name, target_amount = excluded.target_amount,
    contributed_amount = excluded.contributed_amount, active = excluded.active, deadline = excluded.deadline
`

func (q *Queries) UpsertGoal(ctx context.Context, g Goal) error {
	_, err := q.db.ExecContext(ctx, upsertGoal, g.ID, g.FamilyID, g.Name, g.TargetAmount.String(),
		g.ContributedAmount.String(), g.Active, g.Deadline)
	return err
}

type Category struct {
	ID       string
	FamilyID string
	Name     string
	Kind     string
}

const listCategories = `-- name: ListCategories :many
SELECT id, family_id, name, kind FROM categories WHERE family_id = ? ORDER BY name
`

func (q *Queries) ListCategories(ctx context.Context, familyID string) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.FamilyID, &i.Name, &i.Kind); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertCategory = `-- name: UpsertCategory :exec
INSERT INTO categories (id, family_id, name, kind) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET family_id = excluded.family_id, name = excluded.name, kind = excluded.kind
`

func (q *Queries) UpsertCategory(ctx context.Context, c Category) error {
	_, err := q.db.ExecContext(ctx, upsertCategory, c.ID, c.FamilyID, c.Name, c.Kind)
	return err
}

const upsertFamily = `-- name: UpsertFamily :exec
INSERT INTO families (id, name) VALUES (?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name
`

func (q *Queries) UpsertFamily(ctx context.Context, id, name string) error {
	_, err := q.db.ExecContext(ctx, upsertFamily, id, name)
	return err
}

const listFamilyIDs = `-- name: ListFamilyIDs :many
SELECT id FROM families
UNION
SELECT DISTINCT family_id FROM ledger_entries
ORDER BY 1
`

func (q *Queries) ListFamilyIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listFamilyIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	return items, rows.Err()
}
