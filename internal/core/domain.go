package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  EntryKind = "income"
	Expense EntryKind = "expense"
)

type (
	EntryKind string

	Family struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Category struct {
		ID       string    `json:"id"`
		FamilyID string    `json:"family_id"`
		Name     string    `json:"name"`
		Kind     EntryKind `json:"kind"`
	}

	Wallet struct {
		ID       string          `json:"id"`
		FamilyID string          `json:"family_id"`
		Name     string          `json:"name"`
		Balance  decimal.Decimal `json:"balance"`
	}

	// LedgerEntry is a single income or expense transaction. Amounts are
	// never signed; Kind carries the direction.
	LedgerEntry struct {
		ID          string          `json:"id"`
		FamilyID    string          `json:"family_id"`
		Kind        EntryKind       `json:"kind"`
		Amount      decimal.Decimal `json:"amount"`
		OccurredAt  time.Time       `json:"occurred_at"`
		CategoryID  string          `json:"category_id"`
		WalletID    string          `json:"wallet_id"`
		Description string          `json:"description,omitempty"`
	}

	BudgetRecord struct {
		ID          string          `json:"id"`
		FamilyID    string          `json:"family_id"`
		CategoryID  string          `json:"category_id"`
		PeriodYear  int             `json:"period_year"`
		PeriodMonth int             `json:"period_month"`
		Amount      decimal.Decimal `json:"amount"`
	}

	LiabilityRecord struct {
		ID                        string          `json:"id"`
		FamilyID                  string          `json:"family_id"`
		Name                      string          `json:"name"`
		Principal                 decimal.Decimal `json:"principal"`
		RemainingBalance          decimal.Decimal `json:"remaining_balance"`
		AnnualInterestRatePercent decimal.Decimal `json:"annual_interest_rate_percent"`
		MonthlyPaymentAmount      decimal.Decimal `json:"monthly_payment_amount"`
		OriginationDate           time.Time       `json:"origination_date"`
		DueDate                   *time.Time      `json:"due_date,omitempty"`
	}

	LiabilityPayment struct {
		ID                 string          `json:"id"`
		LiabilityID        string          `json:"liability_id"`
		Amount             decimal.Decimal `json:"amount"`
		PrincipalComponent decimal.Decimal `json:"principal_component"`
		InterestComponent  decimal.Decimal `json:"interest_component"`
		PaidAt             time.Time       `json:"paid_at"`
	}

	Goal struct {
		ID                string          `json:"id"`
		FamilyID          string          `json:"family_id"`
		Name              string          `json:"name"`
		TargetAmount      decimal.Decimal `json:"target_amount"`
		ContributedAmount decimal.Decimal `json:"contributed_amount"`
		Active            bool            `json:"active"`
		Deadline          *time.Time      `json:"deadline,omitempty"`
	}

	// EntryFilter selects ledger entries in the half-open range [From, To).
	// Zero values disable the corresponding condition.
	EntryFilter struct {
		Kind       EntryKind
		CategoryID string
		From       time.Time
		To         time.Time
	}

	// Period identifies a calendar month.
	Period struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidKind    = errors.New("invalid entry kind")
	ErrInvalidRate    = errors.New("invalid interest rate")
	ErrInvalidBalance = errors.New("invalid remaining balance")
	ErrInvalidPeriod  = errors.New("invalid period")
	ErrEmptyID        = errors.New("empty id")
)

var hundred = decimal.NewFromInt(100)

func (k EntryKind) Valid() bool {
	return k == Income || k == Expense
}

func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, e.Kind)
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if e.OccurredAt.IsZero() {
		return errors.New("occurred_at cannot be zero")
	}
	return nil
}

// Matches reports whether the entry passes every condition set on f.
func (f EntryFilter) Matches(e LedgerEntry) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.CategoryID != "" && e.CategoryID != f.CategoryID {
		return false
	}
	if !f.From.IsZero() && e.OccurredAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.OccurredAt.Before(f.To) {
		return false
	}
	return true
}

func (b BudgetRecord) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrEmptyID
	}
	if b.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return Period{Year: b.PeriodYear, Month: b.PeriodMonth}.Validate()
}

func (b BudgetRecord) Period() Period {
	return Period{Year: b.PeriodYear, Month: b.PeriodMonth}
}

func (l LiabilityRecord) Validate() error {
	if !l.Principal.IsPositive() {
		return fmt.Errorf("%w: principal must be positive", ErrInvalidAmount)
	}
	if l.RemainingBalance.IsNegative() || l.RemainingBalance.GreaterThan(l.Principal) {
		return ErrInvalidBalance
	}
	if l.AnnualInterestRatePercent.IsNegative() || l.AnnualInterestRatePercent.GreaterThan(hundred) {
		return ErrInvalidRate
	}
	if l.MonthlyPaymentAmount.IsNegative() {
		return fmt.Errorf("%w: monthly payment cannot be negative", ErrInvalidAmount)
	}
	return nil
}

// Progress returns contributions as a percentage of the target, 0 for a zero target.
func (g Goal) Progress() float64 {
	if !g.TargetAmount.IsPositive() {
		return 0
	}
	return ToFloat(g.ContributedAmount.Div(g.TargetAmount).Mul(hundred))
}

func (p Period) Validate() error {
	if p.Year < 1900 || p.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, p.Year)
	}
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, p.Month)
	}
	return nil
}

// Start returns the first instant of the period in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls inside the calendar month.
func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return t.Year() == p.Year && int(t.Month()) == p.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Dataset is the seed format shared by the memory and sqlite backends.
type Dataset struct {
	Families    []Family           `json:"families"`
	Categories  []Category         `json:"categories"`
	Wallets     []Wallet           `json:"wallets"`
	Entries     []LedgerEntry      `json:"entries"`
	Budgets     []BudgetRecord     `json:"budgets"`
	Liabilities []LiabilityRecord  `json:"liabilities"`
	Payments    []LiabilityPayment `json:"payments"`
	Goals       []Goal             `json:"goals"`
}

// Validate checks every record and returns the first problem found.
func (d Dataset) Validate() error {
	for _, e := range d.Entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entry %s: %w", e.ID, err)
		}
	}
	for _, b := range d.Budgets {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("budget %s: %w", b.ID, err)
		}
	}
	for _, l := range d.Liabilities {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("liability %s: %w", l.ID, err)
		}
	}
	return nil
}
