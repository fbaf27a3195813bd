// Package amortization generates month-by-month loan schedules and solves the
// closed-form payment and payoff-horizon equations.
package amortization

import (
	"errors"
	"math"
)

const (
	// MaxMonths bounds every schedule, including ones whose payment never
	// covers the interest.
	MaxMonths = 600

	// BalanceEpsilon is the balance at or below which a loan counts as repaid.
	BalanceEpsilon = 0.01
)

var (
	ErrInvalidPayment = errors.New("invalid payment")
	ErrInvalidRate    = errors.New("invalid interest rate")
	ErrInvalidHorizon = errors.New("invalid payoff horizon")
)

type Loan struct {
	Principal         float64
	AnnualRatePercent float64
	MonthlyPayment    float64
}

// Policy augments the base payment. OneTime is applied before the first
// month accrues interest; YearlyBonus is added every twelfth month.
type Policy struct {
	OneTime        float64 `json:"one_time"`
	RecurringExtra float64 `json:"recurring_extra"`
	YearlyBonus    float64 `json:"yearly_bonus"`
}

type Step struct {
	Month              int     `json:"month"`
	Payment            float64 `json:"payment"`
	Principal          float64 `json:"principal"`
	Interest           float64 `json:"interest"`
	EndingBalance      float64 `json:"ending_balance"`
	CumulativeInterest float64 `json:"cumulative_interest"`
	CumulativePaid     float64 `json:"cumulative_paid"`
}

// Totals summarises a walked schedule. TotalPaid includes the one-time payment.
type Totals struct {
	Months        int
	OneTimePaid   float64
	TotalPaid     float64
	TotalInterest float64
	FinalBalance  float64
	PaidOff       bool
}

type Schedule struct {
	Steps []Step
	Totals
}

// MonthlyRate converts a nominal annual percentage into the periodic monthly rate.
func MonthlyRate(annualPercent float64) float64 {
	return annualPercent / 100 / 12
}

// EffectiveAnnualRate returns (1+r)^12-1 for the monthly rate r, as a fraction.
func EffectiveAnnualRate(annualPercent float64) float64 {
	return math.Pow(1+MonthlyRate(annualPercent), 12) - 1
}

func (l Loan) validate(p Policy) error {
	if !(l.MonthlyPayment > 0) {
		return ErrInvalidPayment
	}
	if p.OneTime < 0 || p.RecurringExtra < 0 || p.YearlyBonus < 0 {
		return ErrInvalidPayment
	}
	if l.AnnualRatePercent < 0 || l.AnnualRatePercent > 100 {
		return ErrInvalidRate
	}
	return nil
}

// Walk produces the schedule one step at a time. fn returning false stops the
// walk early; the returned totals then cover only the visited steps.
func Walk(loan Loan, policy Policy, fn func(Step) bool) (Totals, error) {
	if err := loan.validate(policy); err != nil {
		return Totals{}, err
	}

	r := MonthlyRate(loan.AnnualRatePercent)
	balance := math.Max(0, loan.Principal)
	var t Totals

	if policy.OneTime > 0 && balance > 0 {
		applied := math.Min(policy.OneTime, balance)
		balance -= applied
		t.OneTimePaid = applied
		t.TotalPaid = applied
	}

	for month := 1; balance > BalanceEpsilon && month <= MaxMonths; month++ {
		interest := balance * r
		payment := loan.MonthlyPayment + policy.RecurringExtra
		if policy.YearlyBonus > 0 && month%12 == 0 {
			payment += policy.YearlyBonus
		}
		principal := math.Min(payment-interest, balance)

		balance -= principal
		t.Months = month
		t.TotalInterest += interest
		t.TotalPaid += principal + interest

		step := Step{
			Month:              month,
			Payment:            principal + interest,
			Principal:          principal,
			Interest:           interest,
			EndingBalance:      balance,
			CumulativeInterest: t.TotalInterest,
			CumulativePaid:     t.TotalPaid,
		}
		if fn != nil && !fn(step) {
			break
		}
	}

	t.FinalBalance = balance
	t.PaidOff = balance <= BalanceEpsilon
	return t, nil
}

// Simulate walks the whole schedule and collects every step.
func Simulate(loan Loan, policy Policy) (Schedule, error) {
	var steps []Step
	totals, err := Walk(loan, policy, func(s Step) bool {
		steps = append(steps, s)
		return true
	})
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{Steps: steps, Totals: totals}, nil
}

// RequiredPayment solves for the level payment that repays principal in exactly months.
func RequiredPayment(principal, annualPercent float64, months int) (float64, error) {
	if months < 1 {
		return 0, ErrInvalidHorizon
	}
	if annualPercent < 0 || annualPercent > 100 {
		return 0, ErrInvalidRate
	}
	r := MonthlyRate(annualPercent)
	n := float64(months)
	if r == 0 {
		return principal / n, nil
	}
	growth := math.Pow(1+r, n)
	return principal * r * growth / (growth - 1), nil
}

// MonthsToPayoff solves for the (fractional) number of months a fixed payment
// needs to repay principal. A payment that does not exceed the first month's
// interest never amortizes and fails with ErrInvalidPayment.
func MonthsToPayoff(principal, annualPercent, payment float64) (float64, error) {
	if !(payment > 0) {
		return 0, ErrInvalidPayment
	}
	if annualPercent < 0 || annualPercent > 100 {
		return 0, ErrInvalidRate
	}
	if principal <= 0 {
		return 0, nil
	}
	r := MonthlyRate(annualPercent)
	if r == 0 {
		return principal / payment, nil
	}
	interest := principal * r
	if payment-interest <= interestTolerance(interest) {
		return 0, ErrInvalidPayment
	}
	return math.Log(payment/(payment-interest)) / math.Log(1+r), nil
}

// ProjectedTotalInterest is the interest paid over MonthsToPayoff at a fixed payment.
func ProjectedTotalInterest(principal, annualPercent, payment float64) (float64, error) {
	n, err := MonthsToPayoff(principal, annualPercent, payment)
	if err != nil {
		return 0, err
	}
	return math.Max(0, payment*n-principal), nil
}

// interestTolerance absorbs float noise when a payment equals the interest charge.
func interestTolerance(interest float64) float64 {
	return 1e-9 * math.Max(1, math.Abs(interest))
}
