// Package payoff turns amortization schedules into liability-facing results:
// single-policy simulations, what-if scenario comparisons and payment history.
package payoff

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"famfin/internal/amortization"
	"famfin/internal/core"
	"famfin/internal/stats"
)

// Rates holds the two canonical values derived from the nominal annual rate.
type Rates struct {
	NominalAnnualPercent   float64 `json:"nominal_annual_percent"`
	MonthlyRatePercent     float64 `json:"monthly_rate_percent"`
	EffectiveAnnualPercent float64 `json:"effective_annual_percent"`
}

func RatesFor(annualPercent float64) Rates {
	return Rates{
		NominalAnnualPercent:   annualPercent,
		MonthlyRatePercent:     roundTo(amortization.MonthlyRate(annualPercent)*100, 6),
		EffectiveAnnualPercent: roundTo(amortization.EffectiveAnnualRate(annualPercent)*100, 4),
	}
}

type Step struct {
	Month              int             `json:"month"`
	Payment            decimal.Decimal `json:"payment"`
	Principal          decimal.Decimal `json:"principal"`
	Interest           decimal.Decimal `json:"interest"`
	EndingBalance      decimal.Decimal `json:"ending_balance"`
	CumulativeInterest decimal.Decimal `json:"cumulative_interest"`
}

type Totals struct {
	Months        int             `json:"months"`
	OneTimePaid   decimal.Decimal `json:"one_time_paid"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	FinalBalance  decimal.Decimal `json:"final_balance"`
	PaidOff       bool            `json:"paid_off"`
}

// Projection is the closed-form outlook at the base payment alone.
type Projection struct {
	Months         *float64         `json:"months,omitempty"`
	TotalInterest  *decimal.Decimal `json:"total_interest,omitempty"`
	NeverAmortizes bool             `json:"never_amortizes"`
}

type Simulation struct {
	StartingBalance decimal.Decimal     `json:"starting_balance"`
	MonthlyPayment  decimal.Decimal     `json:"monthly_payment"`
	Policy          amortization.Policy `json:"policy"`
	Rates           Rates               `json:"rates"`
	Schedule        []Step              `json:"schedule"`
	Totals          Totals              `json:"totals"`
	Projection      Projection          `json:"projection"`
}

// LoanFrom builds the engine input from a liability. The simulation starts
// from the remaining balance, not the original principal.
func LoanFrom(l core.LiabilityRecord) amortization.Loan {
	return amortization.Loan{
		Principal:         core.ToFloat(l.RemainingBalance),
		AnnualRatePercent: core.ToFloat(l.AnnualInterestRatePercent),
		MonthlyPayment:    core.ToFloat(l.MonthlyPaymentAmount),
	}
}

// Simulate runs one policy against loan and converts the schedule to currency values.
func Simulate(loan amortization.Loan, policy amortization.Policy) (Simulation, error) {
	var steps []Step
	totals, err := amortization.Walk(loan, policy, func(s amortization.Step) bool {
		steps = append(steps, Step{
			Month:              s.Month,
			Payment:            core.FromFloat(s.Payment),
			Principal:          core.FromFloat(s.Principal),
			Interest:           core.FromFloat(s.Interest),
			EndingBalance:      core.FromFloat(math.Max(0, s.EndingBalance)),
			CumulativeInterest: core.FromFloat(s.CumulativeInterest),
		})
		return true
	})
	if err != nil {
		return Simulation{}, err
	}

	sim := Simulation{
		StartingBalance: core.FromFloat(loan.Principal),
		MonthlyPayment:  core.FromFloat(loan.MonthlyPayment),
		Policy:          policy,
		Rates:           RatesFor(loan.AnnualRatePercent),
		Schedule:        steps,
		Totals:          totalsOf(totals),
	}

	months, err := amortization.MonthsToPayoff(loan.Principal, loan.AnnualRatePercent, loan.MonthlyPayment)
	switch {
	case err == nil:
		m := stats.Round2(months)
		interest := core.FromFloat(math.Max(0, loan.MonthlyPayment*months-loan.Principal))
		sim.Projection = Projection{Months: &m, TotalInterest: &interest}
	case errors.Is(err, amortization.ErrInvalidPayment):
		sim.Projection = Projection{NeverAmortizes: true}
	default:
		return Simulation{}, err
	}
	return sim, nil
}

func totalsOf(t amortization.Totals) Totals {
	return Totals{
		Months:        t.Months,
		OneTimePaid:   core.FromFloat(t.OneTimePaid),
		TotalPaid:     core.FromFloat(t.TotalPaid),
		TotalInterest: core.FromFloat(t.TotalInterest),
		FinalBalance:  core.FromFloat(math.Max(0, t.FinalBalance)),
		PaidOff:       t.PaidOff,
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
