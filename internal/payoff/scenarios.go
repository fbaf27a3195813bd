package payoff

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"famfin/internal/amortization"
	"famfin/internal/core"
	"famfin/internal/stats"
)

type ScenarioKind string

const (
	Baseline     ScenarioKind = "baseline"
	ExtraMonthly ScenarioKind = "extra_monthly"
	Double       ScenarioKind = "double_payment"
	FiftyPercent ScenarioKind = "fifty_percent_more"
	TargetDate   ScenarioKind = "target_payoff"
)

// highRatePercent is the nominal rate from which extra payments are recommended outright.
const highRatePercent = 10.0

type BreakEven struct {
	ExtraAmount decimal.Decimal `json:"extra_amount"`
	Months      *float64        `json:"months,omitempty"`
	Reachable   bool            `json:"reachable"`
}

type Scenario struct {
	Name                string          `json:"name"`
	Kind                ScenarioKind    `json:"kind"`
	MonthlyPayment      decimal.Decimal `json:"monthly_payment"`
	Months              int             `json:"months"`
	TotalPaid           decimal.Decimal `json:"total_paid"`
	TotalInterest       decimal.Decimal `json:"total_interest"`
	PaidOff             bool            `json:"paid_off"`
	MonthsSaved         int             `json:"months_saved"`
	InterestSaved       decimal.Decimal `json:"interest_saved"`
	PercentageReduction float64         `json:"percentage_reduction"`
	YearsSaved          float64         `json:"years_saved"`
	BreakEven           *BreakEven      `json:"break_even,omitempty"`

	interest float64
	extra    float64
}

type Comparison struct {
	StartingBalance decimal.Decimal `json:"starting_balance"`
	Rates           Rates           `json:"rates"`
	Baseline        Scenario        `json:"baseline"`
	Scenarios       []Scenario      `json:"scenarios"`
	Recommendations []string        `json:"recommendations"`
}

type Options struct {
	// ExtraPayments are monthly amounts added on top of the current payment.
	// Non-positive and duplicate values are ignored.
	ExtraPayments []float64
	// TargetMonths, when positive, adds a scenario paying off in that many months.
	TargetMonths int
}

// Compare runs every scenario against the same loan value and measures each
// one against the baseline at the current payment.
func Compare(loan amortization.Loan, opts Options) (Comparison, error) {
	base, err := run(loan, amortization.Policy{})
	if err != nil {
		return Comparison{}, err
	}
	baseline := scenarioFrom("current payment", Baseline, loan.MonthlyPayment, 0, base)

	var scenarios []Scenario
	for _, extra := range normalizeExtras(opts.ExtraPayments) {
		s, err := extraScenario(loan, fmt.Sprintf("+%s monthly", core.FromFloat(extra).StringFixed(2)), ExtraMonthly, extra)
		if err != nil {
			return Comparison{}, err
		}
		scenarios = append(scenarios, s)
	}

	double, err := extraScenario(loan, "double payment", Double, loan.MonthlyPayment)
	if err != nil {
		return Comparison{}, err
	}
	fifty, err := extraScenario(loan, "+50% payment", FiftyPercent, loan.MonthlyPayment*0.5)
	if err != nil {
		return Comparison{}, err
	}
	scenarios = append(scenarios, double, fifty)

	if opts.TargetMonths > 0 {
		payment, err := amortization.RequiredPayment(loan.Principal, loan.AnnualRatePercent, opts.TargetMonths)
		if err != nil {
			return Comparison{}, err
		}
		target := loan
		target.MonthlyPayment = payment
		totals, err := run(target, amortization.Policy{})
		if err != nil {
			return Comparison{}, err
		}
		name := fmt.Sprintf("payoff in %d months", opts.TargetMonths)
		scenarios = append(scenarios, scenarioFrom(name, TargetDate, payment, math.Max(0, payment-loan.MonthlyPayment), totals))
	}

	for i := range scenarios {
		measure(&scenarios[i], baseline)
	}

	return Comparison{
		StartingBalance: core.FromFloat(loan.Principal),
		Rates:           RatesFor(loan.AnnualRatePercent),
		Baseline:        baseline,
		Scenarios:       scenarios,
		Recommendations: recommend(loan, baseline, scenarios),
	}, nil
}

func run(loan amortization.Loan, policy amortization.Policy) (amortization.Totals, error) {
	return amortization.Walk(loan, policy, nil)
}

func extraScenario(loan amortization.Loan, name string, kind ScenarioKind, extra float64) (Scenario, error) {
	totals, err := run(loan, amortization.Policy{RecurringExtra: extra})
	if err != nil {
		return Scenario{}, err
	}
	return scenarioFrom(name, kind, loan.MonthlyPayment+extra, extra, totals), nil
}

func scenarioFrom(name string, kind ScenarioKind, payment, extra float64, t amortization.Totals) Scenario {
	return Scenario{
		Name:           name,
		Kind:           kind,
		MonthlyPayment: core.FromFloat(payment),
		Months:         t.Months,
		TotalPaid:      core.FromFloat(t.TotalPaid),
		TotalInterest:  core.FromFloat(t.TotalInterest),
		PaidOff:        t.PaidOff,
		InterestSaved:  decimal.Zero,
		interest:       t.TotalInterest,
		extra:          extra,
	}
}

// measure fills the savings of s relative to baseline.
func measure(s *Scenario, baseline Scenario) {
	saved := baseline.interest - s.interest
	s.MonthsSaved = baseline.Months - s.Months
	s.InterestSaved = core.FromFloat(saved)
	if baseline.interest != 0 {
		s.PercentageReduction = stats.Round2(saved * 100 / baseline.interest)
	}
	s.YearsSaved = stats.Round2(float64(s.MonthsSaved) / 12)
	if s.extra > 0 {
		be := BreakEvenFor(s.extra, saved, baseline.Months)
		s.BreakEven = &be
	}
}

// BreakEvenFor returns the months after which interest saved, spread evenly
// over the baseline term, adds up to the monthly extra amount.
func BreakEvenFor(extra, interestSaved float64, baselineMonths int) BreakEven {
	be := BreakEven{ExtraAmount: core.FromFloat(extra)}
	if interestSaved <= 0 || baselineMonths <= 0 {
		return be
	}
	perMonth := interestSaved / float64(baselineMonths)
	months := stats.Round2(extra / perMonth)
	be.Months = &months
	be.Reachable = true
	return be
}

func normalizeExtras(extras []float64) []float64 {
	seen := make(map[float64]bool, len(extras))
	var out []float64
	for _, e := range extras {
		e = stats.Round2(e)
		if e <= 0 || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	sort.Float64s(out)
	return out
}

func recommend(loan amortization.Loan, baseline Scenario, scenarios []Scenario) []string {
	var recs []string

	if _, err := amortization.MonthsToPayoff(loan.Principal, loan.AnnualRatePercent, loan.MonthlyPayment); err != nil {
		recs = append(recs, fmt.Sprintf(
			"The current payment of %s does not cover the monthly interest charge; the balance will never be repaid without a larger payment",
			baseline.MonthlyPayment.StringFixed(2)))
	} else if !baseline.PaidOff {
		recs = append(recs, fmt.Sprintf(
			"At the current payment the balance is not repaid within %d months", amortization.MaxMonths))
	}

	var best *Scenario
	for i := range scenarios {
		s := &scenarios[i]
		if s.Kind == TargetDate || s.interest >= baseline.interest {
			continue
		}
		if best == nil || s.interest < best.interest {
			best = s
		}
	}
	if best != nil {
		recs = append(recs, fmt.Sprintf(
			"Paying %s (%s a month) saves %s in interest and finishes %d months earlier",
			best.Name, best.MonthlyPayment.StringFixed(2), best.InterestSaved.StringFixed(2), best.MonthsSaved))
	}

	for _, s := range scenarios {
		if s.Kind != ExtraMonthly || s.BreakEven == nil || !s.BreakEven.Reachable {
			continue
		}
		recs = append(recs, fmt.Sprintf(
			"An extra %s a month pays for itself in interest savings after about %.1f months",
			s.BreakEven.ExtraAmount.StringFixed(2), *s.BreakEven.Months))
		break
	}

	if loan.AnnualRatePercent >= highRatePercent {
		recs = append(recs, fmt.Sprintf(
			"The %.2f%% rate is high; directing spare cash to this liability is likely the best use of savings",
			loan.AnnualRatePercent))
	}

	if len(recs) == 0 {
		recs = append(recs, "The current payment plan is reasonable; extra payments bring little interest benefit")
	}
	return recs
}
