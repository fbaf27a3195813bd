package amortization

import (
	"errors"
	"math"
	"testing"
)

func near(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestSimulateTerminates(t *testing.T) {
	loan := Loan{Principal: 12_000_000, AnnualRatePercent: 12, MonthlyPayment: 1_200_000}
	s, err := Simulate(loan, Policy{})
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if !s.PaidOff || s.FinalBalance > BalanceEpsilon {
		t.Fatalf("expected loan repaid, final balance %v", s.FinalBalance)
	}
	if s.Months != 11 || len(s.Steps) != 11 {
		t.Fatalf("Months = %d, steps = %d, want 11", s.Months, len(s.Steps))
	}

	principalPaid := loan.Principal - s.FinalBalance
	if !near(s.TotalInterest+principalPaid, s.TotalPaid, BalanceEpsilon) {
		t.Fatalf("interest %v + principal %v != paid %v", s.TotalInterest, principalPaid, s.TotalPaid)
	}

	first := s.Steps[0]
	if !near(first.Interest, 120_000, 1e-6) || !near(first.Principal, 1_080_000, 1e-6) {
		t.Fatalf("first step = %+v", first)
	}
	last := s.Steps[len(s.Steps)-1]
	if last.Payment >= loan.MonthlyPayment {
		t.Fatalf("final payment should be capped at the outstanding amount, got %v", last.Payment)
	}
	if !near(last.CumulativeInterest, s.TotalInterest, 1e-9) {
		t.Fatalf("cumulative interest %v != total %v", last.CumulativeInterest, s.TotalInterest)
	}
}

func TestSimulateZeroRate(t *testing.T) {
	s, err := Simulate(Loan{Principal: 10_000_000, MonthlyPayment: 1_000_000}, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Months != 10 || s.TotalInterest != 0 || s.TotalPaid != 10_000_000 {
		t.Fatalf("schedule = %+v", s.Totals)
	}
}

func TestSimulateInvalidPayment(t *testing.T) {
	for _, loan := range []Loan{
		{Principal: 1000, AnnualRatePercent: 5},
		{Principal: 1000, AnnualRatePercent: 5, MonthlyPayment: -10},
	} {
		if _, err := Simulate(loan, Policy{}); !errors.Is(err, ErrInvalidPayment) {
			t.Errorf("Simulate(%+v) error = %v, want ErrInvalidPayment", loan, err)
		}
	}
	if _, err := Simulate(Loan{Principal: 1000, MonthlyPayment: 10}, Policy{RecurringExtra: -1}); !errors.Is(err, ErrInvalidPayment) {
		t.Errorf("negative extra should be rejected, got %v", err)
	}
	if _, err := Simulate(Loan{Principal: 1000, AnnualRatePercent: 120, MonthlyPayment: 10}, Policy{}); !errors.Is(err, ErrInvalidRate) {
		t.Errorf("rate above 100 should be rejected, got %v", err)
	}
}

func TestSimulateHitsMonthCap(t *testing.T) {
	// 1% monthly interest on 1,000,000 is exactly the payment.
	s, err := Simulate(Loan{Principal: 1_000_000, AnnualRatePercent: 12, MonthlyPayment: 10_000}, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Months != MaxMonths || s.PaidOff {
		t.Fatalf("Months = %d PaidOff = %v, want %d and false", s.Months, s.PaidOff, MaxMonths)
	}

	s, err = Simulate(Loan{Principal: 1_000_000, AnnualRatePercent: 12, MonthlyPayment: 1}, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Months != MaxMonths || s.FinalBalance <= 1_000_000 {
		t.Fatalf("underpaying loan should grow for %d months, got %d months balance %v", MaxMonths, s.Months, s.FinalBalance)
	}
}

func TestSimulatePolicy(t *testing.T) {
	tests := []struct {
		name       string
		loan       Loan
		policy     Policy
		wantMonths int
		wantPaid   float64
	}{
		{"one time", Loan{Principal: 1000, MonthlyPayment: 100}, Policy{OneTime: 500}, 5, 1000},
		{"one time above balance", Loan{Principal: 1000, MonthlyPayment: 100}, Policy{OneTime: 5000}, 0, 1000},
		{"recurring extra", Loan{Principal: 1000, MonthlyPayment: 100}, Policy{RecurringExtra: 100}, 5, 1000},
		{"yearly bonus", Loan{Principal: 10000, MonthlyPayment: 500}, Policy{YearlyBonus: 2000}, 16, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Simulate(tt.loan, tt.policy)
			if err != nil {
				t.Fatal(err)
			}
			if s.Months != tt.wantMonths || !near(s.TotalPaid, tt.wantPaid, 1e-9) {
				t.Fatalf("Months = %d TotalPaid = %v, want %d %v", s.Months, s.TotalPaid, tt.wantMonths, tt.wantPaid)
			}
		})
	}
}

func TestWalkStopsEarly(t *testing.T) {
	var seen int
	totals, err := Walk(Loan{Principal: 10_000, MonthlyPayment: 100}, Policy{}, func(Step) bool {
		seen++
		return seen < 3
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen != 3 || totals.Months != 3 || totals.PaidOff {
		t.Fatalf("seen = %d totals = %+v", seen, totals)
	}
}

func TestRequiredPayment(t *testing.T) {
	got, err := RequiredPayment(12_000, 0, 12)
	if err != nil || got != 1000 {
		t.Fatalf("RequiredPayment(0%%) = %v, %v; want 1000", got, err)
	}

	p, err := RequiredPayment(12_000_000, 12, 24)
	if err != nil {
		t.Fatal(err)
	}
	s, err := Simulate(Loan{Principal: 12_000_000, AnnualRatePercent: 12, MonthlyPayment: p}, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Months != 24 || !s.PaidOff {
		t.Fatalf("required payment %v repaid in %d months, want 24", p, s.Months)
	}

	n, err := MonthsToPayoff(12_000_000, 12, p)
	if err != nil || !near(n, 24, 1e-6) {
		t.Fatalf("MonthsToPayoff() = %v, %v; want 24", n, err)
	}

	if _, err := RequiredPayment(1000, 5, 0); !errors.Is(err, ErrInvalidHorizon) {
		t.Fatalf("expected ErrInvalidHorizon, got %v", err)
	}
}

func TestMonthsToPayoff(t *testing.T) {
	n, err := MonthsToPayoff(12_000_000, 12, 1_200_000)
	if err != nil || !near(n, math.Log(1.2e6/1.08e6)/math.Log(1.01), 1e-9) {
		t.Fatalf("MonthsToPayoff() = %v, %v", n, err)
	}

	n, err = MonthsToPayoff(10_000_000, 0, 1_000_000)
	if err != nil || n != 10 {
		t.Fatalf("MonthsToPayoff(0%%) = %v, %v; want 10", n, err)
	}

	if _, err := MonthsToPayoff(1_000_000, 12, 10_000); !errors.Is(err, ErrInvalidPayment) {
		t.Fatalf("payment equal to interest: error = %v, want ErrInvalidPayment", err)
	}
	if _, err := MonthsToPayoff(1_000_000, 12, 9_000); !errors.Is(err, ErrInvalidPayment) {
		t.Fatalf("payment below interest: error = %v, want ErrInvalidPayment", err)
	}
	if _, err := MonthsToPayoff(1_000_000, 12, 0); !errors.Is(err, ErrInvalidPayment) {
		t.Fatalf("zero payment: error = %v, want ErrInvalidPayment", err)
	}
}

func TestProjectedTotalInterest(t *testing.T) {
	got, err := ProjectedTotalInterest(10_000_000, 0, 1_000_000)
	if err != nil || got != 0 {
		t.Fatalf("ProjectedTotalInterest(0%%) = %v, %v", got, err)
	}
	p, _ := RequiredPayment(100_000, 6, 60)
	got, err = ProjectedTotalInterest(100_000, 6, p)
	if err != nil || !near(got, p*60-100_000, 1e-4) {
		t.Fatalf("ProjectedTotalInterest() = %v, %v", got, err)
	}
}

func TestRates(t *testing.T) {
	if got := MonthlyRate(12); !near(got, 0.01, 1e-15) {
		t.Fatalf("MonthlyRate(12) = %v", got)
	}
	if got := EffectiveAnnualRate(12); !near(got, 0.12682503013196977, 1e-12) {
		t.Fatalf("EffectiveAnnualRate(12) = %v", got)
	}
	if EffectiveAnnualRate(0) != 0 {
		t.Fatalf("EffectiveAnnualRate(0) should be 0")
	}
}
