package payoff

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"famfin/internal/core"
)

// History aggregates the payments already made on a liability.
type History struct {
	Payments      int             `json:"payments"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	PrincipalPaid decimal.Decimal `json:"principal_paid"`
	InterestPaid  decimal.Decimal `json:"interest_paid"`
	FirstPaidAt   *time.Time      `json:"first_paid_at,omitempty"`
	LastPaidAt    *time.Time      `json:"last_paid_at,omitempty"`
}

func Summarize(payments []core.LiabilityPayment) History {
	h := History{
		TotalPaid:     decimal.Zero,
		PrincipalPaid: decimal.Zero,
		InterestPaid:  decimal.Zero,
	}
	if len(payments) == 0 {
		return h
	}

	sorted := make([]core.LiabilityPayment, len(payments))
	copy(sorted, payments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PaidAt.Before(sorted[j].PaidAt) })

	for _, p := range sorted {
		h.TotalPaid = h.TotalPaid.Add(p.Amount)
		h.PrincipalPaid = h.PrincipalPaid.Add(p.PrincipalComponent)
		h.InterestPaid = h.InterestPaid.Add(p.InterestComponent)
	}
	first := sorted[0].PaidAt
	last := sorted[len(sorted)-1].PaidAt
	h.Payments = len(sorted)
	h.FirstPaidAt = &first
	h.LastPaidAt = &last
	return h
}
