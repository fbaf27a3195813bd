// Package core provides the ledger, budget and liability records shared by the
// analytics packages.
//
// This file contains the conversions between decimal currency values, used at
// every boundary, and the float64 values the numerical code works with.
package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// ToFloat converts a decimal amount to float64 for numerical work.
func ToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// FromFloat converts a computed value back to a currency amount rounded to cents.
// NaN and infinities collapse to zero.
func FromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f).Round(2)
}

// SumAmounts adds the amounts of the given entries exactly.
func SumAmounts(entries []LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// Amounts returns the entry amounts as float64, preserving order.
func Amounts(entries []LedgerEntry) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = ToFloat(e.Amount)
	}
	return out
}

// FilterKind returns the entries of the given kind, preserving order.
func FilterKind(entries []LedgerEntry, kind EntryKind) []LedgerEntry {
	out := make([]LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// GroupByCategory buckets entries by category id.
func GroupByCategory(entries []LedgerEntry) map[string][]LedgerEntry {
	groups := make(map[string][]LedgerEntry)
	for _, e := range entries {
		groups[e.CategoryID] = append(groups[e.CategoryID], e)
	}
	return groups
}
