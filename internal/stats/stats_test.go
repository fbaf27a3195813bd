package stats

import (
	"errors"
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMean(t *testing.T) {
	if _, err := Mean(nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Mean(nil) error = %v, want ErrEmptyInput", err)
	}
	got, err := Mean([]float64{1, 2, 3, 4})
	if err != nil || got != 2.5 {
		t.Fatalf("Mean() = %v, %v; want 2.5", got, err)
	}
}

func TestStdDev(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"single element", []float64{42}, 0},
		{"constant", []float64{5, 5, 5}, 0},
		{"population", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 2},
		{"two values", []float64{0, 10}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StdDev(tt.values)
			if err != nil {
				t.Fatalf("StdDev() error = %v", err)
			}
			if !approx(got, tt.want) {
				t.Errorf("StdDev() = %v, want %v", got, tt.want)
			}
			if got < 0 {
				t.Errorf("StdDev() negative: %v", got)
			}
		})
	}

	if _, err := StdDev([]float64{}); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("StdDev(empty) error = %v", err)
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	got, err := CoefficientOfVariation([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if err != nil || !approx(got, 40) {
		t.Fatalf("CoefficientOfVariation() = %v, %v; want 40", got, err)
	}
	got, err = CoefficientOfVariation([]float64{0, 0, 0})
	if err != nil || got != 0 {
		t.Fatalf("CoefficientOfVariation(zero mean) = %v, %v; want 0", got, err)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		values []float64
		want   float64
	}{
		{[]float64{3}, 3},
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2},
		{[]float64{10, 40, 20, 30, 60, 50}, 30},
	}
	for _, tt := range tests {
		got, err := Median(tt.values)
		if err != nil || got != tt.want {
			t.Errorf("Median(%v) = %v, %v; want %v", tt.values, got, err, tt.want)
		}
	}
}

func TestMedianDoesNotReorderInput(t *testing.T) {
	in := []float64{3, 1, 2}
	_, _ = Median(in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Fatalf("Median mutated input: %v", in)
	}
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name      string
		first     float64
		second    float64
		want      Trend
		wantDelta float64
	}{
		{"exactly +10 is stable", 100, 110, Stable, 10},
		{"exactly -10 is stable", 100, 90, Stable, -10},
		{"just above", 100, 110.5, Increasing, 10.5},
		{"just below", 100, 89.5, Decreasing, -10.5},
		{"zero first half", 0, 500, Stable, 0},
		{"flat", 50, 50, Stable, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, delta := ClassifyTrend(tt.first, tt.second)
			if got != tt.want {
				t.Errorf("ClassifyTrend() = %v, want %v", got, tt.want)
			}
			if !approx(delta, tt.wantDelta) {
				t.Errorf("ClassifyTrend() delta = %v, want %v", delta, tt.wantDelta)
			}
		})
	}
}

func TestRoundUpToStep(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{123456, 124000},
		{123000, 123000},
		{123000.0000001, 123000},
		{123000.01, 124000},
		{1, 1000},
		{0, 0},
		{-2500, 0},
	}
	for _, tt := range tests {
		if got := RoundUpToStep(tt.in, BudgetRoundingStep); got != tt.want {
			t.Errorf("RoundUpToStep(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
