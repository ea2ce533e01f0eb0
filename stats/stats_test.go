package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestStdDev(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single value", []float64{42}, 0},
		{"constant", []float64{3, 3, 3, 3}, 0},
		{"population", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 2},
		{"two values", []float64{1, 3}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StdDev(tt.values); !almostEqual(got, tt.want) {
				t.Errorf("StdDev(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestMean(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %v, want 0", got)
	}
	if got := Mean([]float64{1, 2, 3, 4}); !almostEqual(got, 2.5) {
		t.Errorf("Mean = %v, want 2.5", got)
	}
}

func TestZScore(t *testing.T) {
	if got := ZScore(10, 5, 0); got != 0 {
		t.Errorf("ZScore with zero stddev = %v, want 0", got)
	}

	// Reflecting value around the mean negates the score.
	pairs := []struct{ value, mean, stddev float64 }{
		{-5, -1, 0.5},
		{120000, 200000, 32000},
		{3.3, 1.1, 0.7},
	}
	for _, p := range pairs {
		z := ZScore(p.value, p.mean, p.stddev)
		reflected := ZScore(2*p.mean-p.value, p.mean, p.stddev)
		if !almostEqual(z, -reflected) {
			t.Errorf("ZScore(%v) = %v, reflected = %v; want negation", p.value, z, reflected)
		}
	}

	if got := ZScore(-5, -1, 0.5); !almostEqual(got, -8) {
		t.Errorf("ZScore(-5, -1, 0.5) = %v, want -8", got)
	}
}

func TestSharpeRatio(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
		want    float64
	}{
		{"empty", nil, 0},
		{"single", []float64{0.05}, 0},
		{"flat", []float64{0.01, 0.01, 0.01}, 0},
		{"basic", []float64{0.01, 0.03}, (0.02 - RiskFreeRate/TradingDaysPerYear) / 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SharpeRatio(tt.returns); !almostEqual(got, tt.want) {
				t.Errorf("SharpeRatio(%v) = %v, want %v", tt.returns, got, tt.want)
			}
		})
	}
}

func TestClampAndRound(t *testing.T) {
	if got := Clamp(120, 0, 100); got != 100 {
		t.Errorf("Clamp high = %v", got)
	}
	if got := Clamp(-3, 0, 100); got != 0 {
		t.Errorf("Clamp low = %v", got)
	}
	if got := Round(3.14159, 2); !almostEqual(got, 3.14) {
		t.Errorf("Round(3.14159, 2) = %v, want 3.14", got)
	}
	if got := Round(-1.25, 1); !almostEqual(got, -1.3) {
		t.Errorf("Round(-1.25, 1) = %v, want -1.3", got)
	}
}
