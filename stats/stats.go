// Package stats holds the numeric primitives used by the volatility builder,
// the anomaly detector and the performance tracker.
//
// All functions are pure and return 0 for degenerate input (empty slices,
// fewer than two observations, zero standard deviation) instead of NaN or an
// error, so callers can feed them sparse market data without guarding.
package stats

import "math"

// RiskFreeRate is the annual risk-free rate assumed by SharpeRatio.
const RiskFreeRate = 0.02

// TradingDaysPerYear converts the annual risk-free rate to a daily one.
const TradingDaysPerYear = 252

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation (divide by N).
// Fewer than two values yield 0.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// ZScore returns how many standard deviations value sits from mean.
// A zero stddev yields 0.
func ZScore(value, mean, stddev float64) float64 {
	if stddev == 0 {
		return 0
	}
	return (value - mean) / stddev
}

// SharpeRatio is the daily Sharpe ratio of a return series.
func SharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	sd := StdDev(returns)
	if sd == 0 {
		return 0
	}
	return (Mean(returns) - RiskFreeRate/TradingDaysPerYear) / sd
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
