package service

import (
	"math"
	"sort"
	"time"

	"github.com/JonnyWalker81/moodtrack/internal/models"
)

// =============================================================================
// Statistical Algorithms
// =============================================================================

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// sampleStdDev is the n-1 standard deviation; 0 for fewer than two values
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

func minMax(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// linearSlope fits values against their 0-based index by ordinary least squares
func linearSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	xMean := float64(n-1) / 2
	yMean := mean(values)

	var num, den float64
	for i, y := range values {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// spanDays returns the whole days between the earliest and latest point
func spanDays(points []models.DataPoint) int {
	if len(points) == 0 {
		return 0
	}
	earliest, latest := points[0].Timestamp, points[0].Timestamp
	for _, p := range points[1:] {
		if p.Timestamp.Before(earliest) {
			earliest = p.Timestamp
		}
		if p.Timestamp.After(latest) {
			latest = p.Timestamp
		}
	}
	return int(latest.Sub(earliest) / (24 * time.Hour))
}
