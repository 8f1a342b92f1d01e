// Package usage turns two cumulative counter snapshots into per-core
// utilization percentages.
package usage

import (
	"math"

	"cpu-sentinel/internal/metrics"
)

// Compute returns one sample per core index present in both snapshots. When
// the core count changed between captures, only the shared prefix of indices
// is reported.
func Compute(previous, current metrics.SystemSnapshot) []metrics.UtilizationSample {
	n := len(current.Cores)
	if len(previous.Cores) < n {
		n = len(previous.Cores)
	}

	samples := make([]metrics.UtilizationSample, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, metrics.UtilizationSample{
			Core:    i,
			Percent: CorePercent(previous.Cores[i], current.Cores[i]),
		})
	}
	return samples
}

// CorePercent is the busy share of the time elapsed between two captures of
// one core, in [0, 100] with one decimal.
func CorePercent(prev, cur metrics.CoreTimes) float64 {
	var totalDelta, idleDelta float64
	for i := range cur {
		d := float64(counterDelta(prev[i], cur[i]))
		totalDelta += d
		if metrics.Category(i) == metrics.Idle {
			idleDelta = d
		}
	}
	if totalDelta == 0 {
		return 0
	}

	usedDelta := totalDelta - idleDelta
	pct := 100 * usedDelta / totalDelta
	return round1(clamp(pct, 0, 100))
}

// counterDelta is cur-prev for a counter that only moves forward. A drop from
// the upper half of the range is a wrap; any other drop (iowait is allowed to
// go backwards) counts as no progress.
func counterDelta(prev, cur uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	if prev > math.MaxUint64/2 {
		return cur - prev
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
