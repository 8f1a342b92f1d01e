package usage

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"cpu-sentinel/internal/metrics"
)

func toCoreTimes(vals []uint64) metrics.CoreTimes {
	var t metrics.CoreTimes
	copy(t[:], vals)
	return t
}

// TestCorePercent_PropertyBased checks the bounds of the percentage for
// arbitrary counter pairs, including wrapped and backwards counters.
func TestCorePercent_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	counters := gen.SliceOfN(len(metrics.Categories()), gen.UInt64())

	properties.Property("percent stays within [0, 100]", prop.ForAll(
		func(prev, cur []uint64) bool {
			p := CorePercent(toCoreTimes(prev), toCoreTimes(cur))
			return p >= 0 && p <= 100 && !math.IsNaN(p)
		},
		counters, counters,
	))

	properties.Property("identical counters report zero", prop.ForAll(
		func(vals []uint64) bool {
			c := toCoreTimes(vals)
			return CorePercent(c, c) == 0
		},
		counters,
	))

	properties.Property("monotonic counters report the busy share", prop.ForAll(
		func(base, steps []uint32) bool {
			var prev, cur metrics.CoreTimes
			var total, idle uint64
			for i := range prev {
				prev[i] = uint64(base[i])
				cur[i] = prev[i] + uint64(steps[i])
				total += uint64(steps[i])
			}
			idle = uint64(steps[metrics.Idle])

			got := CorePercent(prev, cur)
			if total == 0 {
				return got == 0
			}
			pct := 100 * float64(total-idle) / float64(total)
			want := math.Round(pct*10) / 10
			return got >= 0 && math.Abs(got-want) < 1e-9
		},
		gen.SliceOfN(len(metrics.Categories()), gen.UInt32()),
		gen.SliceOfN(len(metrics.Categories()), gen.UInt32()),
	))

	properties.Property("a backwards non-idle counter never raises usage", prop.ForAll(
		func(idleStep, drop uint32) bool {
			var prev, cur metrics.CoreTimes
			prev[metrics.Idle], prev[metrics.IOWait] = 1000, uint64(drop)+1
			cur[metrics.Idle], cur[metrics.IOWait] = 1000+uint64(idleStep), 0
			return CorePercent(prev, cur) == 0
		},
		gen.UInt32(), gen.UInt32(),
	))

	properties.TestingRun(t)
}
