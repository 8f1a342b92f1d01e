package metrics

import "time"

// Category is one bucket of per-core cumulative CPU time.
type Category int

const (
	User Category = iota
	Nice
	System
	Idle
	IOWait
	IRQ
	SoftIRQ
	Steal
	numCategories
)

var categoryNames = [numCategories]string{
	User:    "user",
	Nice:    "nice",
	System:  "system",
	Idle:    "idle",
	IOWait:  "iowait",
	IRQ:     "irq",
	SoftIRQ: "softirq",
	Steal:   "steal",
}

func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return "unknown"
	}
	return categoryNames[c]
}

// Categories returns every category in counter order.
func Categories() []Category {
	out := make([]Category, numCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// CoreTimes holds one core's cumulative counters since boot. Units are
// collector specific; only ratios between two captures are meaningful.
type CoreTimes [numCategories]uint64

// Total sums every category. Overflow wraps, which keeps deltas between two
// totals correct.
func (t CoreTimes) Total() uint64 {
	var sum uint64
	for _, v := range t {
		sum += v
	}
	return sum
}

// SystemSnapshot is the per-core counter state of the machine at one instant.
type SystemSnapshot struct {
	Timestamp time.Time
	Cores     []CoreTimes
}

func (s SystemSnapshot) Empty() bool {
	return len(s.Cores) == 0
}

type UtilizationSample struct {
	Core    int     `json:"core"`
	Percent float64 `json:"usage"`
}

type MemoryStatus struct {
	TotalBytes uint64 `json:"total_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`
}

func (m MemoryStatus) UsedBytes() uint64 {
	if m.FreeBytes >= m.TotalBytes {
		return 0
	}
	return m.TotalBytes - m.FreeBytes
}

func (m MemoryStatus) UsedPercent() float64 {
	if m.TotalBytes == 0 {
		return 0
	}
	return float64(m.UsedBytes()) / float64(m.TotalBytes) * 100.0
}

// Cycle is the outcome of one sampling tick.
type Cycle struct {
	Seq     uint64
	Start   time.Time
	Samples []UtilizationSample
	Memory  MemoryStatus
}

// AveragePercent is the mean utilization across all reported cores.
func (c Cycle) AveragePercent() float64 {
	if len(c.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range c.Samples {
		sum += s.Percent
	}
	return sum / float64(len(c.Samples))
}
