package metrics

import (
	"context"
	"math"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// GopsutilCollector captures per-core counters through gopsutil, which works
// on every platform gopsutil supports. Seconds are stored as milliseconds.
type GopsutilCollector struct {
	times func(ctx context.Context, percpu bool) ([]cpu.TimesStat, error)
	now   func() time.Time
}

func NewGopsutilCollector() *GopsutilCollector {
	return &GopsutilCollector{
		times: cpu.TimesWithContext,
		now:   time.Now,
	}
}

func (c *GopsutilCollector) Capture(ctx context.Context) (SystemSnapshot, error) {
	snap := SystemSnapshot{Timestamp: c.now()}

	stats, err := c.times(ctx, true)
	if err != nil {
		return snap, readErr("cpu", err)
	}

	snap.Cores = make([]CoreTimes, 0, len(stats))
	for _, st := range stats {
		snap.Cores = append(snap.Cores, fromTimesStat(st))
	}

	return snap, nil
}

// fromTimesStat drops guest time: the kernel already folds it into user/nice.
func fromTimesStat(st cpu.TimesStat) CoreTimes {
	var t CoreTimes
	t[User] = secondsToMillis(st.User)
	t[Nice] = secondsToMillis(st.Nice)
	t[System] = secondsToMillis(st.System)
	t[Idle] = secondsToMillis(st.Idle)
	t[IOWait] = secondsToMillis(st.Iowait)
	t[IRQ] = secondsToMillis(st.Irq)
	t[SoftIRQ] = secondsToMillis(st.Softirq)
	t[Steal] = secondsToMillis(st.Steal)
	return t
}

func secondsToMillis(s float64) uint64 {
	if s <= 0 || math.IsNaN(s) {
		return 0
	}
	return uint64(math.Round(s * 1000))
}

type GopsutilMemory struct {
	virtual func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

func NewGopsutilMemory() *GopsutilMemory {
	return &GopsutilMemory{virtual: mem.VirtualMemoryWithContext}
}

// Read reports Available as free memory, matching MemAvailable on Linux.
func (m *GopsutilMemory) Read(ctx context.Context) (MemoryStatus, error) {
	vm, err := m.virtual(ctx)
	if err != nil {
		return MemoryStatus{}, readErr("memory", err)
	}
	if vm == nil {
		return MemoryStatus{}, readErr("memory", errNoMemoryStat)
	}
	return MemoryStatus{TotalBytes: vm.Total, FreeBytes: vm.Available}, nil
}
