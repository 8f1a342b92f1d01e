package metrics

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ProcCollector reads per-core counters from /proc/stat. Values are in
// USER_HZ ticks.
type ProcCollector struct {
	root string
	now  func() time.Time
}

func NewProcCollector(root string) *ProcCollector {
	return &ProcCollector{root: root, now: time.Now}
}

func (c *ProcCollector) Capture(ctx context.Context) (SystemSnapshot, error) {
	snap := SystemSnapshot{Timestamp: c.now()}
	if err := ctx.Err(); err != nil {
		return snap, err
	}

	path := filepath.Join(c.root, "stat")
	file, err := os.Open(path)
	if err != nil {
		return snap, readErr("cpu", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !isCoreLine(line) {
			continue
		}

		times, err := parseCoreLine(line)
		if err != nil {
			return snap, readErr("cpu", err)
		}
		snap.Cores = append(snap.Cores, times)
	}
	if err := scanner.Err(); err != nil {
		return snap, readErr("cpu", err)
	}

	return snap, nil
}

// isCoreLine matches "cpuN" lines and skips the aggregate "cpu" line.
func isCoreLine(line string) bool {
	if !strings.HasPrefix(line, "cpu") || len(line) < 4 {
		return false
	}
	return line[3] >= '0' && line[3] <= '9'
}

// procStatOrder is the column order of /proc/stat after the cpu label.
var procStatOrder = [...]Category{User, Nice, System, Idle, IOWait, IRQ, SoftIRQ, Steal}

func parseCoreLine(line string) (CoreTimes, error) {
	var times CoreTimes

	fields := strings.Fields(line)
	if len(fields) < 5 {
		return times, fmt.Errorf("invalid cpu line %q", fields[0])
	}

	for i, cat := range procStatOrder {
		col := i + 1
		if col >= len(fields) {
			break
		}
		v, err := strconv.ParseUint(fields[col], 10, 64)
		if err != nil {
			return times, fmt.Errorf("%s %s: %w", fields[0], cat, err)
		}
		times[cat] = v
	}

	return times, nil
}

// ProcMemory reads MemTotal and MemAvailable from /proc/meminfo.
type ProcMemory struct {
	root string
}

func NewProcMemory(root string) *ProcMemory {
	return &ProcMemory{root: root}
}

func (m *ProcMemory) Read(ctx context.Context) (MemoryStatus, error) {
	if err := ctx.Err(); err != nil {
		return MemoryStatus{}, err
	}

	file, err := os.Open(filepath.Join(m.root, "meminfo"))
	if err != nil {
		return MemoryStatus{}, readErr("memory", err)
	}
	defer file.Close()

	var (
		status              MemoryStatus
		memFree             uint64
		haveAvail, haveFree bool
	)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		val, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		val *= 1024

		switch fields[0] {
		case "MemTotal:":
			status.TotalBytes = val
		case "MemAvailable:":
			status.FreeBytes = val
			haveAvail = true
		case "MemFree:":
			memFree = val
			haveFree = true
		}
		if status.TotalBytes > 0 && haveAvail {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return MemoryStatus{}, readErr("memory", err)
	}

	if status.TotalBytes == 0 {
		return MemoryStatus{}, readErr("memory", fmt.Errorf("could not read MemTotal"))
	}
	if !haveAvail {
		if !haveFree {
			return MemoryStatus{}, readErr("memory", fmt.Errorf("could not read MemAvailable or MemFree"))
		}
		status.FreeBytes = memFree
	}

	return status, nil
}
