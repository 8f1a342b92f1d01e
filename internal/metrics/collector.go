package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	KindAuto     = "auto"
	KindGopsutil = "gopsutil"
	KindProcfs   = "procfs"
)

// Collector captures the per-core counters of the machine.
type Collector interface {
	Capture(ctx context.Context) (SystemSnapshot, error)
}

// MemoryReader reads current physical memory totals.
type MemoryReader interface {
	Read(ctx context.Context) (MemoryStatus, error)
}

// Source pairs the CPU and memory readers of one platform backend.
type Source struct {
	Kind   string
	CPU    Collector
	Memory MemoryReader
}

// NewSource resolves a backend by name. "auto" prefers procfs when
// procRoot/stat is readable.
func NewSource(kind, procRoot string) (Source, error) {
	switch strings.ToLower(kind) {
	case "", KindAuto:
		if procfsAvailable(procRoot) {
			return newProcfsSource(procRoot), nil
		}
		return newGopsutilSource(), nil
	case KindProcfs:
		return newProcfsSource(procRoot), nil
	case KindGopsutil:
		return newGopsutilSource(), nil
	default:
		return Source{}, fmt.Errorf("%w: %q", ErrUnknownCollector, kind)
	}
}

func newProcfsSource(root string) Source {
	return Source{
		Kind:   KindProcfs,
		CPU:    NewProcCollector(root),
		Memory: NewProcMemory(root),
	}
}

func newGopsutilSource() Source {
	return Source{
		Kind:   KindGopsutil,
		CPU:    NewGopsutilCollector(),
		Memory: NewGopsutilMemory(),
	}
}

func procfsAvailable(root string) bool {
	if root == "" {
		return false
	}
	f, err := os.Open(filepath.Join(root, "stat"))
	if err != nil {
		return false
	}
	f.Close()
	return true
}
