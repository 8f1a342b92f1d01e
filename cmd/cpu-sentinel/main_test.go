package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpu-sentinel/internal/config"
	"cpu-sentinel/internal/metrics"
	"cpu-sentinel/internal/scheduler"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(options{})
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.IntervalMs)
}

func TestLoadConfig_FlagsOverrideFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval_ms: 500\ncollector: procfs\n"), 0o644))
	t.Setenv(config.EnvIntervalMs, "750")

	cfg, err := loadConfig(options{configPath: path})
	require.NoError(t, err)
	assert.Equal(t, 750, cfg.IntervalMs, "environment overrides the file")
	assert.Equal(t, "procfs", cfg.Collector)

	cfg, err = loadConfig(options{configPath: path, intervalMs: 2000, collector: "gopsutil", logLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.IntervalMs)
	assert.Equal(t, "gopsutil", cfg.Collector)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_RejectsInvalidFlag(t *testing.T) {
	_, err := loadConfig(options{collector: "wmi"})
	assert.ErrorContains(t, err, "collector")
}

type steppingCollector struct{ n uint64 }

func (c *steppingCollector) Capture(context.Context) (metrics.SystemSnapshot, error) {
	c.n++
	var core metrics.CoreTimes
	core[metrics.Idle] = c.n * 10
	core[metrics.User] = c.n * 10
	return metrics.SystemSnapshot{Timestamp: time.Now(), Cores: []metrics.CoreTimes{core}}, nil
}

type staticMemory struct{}

func (staticMemory) Read(context.Context) (metrics.MemoryStatus, error) {
	return metrics.MemoryStatus{TotalBytes: 2, FreeBytes: 1}, nil
}

type countingReporter struct{ frames int }

func (r *countingReporter) Render(metrics.Cycle) error {
	r.frames++
	return nil
}

func TestRunOnce_RendersSingleFrame(t *testing.T) {
	r := &countingReporter{}
	s := scheduler.New(&steppingCollector{}, staticMemory{}, r, zerolog.Nop())

	require.NoError(t, runOnce(context.Background(), s, time.Millisecond))
	assert.Equal(t, 1, r.frames)
}
