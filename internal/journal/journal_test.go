package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpu-sentinel/internal/metrics"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestJournal_Observe(t *testing.T) {
	dir := t.TempDir()
	clk := &clock{t: time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)}

	j, err := newJournal(dir, clk.now)
	require.NoError(t, err)
	defer j.Close()

	cycle := metrics.Cycle{
		Seq:   3,
		Start: clk.t,
		Samples: []metrics.UtilizationSample{
			{Core: 0, Percent: 60},
			{Core: 1, Percent: 20},
		},
		Memory: metrics.MemoryStatus{TotalBytes: 1000, FreeBytes: 400},
	}
	require.NoError(t, j.Observe(cycle))

	entries := readEntries(t, filepath.Join(dir, "samples-2026-03-14.ndjson"))
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, uint64(3), e.Cycle)
	assert.Equal(t, cycle.Samples, e.Cores)
	assert.Equal(t, 40.0, e.AveragePercent)
	assert.Equal(t, uint64(600), e.MemUsedBytes)
	assert.Equal(t, uint64(1000), e.MemTotalBytes)
	assert.Equal(t, "2026-03-14T23:00:00Z", e.Timestamp)
}

func TestJournal_RotatesAtUTCMidnight(t *testing.T) {
	dir := t.TempDir()
	clk := &clock{t: time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)}

	j, err := newJournal(dir, clk.now)
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Observe(metrics.Cycle{Seq: 1, Start: clk.t}))
	clk.t = clk.t.Add(2 * time.Minute)
	require.NoError(t, j.Observe(metrics.Cycle{Seq: 2, Start: clk.t}))
	require.NoError(t, j.Observe(metrics.Cycle{Seq: 3, Start: clk.t}))

	day1 := readEntries(t, filepath.Join(dir, "samples-2026-03-14.ndjson"))
	day2 := readEntries(t, filepath.Join(dir, "samples-2026-03-15.ndjson"))
	assert.Len(t, day1, 1)
	assert.Len(t, day2, 2)
	assert.NotNil(t, day2[0].Cores)
}

func TestJournal_AppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()
	clk := &clock{t: time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)}

	for seq := uint64(1); seq <= 2; seq++ {
		j, err := newJournal(dir, clk.now)
		require.NoError(t, err)
		require.NoError(t, j.Observe(metrics.Cycle{Seq: seq, Start: clk.t}))
		require.NoError(t, j.Close())
	}

	assert.Len(t, readEntries(t, filepath.Join(dir, FileName(clk.t))), 2)
}

func TestFileName(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	assert.Equal(t, "samples-2026-03-14.ndjson", FileName(time.Date(2026, 3, 15, 2, 0, 0, 0, loc)))
}

func TestJournal_CloseTwice(t *testing.T) {
	j, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, j.Close())
	assert.NoError(t, j.Close())
}
