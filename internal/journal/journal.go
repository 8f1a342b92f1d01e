// Package journal appends every sampling cycle to a daily NDJSON file.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cpu-sentinel/internal/metrics"
)

const (
	FilePrefix = "samples-"
	FileSuffix = ".ndjson"
	dateLayout = "2006-01-02"
)

type Journal struct {
	dir  string
	now  func() time.Time
	mu   sync.Mutex
	file *os.File
	date string
}

type Entry struct {
	Timestamp      string                      `json:"timestamp"`
	Cycle          uint64                      `json:"cycle"`
	Cores          []metrics.UtilizationSample `json:"cores"`
	AveragePercent float64                     `json:"average_usage"`
	MemUsedBytes   uint64                      `json:"mem_used_bytes"`
	MemTotalBytes  uint64                      `json:"mem_total_bytes"`
}

func FileName(day time.Time) string {
	return FilePrefix + day.UTC().Format(dateLayout) + FileSuffix
}

func New(dir string) (*Journal, error) {
	return newJournal(dir, time.Now)
}

func newJournal(dir string, now func() time.Time) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal dir: %w", err)
	}

	j := &Journal{dir: dir, now: now}
	if err := j.rotateIfNeeded(); err != nil {
		return nil, err
	}
	return j, nil
}

// Observe appends one line for the cycle.
func (j *Journal) Observe(c metrics.Cycle) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.rotateIfNeeded(); err != nil {
		return err
	}

	entry := Entry{
		Timestamp:      c.Start.UTC().Format(time.RFC3339Nano),
		Cycle:          c.Seq,
		Cores:          c.Samples,
		AveragePercent: c.AveragePercent(),
		MemUsedBytes:   c.Memory.UsedBytes(),
		MemTotalBytes:  c.Memory.TotalBytes,
	}
	if entry.Cores == nil {
		entry.Cores = []metrics.UtilizationSample{}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}

	return nil
}

func (j *Journal) rotateIfNeeded() error {
	now := j.now().UTC()
	currentDate := now.Format(dateLayout)

	if j.file != nil && j.date == currentDate {
		return nil
	}

	if j.file != nil {
		j.file.Close()
		j.file = nil
	}

	filename := filepath.Join(j.dir, FileName(now))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal file: %w", err)
	}

	j.file = file
	j.date = currentDate
	return nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file != nil {
		err := j.file.Close()
		j.file = nil
		return err
	}
	return nil
}
