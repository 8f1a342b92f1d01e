package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog"
)

const DefaultPruneEvery = 6 * time.Hour

// Rotator deletes journal files older than the retention window.
type Rotator struct {
	dir           string
	retentionDays int
	every         time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

var filenamePattern = regexp.MustCompile(`^samples-(\d{4}-\d{2}-\d{2})\.ndjson$`)

func NewRotator(dir string, retentionDays int, logger zerolog.Logger) *Rotator {
	return &Rotator{
		dir:           dir,
		retentionDays: retentionDays,
		every:         DefaultPruneEvery,
		logger:        logger.With().Str("component", "Rotator").Logger(),
		now:           time.Now,
	}
}

// Run prunes immediately and then on every period until ctx is done.
func (r *Rotator) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.every)
	defer ticker.Stop()

	r.Prune()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Prune()
		}
	}
}

// Prune removes expired files and returns how many were deleted.
func (r *Rotator) Prune() int {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		r.logger.Warn().Err(err).Str("dir", r.dir).Msg("Cannot list journal dir")
		return 0
	}

	now := r.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, -r.retentionDays)

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := filenamePattern.FindStringSubmatch(entry.Name())
		if len(matches) != 2 {
			continue
		}

		fileDate, err := time.Parse("2006-01-02", matches[1])
		if err != nil {
			continue
		}

		if fileDate.Before(cutoff) {
			filePath := filepath.Join(r.dir, entry.Name())
			if err := os.Remove(filePath); err != nil {
				r.logger.Warn().Err(err).Str("file", filePath).Msg("Cannot remove expired journal file")
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		r.logger.Info().Int("removed", removed).Msg("Pruned expired journal files")
	}
	return removed
}
