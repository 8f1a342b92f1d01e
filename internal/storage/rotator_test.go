package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}\n"), 0o644))
}

func exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func TestRotator_Prune(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "samples-2026-03-01.ndjson")
	touch(t, dir, "samples-2026-03-06.ndjson")
	touch(t, dir, "samples-2026-03-07.ndjson")
	touch(t, dir, "samples-2026-03-10.ndjson")
	touch(t, dir, "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "samples-2000-01-01.ndjson.d"), 0o755))

	r := NewRotator(dir, 3, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }

	assert.Equal(t, 2, r.Prune())

	assert.False(t, exists(dir, "samples-2026-03-01.ndjson"))
	assert.False(t, exists(dir, "samples-2026-03-06.ndjson"))
	assert.True(t, exists(dir, "samples-2026-03-07.ndjson"))
	assert.True(t, exists(dir, "samples-2026-03-10.ndjson"))
	assert.True(t, exists(dir, "notes.txt"))
}

func TestRotator_MissingDir(t *testing.T) {
	r := NewRotator(filepath.Join(t.TempDir(), "gone"), 1, zerolog.Nop())
	assert.Equal(t, 0, r.Prune())
}

func TestRotator_RunStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "samples-1999-12-31.ndjson")

	r := NewRotator(dir, 1, zerolog.Nop())
	r.every = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return !exists(dir, "samples-1999-12-31.ndjson") }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
