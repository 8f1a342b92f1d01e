// Package logging builds the process-wide zerolog logger. Logs go to stderr
// and optionally to a size-rotated file; stdout is reserved for the report.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"cpu-sentinel/internal/config"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Logger wraps a zerolog logger together with the file it may own.
type Logger struct {
	zerolog.Logger
	file io.Closer
}

func New(cfg config.Log) (*Logger, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg config.Log, console io.Writer) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	writers := []io.Writer{consoleWriter(cfg.Format, console)}

	var file *lumberjack.Logger
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log dir: %w", err)
		}
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
		}
		// Files always get JSON so they stay machine readable.
		writers = append(writers, file)
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	l := &Logger{Logger: zl}
	if file != nil {
		l.file = file
	}
	return l, nil
}

func consoleWriter(format string, out io.Writer) io.Writer {
	if format == FormatJSON {
		return out
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal(out),
	}
}

func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
