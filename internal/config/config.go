package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const EnvIntervalMs = "CPU_SENTINEL_INTERVAL_MS"

type Config struct {
	IntervalMs  int     `yaml:"interval_ms" validate:"gte=10"`
	Collector   string  `yaml:"collector" validate:"oneof=auto gopsutil procfs"`
	ProcRoot    string  `yaml:"proc_root" validate:"required"`
	ClearScreen string  `yaml:"clear_screen" validate:"oneof=auto always never"`
	Log         Log     `yaml:"log"`
	Journal     Journal `yaml:"journal"`
	Alerts      Alerts  `yaml:"alerts"`
}

type Log struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"oneof=console json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
}

type Journal struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir" validate:"required_if=Enabled true"`
	RetentionDays int    `yaml:"retention_days" validate:"gte=1"`
}

type Alerts struct {
	DebounceSec int         `yaml:"debounce_sec" validate:"gte=1"`
	CPU         CPUAlert    `yaml:"cpu"`
	Memory      MemoryAlert `yaml:"memory"`
}

type CPUAlert struct {
	Enabled           bool    `yaml:"enabled"`
	AbsoluteThreshold float64 `yaml:"absolute_threshold" validate:"gte=0,lte=100"`
	RelativeThreshold float64 `yaml:"relative_threshold" validate:"gte=0"`
}

type MemoryAlert struct {
	Enabled           bool    `yaml:"enabled"`
	AbsoluteThreshold float64 `yaml:"absolute_threshold" validate:"gte=0,lte=100"`
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes data over the defaults, so only keys present in the file
// change a value. An explicit zero is kept and then validated.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides the interval from the environment. Malformed values are
// rejected rather than ignored.
func (c *Config) ApplyEnv() error {
	val := os.Getenv(EnvIntervalMs)
	if val == "" {
		return nil
	}
	ms, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("%s: %w", EnvIntervalMs, err)
	}
	c.IntervalMs = ms
	return nil
}

func (c *Config) applyDefaults() {
	if c.IntervalMs <= 0 {
		c.IntervalMs = 1000
	}
	if c.Collector == "" {
		c.Collector = "auto"
	}
	if c.ProcRoot == "" {
		c.ProcRoot = "/proc"
	}
	if c.ClearScreen == "" {
		c.ClearScreen = "auto"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = "./journal"
	}
	if c.Journal.RetentionDays <= 0 {
		c.Journal.RetentionDays = 7
	}
	if c.Alerts.DebounceSec <= 0 {
		c.Alerts.DebounceSec = 60
	}
	if c.Alerts.CPU.AbsoluteThreshold <= 0 {
		c.Alerts.CPU.AbsoluteThreshold = 90
	}
	if c.Alerts.Memory.AbsoluteThreshold <= 0 {
		c.Alerts.Memory.AbsoluteThreshold = 90
	}
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Alerts.DebounceSec) * time.Second
}
