package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"cpu-sentinel/internal/alerts"
	"cpu-sentinel/internal/config"
	"cpu-sentinel/internal/journal"
	"cpu-sentinel/internal/logging"
	"cpu-sentinel/internal/metrics"
	"cpu-sentinel/internal/report"
	"cpu-sentinel/internal/scheduler"
	"cpu-sentinel/internal/storage"
)

const version = "1.0.0"

type options struct {
	configPath  string
	intervalMs  int
	collector   string
	logLevel    string
	once        bool
	showVersion bool
}

func main() {
	var opts options

	flag.StringVar(&opts.configPath, "config", "", "path to config.yaml (defaults apply when empty)")
	flag.IntVar(&opts.intervalMs, "interval-ms", 0, "sampling interval in milliseconds (overrides config)")
	flag.StringVar(&opts.collector, "collector", "", "counter source: auto, gopsutil or procfs (overrides config)")
	flag.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flag.BoolVar(&opts.once, "once", false, "render a single sample and exit")
	flag.BoolVar(&opts.showVersion, "version", false, "show version and exit")
	flag.Parse()

	if opts.showVersion {
		fmt.Printf("cpu-sentinel v%s\n", version)
		os.Exit(0)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, opts.once); err != nil {
		logger.Error().Err(err).Msg("Sampler exited with error")
		logger.Close()
		os.Exit(1)
	}
}

func loadConfig(opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if opts.intervalMs != 0 {
		cfg.IntervalMs = opts.intervalMs
	}
	if opts.collector != "" {
		cfg.Collector = opts.collector
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger, once bool) error {
	source, err := metrics.NewSource(cfg.Collector, cfg.ProcRoot)
	if err != nil {
		return err
	}
	logger.Debug().Str("collector", source.Kind).Msg("Counter source selected")

	reporter := report.New(os.Stdout, report.ShouldClear(cfg.ClearScreen, os.Stdout))

	var observers []scheduler.Observer
	if cfg.Journal.Enabled {
		j, err := journal.New(cfg.Journal.Dir)
		if err != nil {
			return err
		}
		defer j.Close()
		observers = append(observers, j)
	}

	alertEngine := alerts.NewEngine(cfg.Alerts, logger.Logger)
	if alertEngine.Enabled() {
		observers = append(observers, alertEngine)
	}

	sampler := scheduler.New(source.CPU, source.Memory, reporter, logger.Logger,
		scheduler.WithInterval(cfg.Interval()),
		scheduler.WithObservers(observers...),
	)

	if once {
		return runOnce(ctx, sampler, cfg.Interval())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sampler.Run(gctx)
	})
	if cfg.Journal.Enabled {
		rotator := storage.NewRotator(cfg.Journal.Dir, cfg.Journal.RetentionDays, logger.Logger)
		g.Go(func() error {
			return rotator.Run(gctx)
		})
	}
	return g.Wait()
}

// runOnce captures a baseline, waits one interval and renders a single frame.
func runOnce(ctx context.Context, sampler *scheduler.Scheduler, interval time.Duration) error {
	sampler.Tick(ctx)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
	}

	sampler.Tick(ctx)
	if sampler.Cycles() == 0 {
		return fmt.Errorf("no sample could be taken")
	}
	return nil
}
