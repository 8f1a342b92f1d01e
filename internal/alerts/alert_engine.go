package alerts

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cpu-sentinel/internal/config"
	"cpu-sentinel/internal/metrics"
)

const (
	TypeCPU    = "cpu"
	TypeMemory = "memory"
)

// Engine raises threshold alerts from finished cycles and debounces them per
// alert type.
type Engine struct {
	cfg    config.Alerts
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	lastFired map[string]time.Time
	previous  metrics.Cycle
	havePrev  bool
}

func NewEngine(cfg config.Alerts, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		logger:    logger.With().Str("component", "Alerts").Logger(),
		now:       time.Now,
		lastFired: make(map[string]time.Time),
	}
}

func (e *Engine) Enabled() bool {
	return e.cfg.CPU.Enabled || e.cfg.Memory.Enabled
}

// Observe logs a warning for every alert that is not inside its debounce
// window.
func (e *Engine) Observe(c metrics.Cycle) error {
	e.mu.Lock()
	previous, havePrev := e.previous, e.havePrev
	e.previous, e.havePrev = c, true
	e.mu.Unlock()

	if !havePrev {
		previous = metrics.Cycle{}
	}

	for _, alertType := range e.Detect(c, previous) {
		if !e.shouldFire(alertType) {
			continue
		}
		ev := e.logger.Warn().Str("alert", alertType).Uint64("cycle", c.Seq)
		switch alertType {
		case TypeCPU:
			ev = ev.Float64("average_usage", c.AveragePercent()).Float64("peak_usage", peak(c.Samples))
		case TypeMemory:
			ev = ev.Float64("mem_used_percent", c.Memory.UsedPercent())
		}
		ev.Msg("Threshold exceeded")
	}
	return nil
}

func (e *Engine) Detect(current, previous metrics.Cycle) []string {
	var alerts []string

	if e.cfg.CPU.Enabled {
		if e.detectCPUAlert(current, previous) {
			alerts = append(alerts, TypeCPU)
		}
	}

	if e.cfg.Memory.Enabled {
		if e.detectMemoryAlert(current) {
			alerts = append(alerts, TypeMemory)
		}
	}

	return alerts
}

func (e *Engine) shouldFire(alertType string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	debounceDur := time.Duration(e.cfg.DebounceSec) * time.Second

	lastTime, exists := e.lastFired[alertType]
	if exists && now.Sub(lastTime) < debounceDur {
		return false
	}
	e.lastFired[alertType] = now
	return true
}

// detectCPUAlert fires when any core crosses the absolute threshold or the
// cross-core average jumps by the relative threshold.
func (e *Engine) detectCPUAlert(current, previous metrics.Cycle) bool {
	cfg := e.cfg.CPU

	if len(current.Samples) > 0 && peak(current.Samples) >= cfg.AbsoluteThreshold {
		return true
	}

	prevAvg := previous.AveragePercent()
	if prevAvg > 0 && cfg.RelativeThreshold > 0 {
		relativeChange := ((current.AveragePercent() - prevAvg) / prevAvg) * 100.0
		if relativeChange >= cfg.RelativeThreshold {
			return true
		}
	}

	return false
}

func (e *Engine) detectMemoryAlert(current metrics.Cycle) bool {
	if current.Memory.TotalBytes == 0 {
		return false
	}
	return current.Memory.UsedPercent() >= e.cfg.Memory.AbsoluteThreshold
}

func peak(samples []metrics.UtilizationSample) float64 {
	var top float64
	for _, s := range samples {
		if s.Percent > top {
			top = s.Percent
		}
	}
	return top
}
