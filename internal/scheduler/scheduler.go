// Package scheduler drives the fixed-interval sampling loop.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"cpu-sentinel/internal/metrics"
	"cpu-sentinel/internal/usage"
)

const DefaultInterval = time.Second

var ErrAlreadyRunning = errors.New("scheduler already running")

type State int32

const (
	Idle State = iota
	Sampling
)

func (s State) String() string {
	if s == Sampling {
		return "sampling"
	}
	return "idle"
}

// Reporter renders a finished cycle.
type Reporter interface {
	Render(c metrics.Cycle) error
}

// Observer receives every rendered cycle after the reporter.
type Observer interface {
	Observe(c metrics.Cycle) error
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithObservers(obs ...Observer) Option {
	return func(s *Scheduler) {
		s.observers = append(s.observers, obs...)
	}
}

// Scheduler owns the retained snapshot and runs at most one cycle at a time.
type Scheduler struct {
	collector metrics.Collector
	memory    metrics.MemoryReader
	reporter  Reporter
	observers []Observer
	interval  time.Duration
	logger    zerolog.Logger
	now       func() time.Time

	state   atomic.Int32
	cycles  atomic.Uint64
	skipped atomic.Uint64

	// previous is only touched while state is Sampling.
	previous metrics.SystemSnapshot
	havePrev bool
	// rebase makes the next cycle drop previous and capture a new baseline.
	rebase atomic.Bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(collector metrics.Collector, memory metrics.MemoryReader, reporter Reporter, logger zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		collector: collector,
		memory:    memory,
		reporter:  reporter,
		interval:  DefaultInterval,
		logger:    logger.With().Str("component", "Scheduler").Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Interval() time.Duration { return s.interval }

func (s *Scheduler) State() State { return State(s.state.Load()) }

// Cycles is the number of cycles that reached the reporter.
func (s *Scheduler) Cycles() uint64 { return s.cycles.Load() }

// Skipped is the number of ticks discarded because a cycle was in flight.
func (s *Scheduler) Skipped() uint64 { return s.skipped.Load() }

// Start captures the baseline snapshot and launches the tick loop in the
// background. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	s.rebase.Store(true)
	s.Tick(loopCtx)

	go func(done chan struct{}) {
		defer close(done)
		s.loop(loopCtx)
	}(s.done)

	s.logger.Info().Dur("interval", s.interval).Msg("Sampler started")
	return nil
}

// Stop cancels the loop and waits for the in-flight cycle, if any, to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info().
		Uint64("cycles", s.Cycles()).
		Uint64("skipped_ticks", s.Skipped()).
		Msg("Sampler stopped")
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)

			// A tick that fired during the cycle is dropped, not queued.
			select {
			case <-ticker.C:
				s.skipped.Add(1)
				s.logger.Debug().Msg("Tick discarded, previous cycle overran the interval")
			default:
			}
		}
	}
}

// Tick runs one sampling cycle. It reports false without doing anything when
// another cycle is already in flight.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.state.CompareAndSwap(int32(Idle), int32(Sampling)) {
		s.skipped.Add(1)
		return false
	}
	defer s.state.Store(int32(Idle))

	s.runCycle(ctx)
	return true
}

func (s *Scheduler) runCycle(ctx context.Context) {
	start := s.now()

	if s.rebase.Swap(false) {
		s.havePrev = false
		s.previous = metrics.SystemSnapshot{}
	}

	current, err := s.collector.Capture(ctx)
	if err != nil {
		s.logReadFailure(err, "cpu")
		return
	}

	if !s.havePrev {
		s.previous = current
		s.havePrev = true
		s.logger.Debug().Int("cores", len(current.Cores)).Msg("Baseline snapshot captured")
		return
	}

	if len(s.previous.Cores) != len(current.Cores) {
		s.logger.Warn().
			Int("previous_cores", len(s.previous.Cores)).
			Int("current_cores", len(current.Cores)).
			Msg("Core count changed, reporting shared cores only")
	}
	samples := usage.Compute(s.previous, current)

	mem, err := s.memory.Read(ctx)
	if err != nil {
		s.logReadFailure(err, "memory")
		return
	}

	// Abandon before rendering so cancellation never leaves a partial frame.
	if ctx.Err() != nil {
		return
	}

	cycle := metrics.Cycle{
		Seq:     s.cycles.Add(1),
		Start:   start,
		Samples: samples,
		Memory:  mem,
	}

	if err := s.reporter.Render(cycle); err != nil {
		s.logger.Warn().Err(err).Uint64("cycle", cycle.Seq).Msg("Render failed")
	}
	for _, obs := range s.observers {
		if err := obs.Observe(cycle); err != nil {
			s.logger.Warn().Err(err).Uint64("cycle", cycle.Seq).Msg("Observer failed")
		}
	}

	s.previous = current
}

func (s *Scheduler) logReadFailure(err error, what string) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}

	var readErr *metrics.ReadError
	if errors.As(err, &readErr) {
		s.logger.Warn().Err(err).Str("source", readErr.Source).Msg("Transient read failure, skipping cycle")
		return
	}
	s.logger.Error().Err(err).Str("source", what).Msg("Read failed, skipping cycle")
}
