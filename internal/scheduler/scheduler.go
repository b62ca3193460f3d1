// Package scheduler drives periodic ingestion and trend-detection
// cycles, tracks failure state, and applies backoff after repeated
// failures.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"dexradar/internal/domain"
	"dexradar/internal/notify"
	"dexradar/internal/observability"
	"dexradar/internal/pipeline"
)

// Default configuration values.
const (
	DefaultInterval               = 600 * time.Second
	DefaultErrorCooldown          = 30 * time.Second
	DefaultMaxConsecutiveFailures = 3
	DefaultPollRetryDelay         = 5 * time.Second

	// Caps the backoff exponent so the shift cannot overflow.
	maxBackoffExponent = 16
)

// CycleRunner is the ingestion side of one cycle.
type CycleRunner interface {
	Run(ctx context.Context) (pipeline.CycleStats, error)
}

// PumpDetector is the analysis side of one cycle.
type PumpDetector interface {
	Detect(ctx context.Context) ([]*domain.PumpSignal, error)
}

// CommandReceiver handles one inbound bot message.
type CommandReceiver interface {
	Handle(ctx context.Context, text string)
}

// Scheduler owns the main run loop and the optional command poll loop.
type Scheduler struct {
	pipeline   CycleRunner
	detector   PumpDetector
	dispatcher *notify.Dispatcher
	poller     notify.Poller
	commands   CommandReceiver

	interval       time.Duration
	cooldown       time.Duration
	maxFailures    int
	pollRetryDelay time.Duration

	health *Health
	clock  func() time.Time
	sleep  func(ctx context.Context, d time.Duration) bool
	log    zerolog.Logger
	m      *observability.Metrics
}

// Options configures a Scheduler.
type Options struct {
	Pipeline CycleRunner
	Detector PumpDetector

	// Dispatcher may be nil when notifications are disabled.
	Dispatcher *notify.Dispatcher

	// Poller and Commands enable the inbound command loop; either nil
	// disables it.
	Poller   notify.Poller
	Commands CommandReceiver

	// Interval between cycles. Zero means 600s.
	Interval time.Duration

	// ErrorCooldown is the backoff base. Zero means 30s.
	ErrorCooldown time.Duration

	// MaxConsecutiveFailures before critical alert + backoff.
	// Zero means 3.
	MaxConsecutiveFailures int

	// PollRetryDelay after a failed inbound poll. Zero means 5s.
	PollRetryDelay time.Duration

	// Clock overrides time.Now, for tests.
	Clock func() time.Time

	// Sleep overrides the cancellable sleep, for tests. It reports
	// false when the context was cancelled during the wait.
	Sleep func(ctx context.Context, d time.Duration) bool

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// New creates a new Scheduler.
func New(opts Options) *Scheduler {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	cooldown := opts.ErrorCooldown
	if cooldown <= 0 {
		cooldown = DefaultErrorCooldown
	}
	maxFailures := opts.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = DefaultMaxConsecutiveFailures
	}
	pollRetryDelay := opts.PollRetryDelay
	if pollRetryDelay <= 0 {
		pollRetryDelay = DefaultPollRetryDelay
	}
	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = waitFor
	}

	return &Scheduler{
		pipeline:       opts.Pipeline,
		detector:       opts.Detector,
		dispatcher:     opts.Dispatcher,
		poller:         opts.Poller,
		commands:       opts.Commands,
		interval:       interval,
		cooldown:       cooldown,
		maxFailures:    maxFailures,
		pollRetryDelay: pollRetryDelay,
		health:         NewHealth(),
		clock:          clock,
		sleep:          sleep,
		log:            opts.Logger,
		m:              opts.Metrics,
	}
}

// Health exposes the scheduler's failure state for reporting.
func (s *Scheduler) Health() *Health {
	return s.health
}

// waitFor sleeps for d or until ctx is cancelled, reporting false on
// cancellation.
func waitFor(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Run executes cycles until ctx is cancelled, then sends a shutdown
// notification. Nothing raised by a cycle escapes this loop.
func (s *Scheduler) Run(ctx context.Context) {
	s.health.start(s.clock())
	defer func() {
		s.health.stop()
		// The run context is already cancelled here; give the
		// shutdown notification its own deadline.
		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.dispatcher.Shutdown(notifyCtx)
		s.log.Info().Msg("scheduler stopped")
	}()

	s.log.Info().
		Dur("interval", s.interval).
		Int("max_consecutive_failures", s.maxFailures).
		Msg("scheduler started")

	for {
		if err := s.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			n := s.health.recordFailure(err)
			if s.m != nil {
				s.m.ConsecutiveFailures.Set(float64(n))
			}
			s.log.Error().Err(err).Int("consecutive_failures", n).Msg("cycle failed")

			if n >= s.maxFailures {
				if n == s.maxFailures {
					// Once per failure streak, at the moment the
					// threshold is crossed.
					s.dispatcher.Critical(ctx, n, err)
				}
				backoff := s.backoffFor(n)
				s.log.Warn().Dur("backoff", backoff).Msg("entering failure backoff")
				if !s.sleep(ctx, backoff) {
					return
				}
			}
		} else {
			now := s.clock()
			s.health.recordSuccess(now)
			if s.m != nil {
				s.m.ConsecutiveFailures.Set(0)
				s.m.LastSuccessfulCycle.Set(float64(now.Unix()))
			}
		}

		if !s.sleep(ctx, s.interval) {
			return
		}
	}
}

// runCycle runs ingestion then trend detection. Both are attempted;
// either failing fails the cycle.
func (s *Scheduler) runCycle(ctx context.Context) error {
	start := s.clock()
	stats, pipeErr := s.pipeline.Run(ctx)
	s.observeCycle("pipeline", start, pipeErr)
	if pipeErr == nil {
		s.log.Debug().
			Int("processed", stats.Processed).
			Int("stored", stats.Stored).
			Msg("ingestion pass complete")
	}

	start = s.clock()
	signals, trendErr := s.detector.Detect(ctx)
	s.observeCycle("trend", start, trendErr)
	for _, sig := range signals {
		if s.m != nil {
			s.m.PumpSignals.Inc()
		}
		s.dispatcher.Pump(ctx, sig)
	}

	return errors.Join(pipeErr, trendErr)
}

func (s *Scheduler) observeCycle(phase string, start time.Time, err error) {
	if s.m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.m.CyclesTotal.WithLabelValues(phase, status).Inc()
	s.m.CycleDuration.WithLabelValues(phase).Observe(s.clock().Sub(start).Seconds())
}

// backoffFor computes cooldown * 2^(n-1).
func (s *Scheduler) backoffFor(n int) time.Duration {
	exp := n - 1
	if exp > maxBackoffExponent {
		exp = maxBackoffExponent
	}
	return s.cooldown << uint(exp)
}

// CommandLoop polls for inbound messages until ctx is cancelled. Poll
// failures are retried with a short fixed delay, decoupled from the
// main loop's backoff.
func (s *Scheduler) CommandLoop(ctx context.Context) {
	if s.poller == nil || s.commands == nil {
		return
	}
	s.log.Info().Msg("command loop started")

	for {
		messages, err := s.poller.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn().Err(err).Msg("inbound poll failed")
			if !s.sleep(ctx, s.pollRetryDelay) {
				return
			}
			continue
		}

		for _, msg := range messages {
			s.commands.Handle(ctx, msg.Text)
		}

		if ctx.Err() != nil {
			return
		}
	}
}
