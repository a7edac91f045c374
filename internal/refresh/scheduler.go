// Package refresh drives the periodic fetch, aggregate and publish cycle of
// the dashboard.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tinytelemetry/livemon/internal/aggregate"
	"github.com/tinytelemetry/livemon/internal/model"
)

// State is the scheduler's cycle state.
type State int32

const (
	Idle State = iota
	Fetching
)

func (s State) String() string {
	if s == Fetching {
		return "fetching"
	}
	return "idle"
}

// Config holds scheduler options. Zero values fall back to defaults.
type Config struct {
	// Interval between ticks. Defaults to model.DefaultRefreshInterval.
	Interval time.Duration
	// CycleTimeout bounds one cycle. Defaults to Interval.
	CycleTimeout time.Duration
	Logger       *zap.Logger
	Registry     prometheus.Registerer
	// Now is the clock used for timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Outcome describes one finished cycle.
type Outcome struct {
	// Status is the last connection status published by the cycle.
	Status model.ConnectionStatus
	// Summary and Apps are set only when the live fetch succeeded.
	Summary *model.AggregateSummary
	Apps    []model.AppRecord
	// Completed is true when no transport-level failure occurred.
	Completed bool
	// Err is the transport-level failure that abandoned the cycle.
	Err error
	// EnvelopeErrs collects per-endpoint envelope failures.
	EnvelopeErrs []error
	UpdatedAt    time.Time
	Duration     time.Duration
	// Skipped is set when the call found another cycle in flight.
	Skipped bool
}

// Result returns the metrics label for the outcome.
func (o Outcome) Result() string {
	switch {
	case o.Err != nil && errors.Is(o.Err, context.Canceled):
		return ResultCancelled
	case o.Err != nil:
		return ResultConnectionError
	case o.Status == model.StatusFetchError:
		return ResultFetchError
	default:
		return ResultLive
	}
}

// Snapshot is a point-in-time view of scheduler progress.
type Snapshot struct {
	StartedAt    time.Time
	Interval     time.Duration
	LastRunAt    time.Time
	LastError    string
	LastStatus   string
	Cycles       int64
	SkippedTicks int64
}

// Scheduler runs refresh cycles against a Source and publishes to a
// Presenter. A tick that arrives while a cycle is running is skipped, so at
// most one cycle is ever in flight.
type Scheduler struct {
	source    model.MetricReader
	presenter Presenter
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics
	now       func() time.Time

	inFlight atomic.Bool
	wg       sync.WaitGroup

	mu      sync.Mutex
	snap    Snapshot
	stopped bool // set once Run is draining; guards wg.Add against wg.Wait
}

// New creates a scheduler.
func New(source model.MetricReader, presenter Presenter, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = model.DefaultRefreshInterval
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = cfg.Interval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		source:    source,
		presenter: presenter,
		interval:  cfg.Interval,
		timeout:   cfg.CycleTimeout,
		logger:    cfg.Logger.With(zap.String("mod", "refresh")),
		metrics:   newMetrics(cfg.Registry),
		now:       cfg.Now,
		snap:      Snapshot{Interval: cfg.Interval},
	}
}

// State reports whether a cycle is in flight.
func (s *Scheduler) State() State {
	if s.inFlight.Load() {
		return Fetching
	}
	return Idle
}

// Snapshot returns a copy of the scheduler's progress counters.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Run ticks immediately and then every interval until ctx is cancelled. It
// cancels the in-flight cycle through ctx and waits for it before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.snap.StartedAt = s.now()
	s.stopped = false
	s.mu.Unlock()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval), zap.Duration("cycle_timeout", s.timeout))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.stopped = true
			s.mu.Unlock()
			s.wg.Wait()
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick starts a cycle in the background unless one is already running or
// the scheduler is shutting down. It reports whether a cycle was started.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.mu.Unlock()
		s.skip()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		s.cycle(ctx)
	}()
	return true
}

// Wait blocks until the in-flight cycle, if any, has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunCycle runs one cycle synchronously. If another cycle is in flight it
// returns immediately with Skipped set.
func (s *Scheduler) RunCycle(ctx context.Context) Outcome {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.skip()
		return Outcome{Skipped: true}
	}
	defer s.inFlight.Store(false)
	return s.cycle(ctx)
}

func (s *Scheduler) skip() {
	s.metrics.skipped.Inc()
	s.mu.Lock()
	s.snap.SkippedTicks++
	n := s.snap.SkippedTicks
	s.mu.Unlock()
	s.logger.Warn("tick skipped, previous cycle still in flight", zap.Int64("skipped_total", n))
}

func (s *Scheduler) cycle(parent context.Context) Outcome {
	start := s.now()
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	out := s.fetchAll(ctx)
	out.Duration = s.now().Sub(start)

	result := out.Result()
	s.metrics.cycles.WithLabelValues(result).Inc()
	s.metrics.duration.Observe(out.Duration.Seconds())

	s.mu.Lock()
	s.snap.Cycles++
	s.snap.LastRunAt = start
	s.snap.LastStatus = out.Status.Label
	s.snap.LastError = ""
	if out.Err != nil {
		s.snap.LastError = out.Err.Error()
	} else if len(out.EnvelopeErrs) > 0 {
		s.snap.LastError = errors.Join(out.EnvelopeErrs...).Error()
	}
	s.mu.Unlock()

	fields := []zap.Field{
		zap.String("result", result),
		zap.Duration("duration", out.Duration),
		zap.Int("apps", len(out.Apps)),
	}
	switch {
	case out.Err != nil:
		s.logger.Warn("refresh cycle abandoned", append(fields, zap.Error(out.Err))...)
	case len(out.EnvelopeErrs) > 0:
		s.logger.Info("refresh cycle completed with endpoint errors", append(fields, zap.Errors("endpoint_errors", out.EnvelopeErrs))...)
	default:
		s.logger.Debug("refresh cycle completed", fields...)
	}
	return out
}

// fetchAll performs the sequential fetch protocol. A transport failure on
// any endpoint publishes "Connection error" and abandons the rest.
func (s *Scheduler) fetchAll(ctx context.Context) Outcome {
	var out Outcome
	s.publishStatus(&out, model.StatusFetching)

	live, err := s.source.Live(ctx)
	switch {
	case err == nil:
		summary := aggregate.Summary(live)
		apps := aggregate.Records(live).Records()
		out.Summary = &summary
		out.Apps = apps
		s.presenter.ShowLive(summary, apps)
		s.publishStatus(&out, model.StatusLive)
	case isEnvelope(err):
		out.EnvelopeErrs = append(out.EnvelopeErrs, err)
		s.publishStatus(&out, model.StatusFetchError)
	default:
		return s.abandon(ctx, out, err)
	}

	series, err := s.source.TimeSeries(ctx)
	if ok, abandon := s.classify(&out, err); abandon {
		return s.abandon(ctx, out, err)
	} else if ok {
		s.presenter.ShowTimeSeries(series)
	}

	geo, err := s.source.Geographic(ctx)
	if ok, abandon := s.classify(&out, err); abandon {
		return s.abandon(ctx, out, err)
	} else if ok {
		s.presenter.ShowGeographic(geo)
	}

	usage, err := s.source.System(ctx)
	if ok, abandon := s.classify(&out, err); abandon {
		return s.abandon(ctx, out, err)
	} else if ok {
		s.presenter.ShowSystem(usage)
	}

	out.Completed = true
	out.UpdatedAt = s.now()
	s.presenter.SetLastUpdated(out.UpdatedAt)
	return out
}

// classify reports whether the fetch succeeded and whether the error is a
// transport failure. Envelope failures are recorded and skipped.
func (s *Scheduler) classify(out *Outcome, err error) (ok, abandon bool) {
	if err == nil {
		return true, false
	}
	if isEnvelope(err) {
		out.EnvelopeErrs = append(out.EnvelopeErrs, err)
		return false, false
	}
	return false, true
}

func (s *Scheduler) abandon(ctx context.Context, out Outcome, err error) Outcome {
	out.Err = fmt.Errorf("refresh: %w", err)
	// A cycle cut short by shutdown publishes nothing further.
	if errors.Is(ctx.Err(), context.Canceled) {
		out.Err = fmt.Errorf("refresh: %w", context.Canceled)
		return out
	}
	s.publishStatus(&out, model.StatusConnectionError)
	return out
}

func (s *Scheduler) publishStatus(out *Outcome, status model.ConnectionStatus) {
	out.Status = status
	s.presenter.SetStatus(status)
}

func isEnvelope(err error) bool {
	var envErr *model.EnvelopeError
	return errors.As(err, &envErr)
}
