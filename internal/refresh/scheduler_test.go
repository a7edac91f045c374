package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tinytelemetry/livemon/internal/model"
)

var errDial = errors.New("dial tcp 127.0.0.1:5000: connect: connection refused")

type fakeSource struct {
	mu    sync.Mutex
	calls []string

	live      model.LiveMetrics
	liveErr   error
	series    model.TimeSeriesMetrics
	seriesErr error
	geo       []model.GeoCount
	geoErr    error
	usage     model.SystemUsage
	usageErr  error

	// liveStarted is closed when Live is entered; Live then blocks on
	// liveRelease when it is non-nil.
	liveStarted chan struct{}
	liveRelease chan struct{}
}

func (f *fakeSource) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeSource) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSource) Live(ctx context.Context) (model.LiveMetrics, error) {
	f.record("live")
	if f.liveStarted != nil {
		close(f.liveStarted)
	}
	if f.liveRelease != nil {
		select {
		case <-f.liveRelease:
		case <-ctx.Done():
			return model.LiveMetrics{}, ctx.Err()
		}
	}
	return f.live, f.liveErr
}

func (f *fakeSource) TimeSeries(context.Context) (model.TimeSeriesMetrics, error) {
	f.record("timeseries")
	return f.series, f.seriesErr
}

func (f *fakeSource) Geographic(context.Context) ([]model.GeoCount, error) {
	f.record("geographic")
	return f.geo, f.geoErr
}

func (f *fakeSource) System(context.Context) (model.SystemUsage, error) {
	f.record("system")
	return f.usage, f.usageErr
}

type recordingPresenter struct {
	mu       sync.Mutex
	statuses []model.ConnectionStatus
	summary  *model.AggregateSummary
	apps     []model.AppRecord
	series   *model.TimeSeriesMetrics
	geo      []model.GeoCount
	usage    *model.SystemUsage
	updated  time.Time
}

func (p *recordingPresenter) SetStatus(s model.ConnectionStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, s)
}

func (p *recordingPresenter) ShowLive(summary model.AggregateSummary, apps []model.AppRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary = &summary
	p.apps = apps
}

func (p *recordingPresenter) ShowTimeSeries(s model.TimeSeriesMetrics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series = &s
}

func (p *recordingPresenter) ShowGeographic(g []model.GeoCount) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.geo = g
}

func (p *recordingPresenter) ShowSystem(u model.SystemUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usage = &u
}

func (p *recordingPresenter) SetLastUpdated(at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updated = at
}

func (p *recordingPresenter) lastStatus() model.ConnectionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.statuses) == 0 {
		return model.ConnectionStatus{}
	}
	return p.statuses[len(p.statuses)-1]
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time { return at }
}

func newTestScheduler(src *fakeSource, p *recordingPresenter, reg prometheus.Registerer) *Scheduler {
	return New(src, p, Config{Interval: time.Hour, Registry: reg, Now: fixedClock()})
}

func equalCalls(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunCycleSuccessPublishesEverything(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		live: model.LiveMetrics{
			RequestRate: model.SampleSet{{App: "a", Value: 1.5}},
			ErrorRate:   model.SampleSet{{App: "a", Value: 2}, {App: "b", Value: 4}},
			Uptime:      []model.StatusSample{{App: "a", Status: model.AppUp}, {App: "b", Status: model.AppDown}},
		},
		geo:   []model.GeoCount{{Country: "US", Requests: 10}},
		usage: model.SystemUsage{CPUUsage: 12},
	}
	p := &recordingPresenter{}
	s := newTestScheduler(src, p, nil)

	out := s.RunCycle(context.Background())

	if !out.Completed || out.Err != nil {
		t.Fatalf("outcome = %+v, want completed", out)
	}
	if got := src.Calls(); !equalCalls(got, []string{"live", "timeseries", "geographic", "system"}) {
		t.Fatalf("calls = %v", got)
	}
	if len(p.statuses) != 2 || p.statuses[0] != model.StatusFetching || p.statuses[1] != model.StatusLive {
		t.Fatalf("statuses = %v", p.statuses)
	}
	if p.summary == nil || p.summary.SuccessRate != 97 || p.summary.TotalRequestRate != 1.5 {
		t.Fatalf("summary = %+v", p.summary)
	}
	if len(p.apps) != 2 {
		t.Fatalf("apps = %+v", p.apps)
	}
	if p.series == nil || len(p.geo) != 1 || p.usage == nil {
		t.Fatal("series, geographic and system should all be published")
	}
	if !p.updated.Equal(fixedClock()()) {
		t.Fatalf("last updated = %v", p.updated)
	}
	if out.Result() != ResultLive {
		t.Fatalf("result = %q, want %q", out.Result(), ResultLive)
	}
}

func TestRunCycleLiveTransportFailureAbandons(t *testing.T) {
	t.Parallel()

	src := &fakeSource{liveErr: errDial}
	p := &recordingPresenter{}
	s := newTestScheduler(src, p, nil)

	out := s.RunCycle(context.Background())

	if out.Completed || !errors.Is(out.Err, errDial) {
		t.Fatalf("outcome = %+v, want transport failure", out)
	}
	if got := p.lastStatus(); got != model.StatusConnectionError {
		t.Fatalf("status = %v, want %v", got, model.StatusConnectionError)
	}
	if p.summary != nil || out.Summary != nil {
		t.Fatal("summary should be unset")
	}
	if got := src.Calls(); !equalCalls(got, []string{"live"}) {
		t.Fatalf("calls = %v, later fetches should not run", got)
	}
	if !p.updated.IsZero() {
		t.Fatal("last updated should not be published")
	}
}

func TestRunCycleLiveEnvelopeFailureContinues(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		liveErr: &model.EnvelopeError{Endpoint: model.PathLive, Status: "error", Message: "boom"},
		geo:     []model.GeoCount{{Country: "DE", Requests: 3}},
	}
	p := &recordingPresenter{}
	s := newTestScheduler(src, p, nil)

	out := s.RunCycle(context.Background())

	if got := p.lastStatus(); got != model.StatusFetchError {
		t.Fatalf("status = %v, want %v", got, model.StatusFetchError)
	}
	if got := src.Calls(); !equalCalls(got, []string{"live", "timeseries", "geographic", "system"}) {
		t.Fatalf("calls = %v", got)
	}
	if !out.Completed || len(out.EnvelopeErrs) != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if len(p.geo) != 1 {
		t.Fatal("geographic should still be published")
	}
	if p.updated.IsZero() {
		t.Fatal("last updated should be published")
	}
	if out.Result() != ResultFetchError {
		t.Fatalf("result = %q", out.Result())
	}
}

func TestRunCycleSecondaryEnvelopeFailureSkipsSilently(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		seriesErr: &model.EnvelopeError{Endpoint: model.PathTimeSeries, Status: "error"},
		usage:     model.SystemUsage{DiskUsage: 50},
	}
	p := &recordingPresenter{}
	s := newTestScheduler(src, p, nil)

	out := s.RunCycle(context.Background())

	if got := p.lastStatus(); got != model.StatusLive {
		t.Fatalf("status = %v, want Live", got)
	}
	if p.series != nil {
		t.Fatal("series should not be published")
	}
	if p.usage == nil || p.usage.DiskUsage != 50 {
		t.Fatal("system should be published")
	}
	if !out.Completed {
		t.Fatal("cycle should complete")
	}
}

func TestRunCycleLateTransportFailure(t *testing.T) {
	t.Parallel()

	src := &fakeSource{geoErr: errDial}
	p := &recordingPresenter{}
	s := newTestScheduler(src, p, nil)

	out := s.RunCycle(context.Background())

	if got := p.lastStatus(); got != model.StatusConnectionError {
		t.Fatalf("status = %v", got)
	}
	if got := src.Calls(); !equalCalls(got, []string{"live", "timeseries", "geographic"}) {
		t.Fatalf("calls = %v", got)
	}
	if p.summary == nil {
		t.Fatal("live data published before the failure should remain")
	}
	if p.usage != nil || !p.updated.IsZero() {
		t.Fatal("nothing should be published after the failure")
	}
	if out.Result() != ResultConnectionError {
		t.Fatalf("result = %q", out.Result())
	}
}

func TestTickDuringInFlightCycleIsSkipped(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		liveStarted: make(chan struct{}),
		liveRelease: make(chan struct{}),
	}
	p := &recordingPresenter{}
	reg := prometheus.NewRegistry()
	s := newTestScheduler(src, p, reg)

	ctx := context.Background()
	if !s.Tick(ctx) {
		t.Fatal("first tick should start a cycle")
	}
	<-src.liveStarted
	if s.State() != Fetching {
		t.Fatalf("state = %v, want fetching", s.State())
	}
	if s.Tick(ctx) {
		t.Fatal("tick during in-flight cycle should be skipped")
	}
	if out := s.RunCycle(ctx); !out.Skipped {
		t.Fatal("RunCycle during in-flight cycle should be skipped")
	}

	close(src.liveRelease)
	s.Wait()

	if s.State() != Idle {
		t.Fatalf("state = %v, want idle", s.State())
	}
	snap := s.Snapshot()
	if snap.Cycles != 1 || snap.SkippedTicks != 2 {
		t.Fatalf("snapshot = %+v, want 1 cycle and 2 skipped", snap)
	}
	if got := testutil.ToFloat64(s.metrics.skipped); got != 2 {
		t.Fatalf("skipped metric = %v, want 2", got)
	}
	if got := testutil.ToFloat64(s.metrics.cycles.WithLabelValues(ResultLive)); got != 1 {
		t.Fatalf("live cycles metric = %v, want 1", got)
	}
	var lives int
	for _, c := range src.Calls() {
		if c == "live" {
			lives++
		}
	}
	if lives != 1 {
		t.Fatalf("live fetched %d times, want 1", lives)
	}
}

func TestRunStopsAndCancelsInFlightCycle(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		liveStarted: make(chan struct{}),
		liveRelease: make(chan struct{}),
	}
	p := &recordingPresenter{}
	s := newTestScheduler(src, p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	<-src.liveStarted
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if s.State() != Idle {
		t.Fatal("in-flight cycle should have returned")
	}
	snap := s.Snapshot()
	if snap.Cycles != 1 || snap.StartedAt.IsZero() {
		t.Fatalf("snapshot = %+v", snap)
	}
	if got := p.lastStatus(); got != model.StatusFetching {
		t.Fatalf("status = %v, a cancelled cycle should publish nothing after fetching", got)
	}
}

func TestTickAfterShutdownDoesNothing(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	p := &recordingPresenter{}
	s := newTestScheduler(src, p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	before := len(src.Calls())

	if s.Tick(ctx) {
		t.Fatal("Tick with a cancelled context should not start a cycle")
	}
	if s.Tick(context.Background()) {
		t.Fatal("Tick after Run has stopped should not start a cycle")
	}
	s.Wait()
	if got := len(src.Calls()); got != before {
		t.Fatalf("source calls = %d, want %d", got, before)
	}
	if snap := s.Snapshot(); snap.SkippedTicks != 0 {
		t.Fatalf("skipped ticks = %d, shutdown ticks are not skips", snap.SkippedTicks)
	}
}

func TestCycleTimeoutIsConnectionError(t *testing.T) {
	t.Parallel()

	src := &fakeSource{liveRelease: make(chan struct{})}
	p := &recordingPresenter{}
	s := New(src, p, Config{Interval: time.Hour, CycleTimeout: 20 * time.Millisecond})

	out := s.RunCycle(context.Background())

	if !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", out.Err)
	}
	if got := p.lastStatus(); got != model.StatusConnectionError {
		t.Fatalf("status = %v", got)
	}
	if s.Snapshot().LastError == "" {
		t.Fatal("snapshot should record the last error")
	}
}

func TestMultiFansOut(t *testing.T) {
	t.Parallel()

	a, b := &recordingPresenter{}, &recordingPresenter{}
	m := Multi{a, b}
	m.SetStatus(model.StatusLive)
	m.ShowSystem(model.SystemUsage{CPUUsage: 1})

	for _, p := range []*recordingPresenter{a, b} {
		if p.lastStatus() != model.StatusLive || p.usage == nil {
			t.Fatal("every presenter should receive every call")
		}
	}
}
