// Package promquery answers the metric API's payloads from Prometheus.
//
// Each payload field is one PromQL query. A failed query degrades its field
// to the empty value and is logged; it never fails the whole payload.
package promquery

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	pmodel "github.com/prometheus/common/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tinytelemetry/livemon/internal/model"
)

// Querier is the subset of the Prometheus HTTP API the collector uses.
type Querier interface {
	Query(ctx context.Context, query string, ts time.Time, opts ...v1.Option) (pmodel.Value, v1.Warnings, error)
	QueryRange(ctx context.Context, query string, r v1.Range, opts ...v1.Option) (pmodel.Value, v1.Warnings, error)
}

// ErrUnexpectedType is returned when a query answers with a result type other
// than the one requested.
var ErrUnexpectedType = errors.New("unexpected result type")

// Config configures a Collector. Zero values fall back to defaults.
type Config struct {
	Address string
	// Timeout bounds each query attempt.
	Timeout time.Duration
	// Retries is the number of attempts per query.
	Retries uint
	// RetryDelay between attempts. Zero uses exponential backoff.
	RetryDelay time.Duration
	// Rate limits outbound queries per second. Zero means unlimited.
	Rate  float64
	Burst int

	UptimeJobs []string
	Window     time.Duration
	Step       time.Duration
	GeoTop     int

	Logger   *zap.Logger
	Registry prometheus.Registerer
	Now      func() time.Time
}

// Collector implements model.MetricReader against Prometheus.
type Collector struct {
	api        Querier
	timeout    time.Duration
	retries    uint
	retryDelay time.Duration
	limiter    *rate.Limiter

	uptimeQuery string
	geoQuery    string
	window      time.Duration
	step        time.Duration

	logger  *zap.Logger
	queries *prometheus.CounterVec
	latency *prometheus.HistogramVec
	now     func() time.Time
}

var (
	_ model.MetricReader  = (*Collector)(nil)
	_ model.HealthChecker = (*Collector)(nil)
)

// New connects a collector to the Prometheus server at cfg.Address.
func New(cfg Config) (*Collector, error) {
	if cfg.Address == "" {
		cfg.Address = model.DefaultPrometheusURL
	}
	client, err := api.NewClient(api.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("promquery: create client: %w", err)
	}
	return NewWithQuerier(v1.NewAPI(client), cfg), nil
}

// NewWithQuerier builds a collector on an existing query API.
func NewWithQuerier(q Querier, cfg Config) *Collector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Retries == 0 {
		cfg.Retries = 1
	}
	if len(cfg.UptimeJobs) == 0 {
		cfg.UptimeJobs = DefaultUptimeJobs
	}
	if cfg.Window <= 0 {
		cfg.Window = model.DefaultSeriesWindow
	}
	if cfg.Step <= 0 {
		cfg.Step = model.DefaultSeriesStep
	}
	if cfg.GeoTop <= 0 {
		cfg.GeoTop = model.DefaultGeoTop
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	f := promauto.With(cfg.Registry)
	return &Collector{
		api:         q,
		timeout:     cfg.Timeout,
		retries:     cfg.Retries,
		retryDelay:  cfg.RetryDelay,
		limiter:     rate.NewLimiter(limit, burst),
		uptimeQuery: uptimeQuery(cfg.UptimeJobs),
		geoQuery:    geoQuery(cfg.GeoTop),
		window:      cfg.Window,
		step:        cfg.Step,
		logger:      cfg.Logger.With(zap.String("mod", "promquery")),
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livemon",
			Subsystem: "prometheus",
			Name:      "queries_total",
			Help:      "PromQL queries issued, by payload field and result.",
		}, []string{"field", "result"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "livemon",
			Subsystem: "prometheus",
			Name:      "query_duration_seconds",
			Help:      "PromQL query latency including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"field"}),
		now: cfg.Now,
	}
}

// Live runs the five live queries concurrently.
func (c *Collector) Live(ctx context.Context) (model.LiveMetrics, error) {
	out := model.LiveMetrics{
		RequestRate:      model.SampleSet{},
		ResponseTimeP95:  model.SampleSet{},
		ErrorRate:        model.SampleSet{},
		TotalRequests24h: model.SampleSet{},
		Uptime:           []model.StatusSample{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.RequestRate = c.samples(gctx, "request_rate", queryRequestRate, false)
		return nil
	})
	g.Go(func() error {
		out.ResponseTimeP95 = c.samples(gctx, "response_time_p95", queryResponseP95, false)
		return nil
	})
	g.Go(func() error {
		out.ErrorRate = c.samples(gctx, "error_rate", queryErrorRate, false)
		return nil
	})
	g.Go(func() error {
		out.TotalRequests24h = c.samples(gctx, "total_requests_24h", queryTotal24h, true)
		return nil
	})
	g.Go(func() error {
		out.Uptime = c.uptime(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.LiveMetrics{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.LiveMetrics{}, fmt.Errorf("promquery: live: %w", err)
	}
	return out, nil
}

// TimeSeries runs the request-rate and p95 range queries over the window.
func (c *Collector) TimeSeries(ctx context.Context) (model.TimeSeriesMetrics, error) {
	end := c.now()
	r := v1.Range{Start: end.Add(-c.window), End: end, Step: c.step}
	out := model.TimeSeriesMetrics{
		RequestRateSeries:  c.series(ctx, "request_rate_series", queryRequestRate, r),
		ResponseTimeSeries: c.series(ctx, "response_time_series", queryResponseP95, r),
	}
	if err := ctx.Err(); err != nil {
		return model.TimeSeriesMetrics{}, fmt.Errorf("promquery: timeseries: %w", err)
	}
	return out, nil
}

// Geographic returns the top countries by 24h request count.
func (c *Collector) Geographic(ctx context.Context) ([]model.GeoCount, error) {
	vec, err := c.vector(ctx, "geographic", c.geoQuery)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("promquery: geographic: %w", ctxErr)
		}
		return []model.GeoCount{}, nil
	}
	out := make([]model.GeoCount, 0, len(vec))
	for _, s := range vec {
		country := string(s.Metric["country"])
		if country == "" {
			country = "Unknown"
		}
		out = append(out, model.GeoCount{Country: country, Requests: truncate(float64(s.Value))})
	}
	return out, nil
}

// System returns host CPU, memory and disk usage from node exporter series.
func (c *Collector) System(ctx context.Context) (model.SystemUsage, error) {
	out := model.SystemUsage{
		CPUUsage:    c.first(ctx, "cpu_usage", queryCPU),
		MemoryUsage: c.first(ctx, "memory_usage", queryMemory),
		DiskUsage:   c.first(ctx, "disk_usage", queryDisk),
	}
	if err := ctx.Err(); err != nil {
		return model.SystemUsage{}, fmt.Errorf("promquery: system: %w", err)
	}
	return out, nil
}

// Healthy reports whether Prometheus answers a trivial query.
func (c *Collector) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, _, err := c.api.Query(ctx, queryHealth, c.now()); err != nil {
		return fmt.Errorf("promquery: health: %w", err)
	}
	return nil
}

// samples converts a by-app vector into a sample set. Rows without an app
// label or with a non-finite value are dropped.
func (c *Collector) samples(ctx context.Context, field, query string, integer bool) model.SampleSet {
	vec, err := c.vector(ctx, field, query)
	if err != nil {
		return model.SampleSet{}
	}
	out := make(model.SampleSet, 0, len(vec))
	for _, s := range vec {
		app := string(s.Metric["app"])
		v := float64(s.Value)
		if app == "" || math.IsNaN(v) || math.IsInf(v, 0) {
			c.logger.Debug("dropping sample", zap.String("field", field), zap.String("metric", s.Metric.String()))
			continue
		}
		if integer {
			v = float64(truncate(v))
		}
		out = append(out, model.Sample{App: app, Value: v})
	}
	return out
}

func (c *Collector) uptime(ctx context.Context) []model.StatusSample {
	vec, err := c.vector(ctx, "uptime", c.uptimeQuery)
	if err != nil {
		return []model.StatusSample{}
	}
	out := make([]model.StatusSample, 0, len(vec))
	for _, s := range vec {
		app := string(s.Metric["app"])
		if app == "" {
			app = "unknown"
		}
		status := model.AppDown
		if s.Value == 1 {
			status = model.AppUp
		}
		out = append(out, model.StatusSample{App: app, Job: string(s.Metric["job"]), Status: status})
	}
	return out
}

func (c *Collector) first(ctx context.Context, field, query string) float64 {
	vec, err := c.vector(ctx, field, query)
	if err != nil || len(vec) == 0 {
		return 0
	}
	v := float64(vec[0].Value)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func (c *Collector) series(ctx context.Context, field, query string, r v1.Range) []model.Series {
	var matrix pmodel.Matrix
	err := c.do(ctx, field, func(qctx context.Context) error {
		val, warnings, err := c.api.QueryRange(qctx, query, r)
		if err != nil {
			return err
		}
		c.warn(field, warnings)
		m, ok := val.(pmodel.Matrix)
		if !ok {
			return retry.Unrecoverable(fmt.Errorf("%w: %s", ErrUnexpectedType, val.Type()))
		}
		matrix = m
		return nil
	})
	if err != nil {
		return []model.Series{}
	}

	out := make([]model.Series, 0, len(matrix))
	for _, ss := range matrix {
		labels := make(map[string]string, len(ss.Metric))
		for k, v := range ss.Metric {
			labels[string(k)] = string(v)
		}
		points := make([]model.TimeSeriesPoint, 0, len(ss.Values))
		for _, p := range ss.Values {
			points = append(points, model.TimeSeriesPoint{Time: p.Timestamp.Time(), Value: float64(p.Value)})
		}
		out = append(out, model.Series{Metric: labels, Values: points})
	}
	return out
}

func (c *Collector) vector(ctx context.Context, field, query string) (pmodel.Vector, error) {
	var vec pmodel.Vector
	err := c.do(ctx, field, func(qctx context.Context) error {
		val, warnings, err := c.api.Query(qctx, query, c.now())
		if err != nil {
			return err
		}
		c.warn(field, warnings)
		v, ok := val.(pmodel.Vector)
		if !ok {
			return retry.Unrecoverable(fmt.Errorf("%w: %s", ErrUnexpectedType, val.Type()))
		}
		vec = v
		return nil
	})
	return vec, err
}

// do runs fn behind the rate limiter with retries, each attempt bounded by
// the query timeout. Failures are counted and logged here.
func (c *Collector) do(ctx context.Context, field string, fn func(context.Context) error) error {
	start := time.Now()
	defer func() { c.latency.WithLabelValues(field).Observe(time.Since(start).Seconds()) }()

	if err := c.limiter.Wait(ctx); err != nil {
		c.queries.WithLabelValues(field, "rate_limited").Inc()
		return fmt.Errorf("promquery: %s: rate limit: %w", field, err)
	}

	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(c.retries),
		retry.DelayType(func(n uint, err error, dc retry.DelayContext) time.Duration {
			if c.retryDelay > 0 {
				return c.retryDelay
			}
			return retry.BackOffDelay(n, err, dc)
		}),
	)
	err := r.Do(func() error {
		qctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return fn(qctx)
	})
	if err != nil {
		c.queries.WithLabelValues(field, "error").Inc()
		c.logger.Error("prometheus query failed", zap.String("field", field), zap.Error(err))
		return fmt.Errorf("promquery: %s: %w", field, err)
	}
	c.queries.WithLabelValues(field, "ok").Inc()
	return nil
}

func (c *Collector) warn(field string, warnings v1.Warnings) {
	if len(warnings) > 0 {
		c.logger.Warn("prometheus query warnings", zap.String("field", field), zap.Strings("warnings", warnings))
	}
}

func truncate(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(v)
}
