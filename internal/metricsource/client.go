// Package metricsource is the dashboard's HTTP client for the metric API.
//
// Failures come in two tiers. A well-formed envelope whose status is not
// "success" yields a *model.EnvelopeError. Anything else (network errors,
// non-JSON bodies, success envelopes whose data is null, incomplete or does
// not decode, or an open circuit breaker) is a transport failure.
package metricsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/tinytelemetry/livemon/internal/model"
)

const maxBodyBytes = 8 << 20

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout bounds each HTTP request. Defaults to model.DefaultRequestTimeout.
	Timeout time.Duration
	// BreakerMaxFailures consecutive transport failures open the breaker.
	// Zero disables tripping.
	BreakerMaxFailures uint32
	// BreakerOpenTimeout is how long the breaker stays open before probing.
	BreakerOpenTimeout time.Duration
	HTTPClient         *http.Client
	Logger             *zap.Logger
}

// Client fetches metric envelopes from a MetricSource API.
type Client struct {
	base   *url.URL
	http   *http.Client
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

var _ model.MetricReader = (*Client)(nil)

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("metricsource: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("metricsource: base url %q must be http or https", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = model.DefaultRequestTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("mod", "metricsource"))

	maxFailures := cfg.BreakerMaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "metricsource",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return maxFailures > 0 && counts.ConsecutiveFailures >= maxFailures
		},
		// An envelope error means the API answered; only transport
		// failures count against the breaker.
		IsSuccessful: func(err error) bool {
			var envErr *model.EnvelopeError
			return err == nil || errors.As(err, &envErr)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{base: base, http: hc, cb: cb, logger: logger}, nil
}

// BreakerState reports the circuit breaker's current state.
func (c *Client) BreakerState() gobreaker.State {
	return c.cb.State()
}

func (c *Client) Live(ctx context.Context) (model.LiveMetrics, error) {
	var out model.LiveMetrics
	err := c.get(ctx, model.PathLive, &out)
	return out, err
}

func (c *Client) TimeSeries(ctx context.Context) (model.TimeSeriesMetrics, error) {
	var out model.TimeSeriesMetrics
	err := c.get(ctx, model.PathTimeSeries, &out)
	return out, err
}

func (c *Client) Geographic(ctx context.Context) ([]model.GeoCount, error) {
	var out []model.GeoCount
	err := c.get(ctx, model.PathGeographic, &out)
	return out, err
}

func (c *Client) System(ctx context.Context) (model.SystemUsage, error) {
	var out model.SystemUsage
	err := c.get(ctx, model.PathSystem, &out)
	return out, err
}

// get fetches path through the breaker and decodes the envelope data into
// dst.
func (c *Client) get(ctx context.Context, path string, dst any) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		data, err := c.fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, dst); err != nil {
			return nil, fmt.Errorf("metricsource: %s: decode data: %w", path, err)
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("metricsource: %s: %w", path, err)
	}
	return err
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("metricsource: %s: build request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metricsource: %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("metricsource: %s: read body: %w", path, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("metricsource: %s: non-JSON response (http %d): %w", path, resp.StatusCode, ErrMalformed)
	}

	status := gjson.GetBytes(body, "status")
	if status.String() != model.StatusSuccess {
		c.logger.Debug("envelope failure",
			zap.String("endpoint", path),
			zap.Int("http_status", resp.StatusCode),
			zap.String("status", status.String()))
		return nil, &model.EnvelopeError{
			Endpoint: path,
			Status:   status.String(),
			Message:  gjson.GetBytes(body, "error").String(),
		}
	}

	data := gjson.GetBytes(body, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return nil, fmt.Errorf("metricsource: %s: success envelope without data: %w", path, ErrMalformed)
	}
	if err := checkShape(path, data); err != nil {
		return nil, fmt.Errorf("metricsource: %s: %w", path, err)
	}
	return []byte(data.Raw), nil
}

// Keys each endpoint's data must carry. A missing or null key would decode
// silently to an empty value.
var (
	arrayKeys = map[string][]string{
		model.PathLive:       {"request_rate", "response_time_p95", "error_rate", "total_requests_24h", "uptime"},
		model.PathTimeSeries: {"request_rate_series", "response_time_series"},
	}
	numberKeys = map[string][]string{
		model.PathSystem: {"cpu_usage", "memory_usage", "disk_usage"},
	}
)

func checkShape(path string, data gjson.Result) error {
	if path == model.PathGeographic && !data.IsArray() {
		return fmt.Errorf("data is not an array: %w", ErrMalformed)
	}
	for _, k := range arrayKeys[path] {
		if !data.Get(k).IsArray() {
			return fmt.Errorf("data.%s is not an array: %w", k, ErrMalformed)
		}
	}
	for _, k := range numberKeys[path] {
		if data.Get(k).Type != gjson.Number {
			return fmt.Errorf("data.%s is not a number: %w", k, ErrMalformed)
		}
	}
	return nil
}

// ErrMalformed marks responses that are not a decodable envelope.
var ErrMalformed = errors.New("malformed response")
