package metricsource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tinytelemetry/livemon/internal/model"
)

func newServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL string, maxFailures uint32) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, Timeout: 2 * time.Second, BreakerMaxFailures: maxFailures, BreakerOpenTimeout: time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClientDecodesSuccessEnvelopes(t *testing.T) {
	t.Parallel()

	srv := newServer(t, map[string]string{
		model.PathLive: `{"status":"success","data":{"request_rate":[{"app":"a","value":1.5}],"response_time_p95":[],"error_rate":[],"total_requests_24h":[{"app":"a","value":42}],"uptime":[{"app":"a","job":"a_app","status":"up"}]}}`,
		model.PathTimeSeries: `{"status":"success","data":{"request_rate_series":[{"metric":{"app":"a"},"values":[[1700000000,"1"]]}],"response_time_series":[]}}`,
		model.PathGeographic: `{"status":"success","data":[{"country":"US","requests":12}]}`,
		model.PathSystem:     `{"status":"success","data":{"cpu_usage":10.5,"memory_usage":50,"disk_usage":91}}`,
	})
	c := newClient(t, srv.URL, 3)
	ctx := context.Background()

	live, err := c.Live(ctx)
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	if len(live.RequestRate) != 1 || live.RequestRate[0].Value != 1.5 || live.Uptime[0].Status != model.AppUp {
		t.Fatalf("live = %+v", live)
	}

	ts, err := c.TimeSeries(ctx)
	if err != nil {
		t.Fatalf("TimeSeries: %v", err)
	}
	if len(ts.RequestRateSeries) != 1 || ts.RequestRateSeries[0].App() != "a" {
		t.Fatalf("timeseries = %+v", ts)
	}

	geo, err := c.Geographic(ctx)
	if err != nil {
		t.Fatalf("Geographic: %v", err)
	}
	if len(geo) != 1 || geo[0].Requests != 12 {
		t.Fatalf("geo = %+v", geo)
	}

	sys, err := c.System(ctx)
	if err != nil {
		t.Fatalf("System: %v", err)
	}
	if sys.DiskUsage != 91 {
		t.Fatalf("system = %+v", sys)
	}
}

func TestClientErrorTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		body         string
		wantEnvelope bool
		wantMessage  string
	}{
		{name: "error envelope", body: `{"status":"error","error":"prometheus unavailable"}`, wantEnvelope: true, wantMessage: "prometheus unavailable"},
		{name: "unknown status", body: `{"status":"pending"}`, wantEnvelope: true},
		{name: "missing status", body: `{"data":{}}`, wantEnvelope: true},
		{name: "non-json", body: `<html>bad gateway</html>`},
		{name: "undecodable data", body: `{"status":"success","data":{"cpu_usage":"high"}}`},
		{name: "success without data", body: `{"status":"success"}`},
		{name: "success with null data", body: `{"status":"success","data":null}`},
		{name: "missing usage key", body: `{"status":"success","data":{"cpu_usage":1,"memory_usage":2}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newServer(t, map[string]string{model.PathSystem: tt.body})
			c := newClient(t, srv.URL, 0)

			_, err := c.System(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			var envErr *model.EnvelopeError
			if got := errors.As(err, &envErr); got != tt.wantEnvelope {
				t.Fatalf("envelope error = %v, want %v (err: %v)", got, tt.wantEnvelope, err)
			}
			if tt.wantEnvelope {
				if envErr.Endpoint != model.PathSystem {
					t.Fatalf("endpoint = %q", envErr.Endpoint)
				}
				if envErr.Message != tt.wantMessage {
					t.Fatalf("message = %q, want %q", envErr.Message, tt.wantMessage)
				}
			}
		})
	}
}

func TestClientRejectsIncompletePayloads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		body string
	}{
		{"live null", model.PathLive, `{"status":"success","data":null}`},
		{"live without uptime", model.PathLive, `{"status":"success","data":{"request_rate":[],"response_time_p95":[],"error_rate":[],"total_requests_24h":[]}}`},
		{"live null request rate", model.PathLive, `{"status":"success","data":{"request_rate":null,"response_time_p95":[],"error_rate":[],"total_requests_24h":[],"uptime":[]}}`},
		{"timeseries without response series", model.PathTimeSeries, `{"status":"success","data":{"request_rate_series":[]}}`},
		{"geographic object", model.PathGeographic, `{"status":"success","data":{"country":"US"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newServer(t, map[string]string{tt.path: tt.body})
			c := newClient(t, srv.URL, 0)

			var err error
			switch tt.path {
			case model.PathLive:
				_, err = c.Live(context.Background())
			case model.PathTimeSeries:
				_, err = c.TimeSeries(context.Background())
			case model.PathGeographic:
				_, err = c.Geographic(context.Background())
			}
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("err = %v, want ErrMalformed", err)
			}
			var envErr *model.EnvelopeError
			if errors.As(err, &envErr) {
				t.Fatalf("incomplete payload should be a transport failure: %v", err)
			}
		})
	}
}

func TestClientNetworkErrorIsTransport(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(t, url, 0)
	_, err := c.Live(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var envErr *model.EnvelopeError
	if errors.As(err, &envErr) {
		t.Fatalf("network failure should not be an envelope error: %v", err)
	}
}

func TestClientBreakerOpensOnTransportFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("not json"))
	}))
	t.Cleanup(srv.Close)

	c := newClient(t, srv.URL, 2)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.Geographic(ctx); err == nil {
			t.Fatal("expected transport error")
		}
	}
	if c.BreakerState() != gobreaker.StateOpen {
		t.Fatalf("breaker = %v, want open", c.BreakerState())
	}

	_, err := c.Geographic(ctx)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want open state", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("server hits = %d, open breaker should not call out", hits.Load())
	}
}

func TestClientEnvelopeErrorsDoNotTripBreaker(t *testing.T) {
	t.Parallel()

	srv := newServer(t, map[string]string{model.PathLive: `{"status":"error","error":"x"}`})
	c := newClient(t, srv.URL, 1)

	for i := 0; i < 3; i++ {
		_, err := c.Live(context.Background())
		var envErr *model.EnvelopeError
		if !errors.As(err, &envErr) {
			t.Fatalf("attempt %d: err = %v, want envelope error", i, err)
		}
	}
	if c.BreakerState() != gobreaker.StateClosed {
		t.Fatalf("breaker = %v, want closed", c.BreakerState())
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{BaseURL: "localhost:5000"}); err == nil {
		t.Fatal("expected error for url without scheme")
	}
}
