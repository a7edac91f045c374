package model

import "context"

// MetricReader provides the four metric payloads served by the MetricSource.
//
// The dashboard consumes it over HTTP; the API server implements it against
// Prometheus.
type MetricReader interface {
	Live(ctx context.Context) (LiveMetrics, error)
	TimeSeries(ctx context.Context) (TimeSeriesMetrics, error)
	Geographic(ctx context.Context) ([]GeoCount, error)
	System(ctx context.Context) (SystemUsage, error)
}

// HealthChecker reports whether the upstream metric store is reachable.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}
