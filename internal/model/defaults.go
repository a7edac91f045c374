package model

import "time"

// Shared defaults used by both the dashboard and API binaries.
const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultRequestTimeout  = 10 * time.Second
	DefaultAPIPort         = 5000
	DefaultAPIURL          = "http://localhost:5000"
	DefaultPrometheusURL   = "http://localhost:9090"
	DefaultSeriesWindow    = 6 * time.Hour
	DefaultSeriesStep      = 5 * time.Minute
	DefaultGeoTop          = 10
)

// Endpoint paths served by the MetricSource API.
const (
	PathLive       = "/api/metrics/live"
	PathTimeSeries = "/api/metrics/timeseries"
	PathGeographic = "/api/metrics/geographic"
	PathSystem     = "/api/metrics/system"
	PathHealth     = "/api/metrics/health"
)
