package model

// Sample is one measurement for one named application, scoped to a single
// refresh cycle.
type Sample struct {
	App   string  `json:"app"`
	Value float64 `json:"value"`
}

// SampleSet is one metric kind's per-application measurements, in the order
// the source returned them. App names are expected to be unique but this is
// not enforced.
type SampleSet []Sample

// StatusSample is one uptime entry. App may be empty, in which case the
// application name is derived from Job.
type StatusSample struct {
	App    string `json:"app,omitempty"`
	Job    string `json:"job,omitempty"`
	Status string `json:"status"`
}

// Uptime status values.
const (
	AppUp   = "up"
	AppDown = "down"
)

// LiveMetrics is the data payload of the live endpoint.
type LiveMetrics struct {
	RequestRate      SampleSet      `json:"request_rate"`
	ResponseTimeP95  SampleSet      `json:"response_time_p95"`
	ErrorRate        SampleSet      `json:"error_rate"`
	TotalRequests24h SampleSet      `json:"total_requests_24h"`
	Uptime           []StatusSample `json:"uptime"`
}

// AggregateSummary holds the four scalars shown as quick stats.
type AggregateSummary struct {
	TotalRequestRate float64 `json:"total_request_rate"`
	AvgResponseTime  float64 `json:"avg_response_time"`
	SuccessRate      float64 `json:"success_rate"`
	TotalRequests24h float64 `json:"total_requests_24h"`
}

// GeoCount is the request count attributed to one country.
type GeoCount struct {
	Country  string `json:"country"`
	Requests int64  `json:"requests"`
}

// SystemUsage holds host resource usage percentages (0-100).
type SystemUsage struct {
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	DiskUsage   float64 `json:"disk_usage"`
}
