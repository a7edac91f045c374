package refresh

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle results recorded on livemon_refresh_cycles_total.
const (
	ResultLive            = "live"
	ResultFetchError      = "fetch_error"
	ResultConnectionError = "connection_error"
	ResultCancelled       = "cancelled"
)

type metrics struct {
	cycles   *prometheus.CounterVec
	skipped  prometheus.Counter
	duration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &metrics{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livemon",
			Subsystem: "refresh",
			Name:      "cycles_total",
			Help:      "Refresh cycles by result.",
		}, []string{"result"}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "livemon",
			Subsystem: "refresh",
			Name:      "skipped_ticks_total",
			Help:      "Ticks dropped because a cycle was still in flight.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "livemon",
			Subsystem: "refresh",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of refresh cycles.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}
}
