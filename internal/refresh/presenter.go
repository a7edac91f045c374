package refresh

import (
	"time"

	"github.com/tinytelemetry/livemon/internal/model"
)

// Presenter receives everything a refresh cycle publishes. Calls for one
// cycle arrive sequentially from a single goroutine and cycles never overlap.
type Presenter interface {
	SetStatus(status model.ConnectionStatus)
	ShowLive(summary model.AggregateSummary, apps []model.AppRecord)
	ShowTimeSeries(series model.TimeSeriesMetrics)
	ShowGeographic(geo []model.GeoCount)
	ShowSystem(usage model.SystemUsage)
	SetLastUpdated(at time.Time)
}

// Multi fans every call out to each presenter in order.
type Multi []Presenter

func (m Multi) SetStatus(status model.ConnectionStatus) {
	for _, p := range m {
		p.SetStatus(status)
	}
}

func (m Multi) ShowLive(summary model.AggregateSummary, apps []model.AppRecord) {
	for _, p := range m {
		p.ShowLive(summary, apps)
	}
}

func (m Multi) ShowTimeSeries(series model.TimeSeriesMetrics) {
	for _, p := range m {
		p.ShowTimeSeries(series)
	}
}

func (m Multi) ShowGeographic(geo []model.GeoCount) {
	for _, p := range m {
		p.ShowGeographic(geo)
	}
}

func (m Multi) ShowSystem(usage model.SystemUsage) {
	for _, p := range m {
		p.ShowSystem(usage)
	}
}

func (m Multi) SetLastUpdated(at time.Time) {
	for _, p := range m {
		p.SetLastUpdated(at)
	}
}
