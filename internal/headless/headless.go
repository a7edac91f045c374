// Package headless is a Presenter that writes every publication to a zap
// logger instead of a terminal.
package headless

import (
	"time"

	"go.uber.org/zap"

	"github.com/tinytelemetry/livemon/internal/format"
	"github.com/tinytelemetry/livemon/internal/model"
)

// Presenter logs dashboard updates.
type Presenter struct {
	logger *zap.Logger
	names  format.DisplayNames
}

// New returns a headless presenter.
func New(logger *zap.Logger, names format.DisplayNames) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if names == nil {
		names = format.DefaultDisplayNames()
	}
	return &Presenter{logger: logger.With(zap.String("mod", "headless")), names: names}
}

func (p *Presenter) SetStatus(status model.ConnectionStatus) {
	p.logger.Info("status", zap.String("label", status.Label), zap.Bool("connected", status.Connected))
}

func (p *Presenter) ShowLive(summary model.AggregateSummary, apps []model.AppRecord) {
	stats := format.Stats(summary)
	p.logger.Info("quick stats",
		zap.String("request_rate", stats.RequestRate),
		zap.String("avg_response_time_ms", stats.AvgResponseTime),
		zap.String("success_rate", stats.SuccessRate),
		zap.String("total_requests_24h", stats.TotalRequests))

	for _, app := range apps {
		fields := []zap.Field{
			zap.String("app", p.names.Name(app.Name)),
			zap.String("status", format.Badge(app.Status)),
		}
		for _, line := range format.AppLines(app) {
			fields = append(fields, zap.String(line.Label, line.Value))
		}
		p.logger.Info("app", fields...)
	}
}

func (p *Presenter) ShowTimeSeries(series model.TimeSeriesMetrics) {
	p.logger.Debug("time series",
		zap.Int("request_rate_series", len(series.RequestRateSeries)),
		zap.Int("response_time_series", len(series.ResponseTimeSeries)))
}

func (p *Presenter) ShowGeographic(geo []model.GeoCount) {
	fields := make([]zap.Field, 0, len(geo))
	for _, g := range geo {
		fields = append(fields, zap.Int64(g.Country, g.Requests))
	}
	p.logger.Info("geographic", fields...)
}

func (p *Presenter) ShowSystem(usage model.SystemUsage) {
	p.logger.Info("system",
		gauge("cpu", usage.CPUUsage),
		gauge("memory", usage.MemoryUsage),
		gauge("disk", usage.DiskUsage))
}

func (p *Presenter) SetLastUpdated(at time.Time) {
	p.logger.Info("last updated", zap.String("at", format.Clock(at)))
}

func gauge(name string, v float64) zap.Field {
	pct := format.Percent(v)
	return zap.Dict(name, zap.Int("percent", pct), zap.String("level", format.GaugeLevel(pct).String()))
}
