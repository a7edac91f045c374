package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/livemon/internal/model"
)

type statusMsg model.ConnectionStatus

type liveMsg struct {
	summary model.AggregateSummary
	apps    []model.AppRecord
}

type seriesMsg model.TimeSeriesMetrics

type geoMsg []model.GeoCount

type systemMsg model.SystemUsage

type updatedMsg time.Time

// Sender delivers messages into a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Presenter forwards scheduler publications to the bubbletea program as
// messages, so all dashboard state is mutated on the program's goroutine.
type Presenter struct {
	sender Sender
}

// NewPresenter returns a presenter that sends to s.
func NewPresenter(s Sender) *Presenter {
	return &Presenter{sender: s}
}

func (p *Presenter) SetStatus(status model.ConnectionStatus) {
	p.sender.Send(statusMsg(status))
}

func (p *Presenter) ShowLive(summary model.AggregateSummary, apps []model.AppRecord) {
	p.sender.Send(liveMsg{summary: summary, apps: apps})
}

func (p *Presenter) ShowTimeSeries(series model.TimeSeriesMetrics) {
	p.sender.Send(seriesMsg(series))
}

func (p *Presenter) ShowGeographic(geo []model.GeoCount) {
	p.sender.Send(geoMsg(geo))
}

func (p *Presenter) ShowSystem(usage model.SystemUsage) {
	p.sender.Send(systemMsg(usage))
}

func (p *Presenter) SetLastUpdated(at time.Time) {
	p.sender.Send(updatedMsg(at))
}
