package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/livemon/internal/format"
	"github.com/tinytelemetry/livemon/internal/model"
)

// Options configures a DashboardModel.
type Options struct {
	DisplayNames format.DisplayNames
	// Interval is shown in the status line.
	Interval time.Duration
	// OnRefresh is called when the user asks for an immediate refresh.
	OnRefresh func()
}

// DashboardModel is the bubbletea model of the live dashboard. It holds only
// the last published values; all fetching happens in the refresh scheduler.
type DashboardModel struct {
	width  int
	height int

	status  model.ConnectionStatus
	stats   *format.QuickStats
	apps    []model.AppRecord
	updated time.Time

	requestSeries  []model.Series
	responseSeries []model.Series
	geo            []model.GeoCount
	system         *model.SystemUsage

	names     format.DisplayNames
	interval  time.Duration
	onRefresh func()

	keys     KeyMap
	help     help.Model
	showHelp bool
}

// NewDashboardModel creates the dashboard model.
func NewDashboardModel(opts Options) *DashboardModel {
	names := opts.DisplayNames
	if names == nil {
		names = format.DefaultDisplayNames()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = model.DefaultRefreshInterval
	}
	return &DashboardModel{
		status:    model.StatusFetching,
		names:     names,
		interval:  interval,
		onRefresh: opts.OnRefresh,
		keys:      DefaultKeyMap(),
		help:      help.New(),
	}
}

func (m *DashboardModel) Init() tea.Cmd {
	return nil
}
