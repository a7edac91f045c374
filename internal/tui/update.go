package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/livemon/internal/format"
	"github.com/tinytelemetry/livemon/internal/model"
)

// Update handles terminal events and scheduler publications.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case statusMsg:
		m.status = model.ConnectionStatus(msg)

	case liveMsg:
		stats := format.Stats(msg.summary)
		m.stats = &stats
		m.apps = msg.apps

	case seriesMsg:
		// Charts keep their previous data when a refresh carries no series.
		if len(msg.RequestRateSeries) > 0 {
			m.requestSeries = msg.RequestRateSeries
		}
		if len(msg.ResponseTimeSeries) > 0 {
			m.responseSeries = msg.ResponseTimeSeries
		}

	case geoMsg:
		if len(msg) > 0 {
			m.geo = msg
		}

	case systemMsg:
		usage := model.SystemUsage(msg)
		m.system = &usage

	case updatedMsg:
		m.updated = time.Time(msg)
	}
	return m, nil
}

func (m *DashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	case key.Matches(msg, m.keys.Refresh):
		if m.onRefresh != nil {
			refresh := m.onRefresh
			return m, func() tea.Msg {
				refresh()
				return nil
			}
		}
	}
	return m, nil
}
