package tui

import (
	"github.com/charmbracelet/lipgloss"
)

const (
	minPanelWidth = 24
	chartHeight   = 8
)

// View renders the dashboard
func (m *DashboardModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Initializing dashboard..."
	}

	w := m.width
	half := max(minPanelWidth, (w-1)/2)

	sections := []string{
		m.renderHeader(w),
		m.renderQuickStats(w),
		m.renderAppCards(w),
		lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderSeriesPanel("Request Rate (req/s)", m.requestSeries, half),
			" ",
			m.renderSeriesPanel("Response Time p95 (ms)", m.responseSeries, half),
		),
		lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderGeoPanel(half),
			" ",
			m.renderSystemPanel(half),
		),
		m.renderStatusLine(w),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
