package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/livemon/internal/format"
	"github.com/tinytelemetry/livemon/internal/model"
)

// renderBranding renders "livemon" with a green to light blue gradient
func renderBranding() string {
	colors := []string{"#49E209", "#35DD2F", "#21D955", "#0DD47B", "#00D0A1", "#00CAC7", "#00B4E0"}
	var b strings.Builder
	for i, ch := range "livemon" {
		style := lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(lipgloss.Color(colors[i%len(colors)])).
			Bold(true)
		b.WriteString(style.Render(string(ch)))
	}
	return b.String()
}

func (m *DashboardModel) renderHeader(width int) string {
	base := lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorWhite)

	dotColor := ColorGreen
	if !m.status.Connected {
		dotColor = ColorRed
	}
	dot := lipgloss.NewStyle().Background(ColorNavy).Foreground(dotColor).Render("●")
	left := renderBranding() + base.Render("  ") + dot + base.Render(" "+m.status.Label)

	right := "Last updated: --"
	if !m.updated.IsZero() {
		right = "Last updated: " + format.Clock(m.updated)
	}

	gap := width - lipgloss.Width(left) - len(right) - 1
	if gap < 1 {
		gap = 1
	}
	return left + base.Render(strings.Repeat(" ", gap)+right+" ")
}

func (m *DashboardModel) renderQuickStats(width int) string {
	stats := format.QuickStats{RequestRate: "--", AvgResponseTime: "--", SuccessRate: "--", TotalRequests: "--"}
	if m.stats != nil {
		stats = *m.stats
	}
	cells := []struct{ label, value string }{
		{"Total Request Rate", stats.RequestRate + " req/s"},
		{"Avg Response Time", stats.AvgResponseTime + " ms"},
		{"Success Rate", stats.SuccessRate + "%"},
		{"Requests (24h)", stats.TotalRequests},
	}

	cellWidth := max(16, width/len(cells)-2)
	rendered := make([]string, 0, len(cells))
	for _, c := range cells {
		body := lipgloss.JoinVertical(lipgloss.Left,
			statLabelStyle.Render(c.label),
			statValueStyle.Render(c.value),
		)
		rendered = append(rendered, sectionStyle.Width(cellWidth).Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m *DashboardModel) renderAppCards(width int) string {
	if len(m.apps) == 0 {
		return sectionStyle.Width(max(minPanelWidth, width-2)).Render(helpStyle.Render("No applications reported"))
	}

	cardWidth := 34
	perRow := max(1, width/(cardWidth+2))

	var rows []string
	var row []string
	for _, app := range m.apps {
		row = append(row, m.renderAppCard(app, cardWidth))
		if len(row) == perRow {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *DashboardModel) renderAppCard(app model.AppRecord, width int) string {
	badge := badgeUpStyle.Render(format.Badge(app.Status))
	if app.Down() {
		badge = badgeDownStyle.Render(format.Badge(app.Status))
	}

	lines := []string{chartTitleStyle.Render(m.names.Name(app.Name)) + " " + badge}
	for _, l := range format.AppLines(app) {
		label := statLabelStyle.Render(l.Label)
		pad := width - 4 - lipgloss.Width(label) - len(l.Value)
		if pad < 1 {
			pad = 1
		}
		lines = append(lines, label+strings.Repeat(" ", pad)+statValueStyle.Render(l.Value))
	}
	return sectionStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m *DashboardModel) renderSystemPanel(width int) string {
	title := chartTitleStyle.Render("System")
	if m.system == nil {
		return sectionStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, helpStyle.Render("No data available")))
	}

	barWidth := max(10, width-16)
	gauges := []struct {
		label string
		value float64
	}{
		{"CPU", m.system.CPUUsage},
		{"Memory", m.system.MemoryUsage},
		{"Disk", m.system.DiskUsage},
	}
	lines := []string{title}
	for _, g := range gauges {
		lines = append(lines, renderGauge(g.label, g.value, barWidth))
	}
	return sectionStyle.Width(width).Render(strings.Join(lines, "\n"))
}

// renderGauge draws one resource gauge colored by its level.
func renderGauge(label string, value float64, barWidth int) string {
	pct := format.Percent(value)
	level := format.GaugeLevel(pct)
	bar := progress.New(
		progress.WithSolidFill(level.Color()),
		progress.WithoutPercentage(),
		progress.WithWidth(barWidth),
	)
	ratio := float64(pct) / 100
	ratio = min(1, max(0, ratio))
	pctText := lipgloss.NewStyle().Foreground(lipgloss.Color(level.Color())).Render(fmt.Sprintf("%3d%%", pct))
	return fmt.Sprintf("%-7s %s %s", label, bar.ViewAs(ratio), pctText)
}

// renderStatusLine renders the help line at the bottom of the screen
func (m *DashboardModel) renderStatusLine(width int) string {
	base := lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorWhite)
	left := fmt.Sprintf(" every %s ", m.interval)
	helpView := m.help.View(m.keys)
	gap := width - lipgloss.Width(left) - lipgloss.Width(helpView)
	if gap < 1 {
		gap = 1
	}
	return base.Render(left) + base.Render(strings.Repeat(" ", gap)) + helpView
}
