package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/NimbleMarkets/ntcharts/linechart/timeserieslinechart"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/livemon/internal/format"
	"github.com/tinytelemetry/livemon/internal/model"
)

// renderSeriesPanel draws one line per application over the series window.
func (m *DashboardModel) renderSeriesPanel(title string, series []model.Series, width int) string {
	header := chartTitleStyle.Render(title)
	if len(series) == 0 {
		return sectionStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, header, helpStyle.Render("No data available")))
	}

	chartWidth := max(minPanelWidth, width-4)
	chart := timeserieslinechart.New(chartWidth, chartHeight)

	legend := make([]string, 0, len(series))
	for i, s := range series {
		name := m.names.Name(s.App())
		style := lipgloss.NewStyle().Foreground(seriesPalette[i%len(seriesPalette)])
		for _, p := range s.Values {
			// NaN points are kept in the data but cannot be plotted.
			if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
				continue
			}
			chart.PushDataSet(name, timeserieslinechart.TimePoint{Time: p.Time, Value: p.Value})
		}
		chart.SetDataSetStyle(name, style)
		legend = append(legend, style.Render("━ "+name))
	}
	chart.DrawBrailleAll()

	body := lipgloss.JoinVertical(lipgloss.Left, header, chart.View(), strings.Join(legend, "  "))
	return sectionStyle.Width(width).Render(body)
}

// renderGeoPanel draws request counts per country as bars with a ranked
// legend.
func (m *DashboardModel) renderGeoPanel(width int) string {
	header := chartTitleStyle.Render("Traffic by Country (24h)")
	if len(m.geo) == 0 {
		return sectionStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, header, helpStyle.Render("No data available")))
	}

	legendWidth := 22
	chartWidth := max(10, width-legendWidth-4)
	barWidth := max(1, chartWidth/len(m.geo)-1)

	bc := barchart.New(chartWidth, chartHeight,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(barWidth),
		barchart.WithNoAxis(),
	)

	var legend []string
	for i, g := range m.geo {
		color := seriesPalette[i%len(seriesPalette)]
		style := lipgloss.NewStyle().Foreground(color).Background(color)
		bc.Push(barchart.BarData{
			Label: "",
			Values: []barchart.BarValue{
				{Name: g.Country, Value: float64(g.Requests), Style: style},
			},
		})
		legend = append(legend, lipgloss.NewStyle().Foreground(color).Render(
			fmt.Sprintf("■ %-8s %s", g.Country, format.Grouped(float64(g.Requests))),
		))
	}
	bc.Draw()

	body := lipgloss.JoinHorizontal(lipgloss.Top, bc.View(), "  ", strings.Join(legend, "\n"))
	return sectionStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, header, body))
}
