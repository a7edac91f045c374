package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorNavy   = lipgloss.Color("#1a202c")
	ColorWhite  = lipgloss.Color("#f7fafc")
	ColorGray   = lipgloss.Color("#a0aec0")
	ColorBorder = lipgloss.Color("#4a5568")
	ColorGreen  = lipgloss.Color("#48bb78")
	ColorOrange = lipgloss.Color("#ed8936")
	ColorRed    = lipgloss.Color("#f56565")
	ColorBlue   = lipgloss.Color("#4299e1")
	ColorPurple = lipgloss.Color("#9f7aea")
)

// seriesPalette colors one data set per application in the charts.
var seriesPalette = []lipgloss.Color{ColorBlue, ColorPurple, ColorGreen, ColorOrange, ColorRed}

var (
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	chartTitleStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	statValueStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	statLabelStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	badgeUpStyle = lipgloss.NewStyle().
			Foreground(ColorNavy).
			Background(ColorGreen).
			Padding(0, 1).
			Bold(true)

	badgeDownStyle = badgeUpStyle.Background(ColorRed)
)
