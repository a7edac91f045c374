// Package format turns aggregated numbers into display strings.
package format

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/tinytelemetry/livemon/internal/model"
)

var printer = message.NewPrinter(language.English)

// Fixed renders v with exactly digits decimals.
func Fixed(v float64, digits int) string {
	return strconv.FormatFloat(v, 'f', digits, 64)
}

// Grouped renders v with thousands separators and up to three decimals,
// e.g. 1234567 -> "1,234,567".
func Grouped(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

// Percent rounds v half-up to a whole percentage.
func Percent(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Clock renders the last-updated time, e.g. "3:04:05 PM".
func Clock(t time.Time) string {
	return t.Format("3:04:05 PM")
}

// Badge renders an uptime status for a status badge.
func Badge(status string) string {
	return strings.ToUpper(status)
}

// QuickStats holds the rendered aggregate summary.
type QuickStats struct {
	RequestRate     string
	AvgResponseTime string
	SuccessRate     string
	TotalRequests   string
}

// Stats renders a summary: request rate and success rate with 2 decimals,
// response time with none, and the 24h total grouped.
func Stats(s model.AggregateSummary) QuickStats {
	return QuickStats{
		RequestRate:     Fixed(s.TotalRequestRate, 2),
		AvgResponseTime: Fixed(s.AvgResponseTime, 0),
		SuccessRate:     Fixed(s.SuccessRate, 2),
		TotalRequests:   Grouped(s.TotalRequests24h),
	}
}

// Line is one labelled metric of an app card.
type Line struct {
	Label string
	Value string
}

// AppLines renders the populated metrics of rec in display order. Absent
// metrics produce no line.
func AppLines(rec model.AppRecord) []Line {
	var lines []Line
	if v, ok := rec.Get(model.FieldReqRate); ok {
		lines = append(lines, Line{Label: "Request Rate", Value: Fixed(v, 2) + " req/s"})
	}
	if v, ok := rec.Get(model.FieldRespTime); ok {
		lines = append(lines, Line{Label: "Response Time (p95)", Value: Fixed(v, 0) + " ms"})
	}
	if v, ok := rec.Get(model.FieldErrorRate); ok {
		lines = append(lines, Line{Label: "Error Rate", Value: Fixed(v, 2) + "%"})
	}
	if v, ok := rec.Get(model.FieldTotal24h); ok {
		lines = append(lines, Line{Label: "Total Requests (24h)", Value: Grouped(v)})
	}
	return lines
}
