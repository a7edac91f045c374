// Package aggregate reduces per-application sample sets to scalar summaries
// and joins them into per-application records.
//
// Everything here is numeric. Rounding, grouping and display names belong to
// the format package.
package aggregate

import (
	"strings"

	"github.com/tinytelemetry/livemon/internal/model"
)

// jobSuffix is stripped from an uptime job label to derive an app name.
const jobSuffix = "_app"

// Summarize returns the sum of all sample values. An empty set sums to 0.
func Summarize(samples model.SampleSet) float64 {
	var total float64
	for _, s := range samples {
		total += s.Value
	}
	return total
}

// Average returns the arithmetic mean of the sample values. The divisor is
// max(len, 1), so an empty set averages to 0 rather than NaN.
func Average(samples model.SampleSet) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}
	return Summarize(samples) / float64(n)
}

// SuccessRate returns 100 minus the average error-rate percentage. The result
// is not clamped and may be negative for malformed input.
func SuccessRate(errorRates model.SampleSet) float64 {
	return 100 - Average(errorRates)
}

// Field pairs a sample set with the record column it populates.
type Field struct {
	Name    model.AppField
	Samples model.SampleSet
}

// AppName derives the application name of an uptime entry: the app label when
// present, otherwise the job label with a trailing "_app" removed.
func AppName(s model.StatusSample) string {
	if s.App != "" {
		return s.App
	}
	return strings.TrimSuffix(s.Job, jobSuffix)
}

// JoinByApp seeds one record per status entry and then applies each field in
// order. Only seeded applications are populated: rows naming an app absent
// from status are dropped. A later row for the same app overwrites an earlier
// one; a later status entry for the same app is ignored.
func JoinByApp(status []model.StatusSample, fields ...Field) *model.AppTable {
	tbl := model.NewAppTable()
	for _, s := range status {
		tbl.Seed(AppName(s), s.Status)
	}
	for _, f := range fields {
		for _, s := range f.Samples {
			tbl.Update(s.App, f.Name, s.Value)
		}
	}
	return tbl
}

// Summary computes the quick-stat scalars of a live payload.
func Summary(live model.LiveMetrics) model.AggregateSummary {
	return model.AggregateSummary{
		TotalRequestRate: Summarize(live.RequestRate),
		AvgResponseTime:  Average(live.ResponseTimeP95),
		SuccessRate:      SuccessRate(live.ErrorRate),
		TotalRequests24h: Summarize(live.TotalRequests24h),
	}
}

// Records joins the live payload's per-app sample sets onto its uptime list.
func Records(live model.LiveMetrics) *model.AppTable {
	return JoinByApp(live.Uptime,
		Field{Name: model.FieldReqRate, Samples: live.RequestRate},
		Field{Name: model.FieldRespTime, Samples: live.ResponseTimeP95},
		Field{Name: model.FieldErrorRate, Samples: live.ErrorRate},
		Field{Name: model.FieldTotal24h, Samples: live.TotalRequests24h},
	)
}
