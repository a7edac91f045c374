package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

// TimeSeriesPoint is one (time, value) pair of a range query result.
//
// On the wire it is a two-element array [epochSeconds, value] where value may
// be a JSON string or number. Values that cannot be parsed decode as NaN;
// points are never dropped, filled or resampled.
type TimeSeriesPoint struct {
	Time  time.Time
	Value float64
}

func (p TimeSeriesPoint) MarshalJSON() ([]byte, error) {
	sec := float64(p.Time.UnixMilli()) / 1000
	return json.Marshal([]any{sec, strconv.FormatFloat(p.Value, 'f', -1, 64)})
}

func (p *TimeSeriesPoint) UnmarshalJSON(b []byte) error {
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("time series point: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("time series point: want 2 elements, got %d", len(raw))
	}
	sec, err := cast.ToFloat64E(raw[0])
	if err != nil {
		return fmt.Errorf("time series point: timestamp: %w", err)
	}
	p.Time = time.UnixMilli(int64(math.Round(sec * 1000)))

	v, err := cast.ToFloat64E(raw[1])
	if err != nil {
		v = math.NaN()
	}
	p.Value = v
	return nil
}

// Series is one application's points. Metric carries the series labels; the
// application name lives under "app".
type Series struct {
	Metric map[string]string `json:"metric"`
	Values []TimeSeriesPoint `json:"values"`
}

// App returns the series' application label.
func (s Series) App() string {
	return s.Metric["app"]
}

// TimeSeriesMetrics is the data payload of the timeseries endpoint.
type TimeSeriesMetrics struct {
	RequestRateSeries  []Series `json:"request_rate_series"`
	ResponseTimeSeries []Series `json:"response_time_series"`
}
