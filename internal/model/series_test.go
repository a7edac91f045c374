package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestTimeSeriesPointUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        string
		wantTime  time.Time
		wantValue float64
		wantNaN   bool
	}{
		{name: "string value", in: `[1700000000, "12.5"]`, wantTime: time.Unix(1700000000, 0), wantValue: 12.5},
		{name: "numeric value", in: `[1700000000.5, 3]`, wantTime: time.UnixMilli(1700000000500), wantValue: 3},
		{name: "unparseable value", in: `[1700000000, "n/a"]`, wantTime: time.Unix(1700000000, 0), wantNaN: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var p TimeSeriesPoint
			if err := json.Unmarshal([]byte(tt.in), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !p.Time.Equal(tt.wantTime) {
				t.Fatalf("time = %v, want %v", p.Time, tt.wantTime)
			}
			if tt.wantNaN {
				if !math.IsNaN(p.Value) {
					t.Fatalf("value = %v, want NaN", p.Value)
				}
				return
			}
			if p.Value != tt.wantValue {
				t.Fatalf("value = %v, want %v", p.Value, tt.wantValue)
			}
		})
	}
}

func TestTimeSeriesPointUnmarshalRejectsWrongArity(t *testing.T) {
	t.Parallel()

	var p TimeSeriesPoint
	if err := json.Unmarshal([]byte(`[1700000000]`), &p); err == nil {
		t.Fatal("expected error for single-element point")
	}
}

func TestSeriesDecodesWirePayload(t *testing.T) {
	t.Parallel()

	payload := `{"request_rate_series":[{"metric":{"app":"portfolio"},"values":[[1700000000,"1.25"],[1700000300,"2"]]}],"response_time_series":[]}`
	var ts TimeSeriesMetrics
	if err := json.Unmarshal([]byte(payload), &ts); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(ts.RequestRateSeries) != 1 {
		t.Fatalf("request series = %d, want 1", len(ts.RequestRateSeries))
	}
	s := ts.RequestRateSeries[0]
	if s.App() != "portfolio" {
		t.Fatalf("app = %q, want portfolio", s.App())
	}
	if len(s.Values) != 2 || s.Values[1].Value != 2 {
		t.Fatalf("values = %+v", s.Values)
	}
	if len(ts.ResponseTimeSeries) != 0 {
		t.Fatalf("response series = %d, want 0", len(ts.ResponseTimeSeries))
	}
}

func TestTimeSeriesPointMarshalUsesStringValue(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(TimeSeriesPoint{Time: time.Unix(1700000000, 0), Value: 0.5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(b), `[1700000000,"0.5"]`; got != want {
		t.Fatalf("json = %s, want %s", got, want)
	}
}
