package hostusage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tinytelemetry/livemon/internal/model"
)

func stubSampler() *Sampler {
	s := New(Config{CPUInterval: time.Millisecond})
	s.cpuPercent = func(context.Context, time.Duration, bool) ([]float64, error) {
		return []float64{20, 40}, nil
	}
	s.memUsed = func(context.Context) (float64, error) { return 55.5, nil }
	s.diskUsed = func(_ context.Context, path string) (float64, error) {
		if path != "/" {
			return 0, errors.New("unexpected path " + path)
		}
		return 91, nil
	}
	return s
}

func TestUsage(t *testing.T) {
	t.Parallel()

	got, err := stubSampler().Usage(context.Background())
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	want := model.SystemUsage{CPUUsage: 30, MemoryUsage: 55.5, DiskUsage: 91}
	if got != want {
		t.Fatalf("usage = %+v, want %+v", got, want)
	}
}

func TestUsagePropagatesErrors(t *testing.T) {
	t.Parallel()

	s := stubSampler()
	s.memUsed = func(context.Context) (float64, error) { return 0, errors.New("no /proc/meminfo") }
	if _, err := s.Usage(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type staticReader struct{ model.MetricReader }

func (staticReader) System(context.Context) (model.SystemUsage, error) {
	return model.SystemUsage{CPUUsage: 1}, nil
}

func (staticReader) Geographic(context.Context) ([]model.GeoCount, error) {
	return []model.GeoCount{{Country: "US", Requests: 1}}, nil
}

func TestOverrideReplacesSystemOnly(t *testing.T) {
	t.Parallel()

	r := Override(staticReader{}, stubSampler())
	sys, err := r.System(context.Background())
	if err != nil || sys.CPUUsage != 30 {
		t.Fatalf("System = %+v, %v; want host usage", sys, err)
	}
	geo, err := r.Geographic(context.Background())
	if err != nil || len(geo) != 1 {
		t.Fatalf("Geographic = %+v, %v; want passthrough", geo, err)
	}
}
