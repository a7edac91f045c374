// Package hostusage samples CPU, memory and disk usage of the local host.
package hostusage

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"

	"github.com/tinytelemetry/livemon/internal/model"
)

// Config configures a Sampler.
type Config struct {
	// CPUInterval is the CPU sampling window. Defaults to 500ms.
	CPUInterval time.Duration
	// Path is the filesystem whose usage is reported. Defaults to "/".
	Path   string
	Logger *zap.Logger
}

// Sampler reads host resource usage through gopsutil.
type Sampler struct {
	interval time.Duration
	path     string
	logger   *zap.Logger

	cpuPercent func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	memUsed    func(ctx context.Context) (float64, error)
	diskUsed   func(ctx context.Context, path string) (float64, error)
}

// New returns a sampler.
func New(cfg Config) *Sampler {
	if cfg.CPUInterval <= 0 {
		cfg.CPUInterval = 500 * time.Millisecond
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Sampler{
		interval:   cfg.CPUInterval,
		path:       cfg.Path,
		logger:     cfg.Logger.With(zap.String("mod", "hostusage")),
		cpuPercent: cpu.PercentWithContext,
		memUsed: func(ctx context.Context) (float64, error) {
			vm, err := mem.VirtualMemoryWithContext(ctx)
			if err != nil {
				return 0, err
			}
			return vm.UsedPercent, nil
		},
		diskUsed: func(ctx context.Context, path string) (float64, error) {
			u, err := disk.UsageWithContext(ctx, path)
			if err != nil {
				return 0, err
			}
			return u.UsedPercent, nil
		},
	}
}

// Usage samples the host. CPU is averaged across all cores over the sampling
// window.
func (s *Sampler) Usage(ctx context.Context) (model.SystemUsage, error) {
	percents, err := s.cpuPercent(ctx, s.interval, false)
	if err != nil {
		return model.SystemUsage{}, fmt.Errorf("hostusage: cpu: %w", err)
	}
	var cpuAvg float64
	if len(percents) > 0 {
		var sum float64
		for _, v := range percents {
			sum += v
		}
		cpuAvg = sum / float64(len(percents))
	}

	memPct, err := s.memUsed(ctx)
	if err != nil {
		return model.SystemUsage{}, fmt.Errorf("hostusage: memory: %w", err)
	}
	diskPct, err := s.diskUsed(ctx, s.path)
	if err != nil {
		return model.SystemUsage{}, fmt.Errorf("hostusage: disk %s: %w", s.path, err)
	}

	usage := model.SystemUsage{CPUUsage: cpuAvg, MemoryUsage: memPct, DiskUsage: diskPct}
	s.logger.Debug("sampled host usage",
		zap.Float64("cpu", usage.CPUUsage),
		zap.Float64("memory", usage.MemoryUsage),
		zap.Float64("disk", usage.DiskUsage))
	return usage, nil
}

// hostReader answers System from the local host and everything else from
// the wrapped reader.
type hostReader struct {
	model.MetricReader
	sampler *Sampler
}

func (h hostReader) System(ctx context.Context) (model.SystemUsage, error) {
	return h.sampler.Usage(ctx)
}

// Override returns a reader whose System payload comes from s.
func Override(r model.MetricReader, s *Sampler) model.MetricReader {
	return hostReader{MetricReader: r, sampler: s}
}
