package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/livemon/internal/format"
	"github.com/tinytelemetry/livemon/internal/headless"
	"github.com/tinytelemetry/livemon/internal/logging"
	"github.com/tinytelemetry/livemon/internal/metricsource"
	"github.com/tinytelemetry/livemon/internal/refresh"
	"github.com/tinytelemetry/livemon/internal/tui"
)

func run(cfg cliConfig) error {
	logFile := cfg.LogFile
	if logFile == "" && !cfg.Headless {
		// stderr belongs to the terminal UI.
		logFile = logging.DefaultFile("livemon")
	}
	logger, cleanupLogger, err := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   logFile,
	})
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer cleanupLogger()

	client, err := metricsource.New(metricsource.Config{
		BaseURL:            cfg.APIURL,
		Timeout:            cfg.RequestTimeout,
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		BreakerOpenTimeout: cfg.BreakerOpenTimeout,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	names := format.DefaultDisplayNames().Merge(cfg.DisplayNames)
	reg := prometheus.NewRegistry()
	schedCfg := refresh.Config{
		Interval:     cfg.RefreshInterval,
		CycleTimeout: cfg.CycleTimeout,
		Logger:       logger,
		Registry:     reg,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		if err := serveMetrics(gctx, g, cfg.MetricsAddr, reg, logger); err != nil {
			return err
		}
	}

	if cfg.Headless {
		err = runHeadless(gctx, cancel, g, client, headless.New(logger, names), schedCfg)
	} else {
		err = runTUI(gctx, cancel, g, client, names, schedCfg)
	}
	cancel()
	if werr := g.Wait(); werr != nil && err == nil {
		err = werr
	}
	return err
}

func runHeadless(ctx context.Context, cancel context.CancelFunc, g *errgroup.Group, client *metricsource.Client, p refresh.Presenter, schedCfg refresh.Config) error {
	sched := refresh.New(client, p, schedCfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	g.Go(func() error {
		return sched.Run(ctx)
	})
	<-ctx.Done()
	return nil
}

func runTUI(ctx context.Context, cancel context.CancelFunc, g *errgroup.Group, client *metricsource.Client, names format.DisplayNames, schedCfg refresh.Config) error {
	var sched *refresh.Scheduler
	dashboard := tui.NewDashboardModel(tui.Options{
		DisplayNames: names,
		Interval:     schedCfg.Interval,
		OnRefresh: func() {
			sched.Tick(ctx)
		},
	})

	p := tea.NewProgram(dashboard, tea.WithAltScreen(), tea.WithContext(ctx))
	sched = refresh.New(client, tui.NewPresenter(p), schedCfg)

	g.Go(func() error {
		return sched.Run(ctx)
	})

	_, err := p.Run()
	cancel()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal (use -headless otherwise)")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// serveMetrics exposes the scheduler's metrics until ctx is cancelled.
func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, reg *prometheus.Registry, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	logger.Info("metrics listening", zap.String("addr", ln.Addr().String()))
	return nil
}
