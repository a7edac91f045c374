package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/livemon/internal/hostusage"
	"github.com/tinytelemetry/livemon/internal/httpserver"
	"github.com/tinytelemetry/livemon/internal/logging"
	"github.com/tinytelemetry/livemon/internal/model"
	"github.com/tinytelemetry/livemon/internal/promquery"
	"github.com/tinytelemetry/livemon/internal/telemetry"
)

// runServer serves the metrics API until interrupted.
func runServer(cfg appConfig) error {
	logger, cleanupLogger, err := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer cleanupLogger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	collector, err := promquery.New(promquery.Config{
		Address:    cfg.PrometheusURL,
		Timeout:    cfg.PrometheusTimeout,
		Retries:    cfg.QueryRetries,
		Rate:       cfg.QueryRate,
		Burst:      cfg.QueryBurst,
		UptimeJobs: cfg.UptimeJobs,
		Window:     cfg.SeriesWindow,
		Step:       cfg.SeriesStep,
		GeoTop:     cfg.GeoTop,
		Logger:     logger,
		Registry:   reg,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Prometheus client: %w", err)
	}

	var reader model.MetricReader = collector
	if cfg.SystemSource == systemSourceHost {
		reader = hostusage.Override(collector, hostusage.New(hostusage.Config{Logger: logger}))
	}

	apiServer := httpserver.NewServer(httpserver.Config{
		Addr:   cfg.APIAddr,
		App:    cfg.AppName,
		Reader: reader,
		Health: collector,
		Telemetry: telemetry.New(telemetry.Config{
			App:      cfg.AppName,
			Salt:     cfg.IPSalt,
			Registry: reg,
			Logger:   logger,
		}),
		Gatherer: reg,
		Logger:   logger,
	})
	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
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

	printStartupBanner(cfg, apiServer.Addr())
	logger.Info("api started",
		zap.String("addr", apiServer.Addr()),
		zap.String("prometheus", cfg.PrometheusURL),
		zap.String("system_source", cfg.SystemSource),
	)

	g, gctx := errgroup.WithContext(ctx)

	// Report Prometheus reachability once at startup; the API serves either way.
	g.Go(func() error {
		checkCtx, checkCancel := context.WithTimeout(gctx, cfg.PrometheusTimeout)
		defer checkCancel()
		if err := collector.Healthy(checkCtx); err != nil {
			logger.Warn("prometheus unreachable", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("errgroup exited with error", zap.Error(err))
	}

	if err := apiServer.Stop(); err != nil {
		logger.Warn("api shutdown", zap.Error(err))
	}
	signal.Stop(sigCh)
	return nil
}

func printStartupBanner(cfg appConfig, addr string) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╦  ╦╦  ╦╔═╗╔╦╗╔═╗╔╗╔
    ║  ║╚╗╔╝║╣ ║║║║ ║║║║
    ╩═╝╩ ╚╝ ╚═╝╩ ╩╚═╝╝╚╝`)

	var lines []string
	lines = append(lines, "", logo, "    "+dim.Render("v"+version), "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	lines = append(lines, bold.Render("    Gateway"), "")
	lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(addr)))
	lines = append(lines, fmt.Sprintf("    %s  Metrics        %s", check, cyan.Render(addr+"/metrics")))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Sources"), "")
	lines = append(lines, fmt.Sprintf("    %s  Prometheus     %s", check, dim.Render(cfg.PrometheusURL)))
	if cfg.SystemSource == systemSourceHost {
		lines = append(lines, fmt.Sprintf("    %s  System Usage   %s", check, dim.Render("this host")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  System Usage   %s", dot, dim.Render("prometheus")))
	}
	lines = append(lines, fmt.Sprintf("    %s  Uptime Jobs    %s", check, dim.Render(strings.Join(cfg.UptimeJobs, ", "))))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err == nil {
			lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
		} else {
			lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
		}
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}
	if cfg.LogFile != "" {
		lines = append(lines, fmt.Sprintf("    %s  Log File       %s", check, dim.Render(shortenPath(cfg.LogFile))))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
