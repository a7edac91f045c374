package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/livemon/internal/model"
	"github.com/tinytelemetry/livemon/internal/promquery"
	"github.com/tinytelemetry/livemon/internal/telemetry"
)

const (
	defaultBindHost          = "0.0.0.0"
	defaultAppName           = "livemon-api"
	defaultPrometheusTimeout = 5 * time.Second
	defaultQueryRetries      = 2
	defaultQueryRate         = 20.0
	defaultQueryBurst        = 10
	systemSourcePrometheus   = "prometheus"
	systemSourceHost         = "host"
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	APIPort           int           `mapstructure:"api-port" yaml:"api-port"`
	APIAddr           string        `mapstructure:"api-addr" yaml:"api-addr"`
	AppName           string        `mapstructure:"app-name" yaml:"app-name"`
	PrometheusURL     string        `mapstructure:"prometheus-url" yaml:"prometheus-url"`
	PrometheusTimeout time.Duration `mapstructure:"prometheus-timeout" yaml:"prometheus-timeout"`
	QueryRetries      uint          `mapstructure:"query-retries" yaml:"query-retries"`
	QueryRate         float64       `mapstructure:"query-rate" yaml:"query-rate"`
	QueryBurst        int           `mapstructure:"query-burst" yaml:"query-burst"`
	UptimeJobs        []string      `mapstructure:"uptime-jobs" yaml:"uptime-jobs"`
	SeriesWindow      time.Duration `mapstructure:"timeseries-window" yaml:"timeseries-window"`
	SeriesStep        time.Duration `mapstructure:"timeseries-step" yaml:"timeseries-step"`
	GeoTop            int           `mapstructure:"geo-top" yaml:"geo-top"`
	SystemSource      string        `mapstructure:"system-source" yaml:"system-source"`
	IPSalt            string        `mapstructure:"ip-salt" yaml:"-"`
	LogLevel          string        `mapstructure:"log-level" yaml:"log-level"`
	LogFormat         string        `mapstructure:"log-format" yaml:"log-format"`
	LogFile           string        `mapstructure:"log-file" yaml:"log-file"`
	ConfigPath        string        `mapstructure:"-" yaml:"-"` // not from config file
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("LIVEMON")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("api-port", model.DefaultAPIPort)
	v.SetDefault("api-addr", "")
	v.SetDefault("app-name", defaultAppName)
	v.SetDefault("prometheus-url", model.DefaultPrometheusURL)
	v.SetDefault("prometheus-timeout", defaultPrometheusTimeout)
	v.SetDefault("query-retries", defaultQueryRetries)
	v.SetDefault("query-rate", defaultQueryRate)
	v.SetDefault("query-burst", defaultQueryBurst)
	v.SetDefault("uptime-jobs", promquery.DefaultUptimeJobs)
	v.SetDefault("timeseries-window", model.DefaultSeriesWindow)
	v.SetDefault("timeseries-step", model.DefaultSeriesStep)
	v.SetDefault("geo-top", model.DefaultGeoTop)
	v.SetDefault("system-source", systemSourcePrometheus)
	v.SetDefault("ip-salt", telemetry.DefaultSalt)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "json")
	v.SetDefault("log-file", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "livemon", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if cfg.GeoTop <= 0 {
		return cfg, fmt.Errorf("invalid geo-top: %d", cfg.GeoTop)
	}
	if cfg.SeriesStep <= 0 || cfg.SeriesWindow < cfg.SeriesStep {
		return cfg, fmt.Errorf("invalid time series range: window %s, step %s", cfg.SeriesWindow, cfg.SeriesStep)
	}
	switch cfg.SystemSource {
	case systemSourcePrometheus, systemSourceHost:
	default:
		return cfg, fmt.Errorf("invalid system-source %q: want %s or %s", cfg.SystemSource, systemSourcePrometheus, systemSourceHost)
	}

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}
	return cfg, nil
}
