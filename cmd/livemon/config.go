package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/livemon/internal/model"
)

const (
	defaultBreakerMaxFailures = 5
	defaultBreakerOpenTimeout = 30 * time.Second
)

// cliConfig holds dashboard configuration.
type cliConfig struct {
	APIURL             string            `mapstructure:"api-url" yaml:"api-url"`
	RefreshInterval    time.Duration     `mapstructure:"refresh-interval" yaml:"refresh-interval"`
	CycleTimeout       time.Duration     `mapstructure:"cycle-timeout" yaml:"cycle-timeout"`
	RequestTimeout     time.Duration     `mapstructure:"request-timeout" yaml:"request-timeout"`
	BreakerMaxFailures uint32            `mapstructure:"breaker-max-failures" yaml:"breaker-max-failures"`
	BreakerOpenTimeout time.Duration     `mapstructure:"breaker-open-timeout" yaml:"breaker-open-timeout"`
	Headless           bool              `mapstructure:"headless" yaml:"headless"`
	MetricsAddr        string            `mapstructure:"metrics-addr" yaml:"metrics-addr"`
	DisplayNames       map[string]string `mapstructure:"display-names" yaml:"display-names"`
	LogLevel           string            `mapstructure:"log-level" yaml:"log-level"`
	LogFormat          string            `mapstructure:"log-format" yaml:"log-format"`
	LogFile            string            `mapstructure:"log-file" yaml:"log-file"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("LIVEMON")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("api-url", model.DefaultAPIURL)
	v.SetDefault("refresh-interval", model.DefaultRefreshInterval)
	v.SetDefault("cycle-timeout", 0)
	v.SetDefault("request-timeout", model.DefaultRequestTimeout)
	v.SetDefault("breaker-max-failures", defaultBreakerMaxFailures)
	v.SetDefault("breaker-open-timeout", defaultBreakerOpenTimeout)
	v.SetDefault("headless", false)
	v.SetDefault("metrics-addr", "")
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

	u, err := url.Parse(cfg.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return cfg, fmt.Errorf("invalid api-url %q", cfg.APIURL)
	}
	if cfg.RefreshInterval <= 0 {
		return cfg, fmt.Errorf("invalid refresh-interval: %s", cfg.RefreshInterval)
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = cfg.RefreshInterval
	}
	return cfg, nil
}
