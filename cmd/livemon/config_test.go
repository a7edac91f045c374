package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tinytelemetry/livemon/internal/model"
)

func TestLoadCLIConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadCLIConfig("")
	if err != nil {
		t.Fatalf("loadCLIConfig: %v", err)
	}
	if cfg.APIURL != model.DefaultAPIURL {
		t.Errorf("api-url = %q", cfg.APIURL)
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Errorf("refresh-interval = %s, want 30s", cfg.RefreshInterval)
	}
	if cfg.CycleTimeout != cfg.RefreshInterval {
		t.Errorf("cycle-timeout = %s, want the refresh interval", cfg.CycleTimeout)
	}
	if cfg.RequestTimeout != model.DefaultRequestTimeout {
		t.Errorf("request-timeout = %s", cfg.RequestTimeout)
	}
	if cfg.Headless {
		t.Error("headless should default to false")
	}
}

func TestLoadCLIConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LIVEMON_HEADLESS", "true")

	path := filepath.Join(t.TempDir(), "config.yml")
	body := `
api-url: https://metrics.example.com
refresh-interval: 10s
cycle-timeout: 4s
display-names:
  shop: Shop (shop.example.com)
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadCLIConfig(path)
	if err != nil {
		t.Fatalf("loadCLIConfig: %v", err)
	}
	if cfg.APIURL != "https://metrics.example.com" {
		t.Errorf("api-url = %q", cfg.APIURL)
	}
	if cfg.RefreshInterval != 10*time.Second || cfg.CycleTimeout != 4*time.Second {
		t.Errorf("intervals = %s/%s", cfg.RefreshInterval, cfg.CycleTimeout)
	}
	if cfg.DisplayNames["shop"] != "Shop (shop.example.com)" {
		t.Errorf("display-names = %v", cfg.DisplayNames)
	}
	if !cfg.Headless {
		t.Error("headless should be enabled from env")
	}
}

func TestLoadCLIConfigRejectsInvalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	for name, body := range map[string]string{
		"scheme":   "api-url: ftp://example.com\n",
		"no host":  "api-url: http://\n",
		"interval": "refresh-interval: 0s\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := loadCLIConfig(path); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
