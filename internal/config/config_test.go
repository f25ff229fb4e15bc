package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Run from an empty dir so no stray config.yaml is picked up.
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Address() != "0.0.0.0:8080" {
		t.Errorf("expected 0.0.0.0:8080, got %s", cfg.Server.Address())
	}
	if cfg.Sources.SearchTimeout != 10*time.Second {
		t.Errorf("expected 10s search timeout, got %s", cfg.Sources.SearchTimeout)
	}
	if len(cfg.Sources.Enabled) != 4 {
		t.Errorf("expected 4 enabled sources, got %v", cfg.Sources.Enabled)
	}
	if cfg.Sources.SauceNao.APIKey != "" {
		t.Errorf("expected empty saucenao key, got %q", cfg.Sources.SauceNao.APIKey)
	}
	if cfg.Sources.Yandex.BaseURL != "https://yandex.com" {
		t.Errorf("unexpected yandex base url %q", cfg.Sources.Yandex.BaseURL)
	}
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SAUCE_SOURCES_SAUCENAO_API_KEY", "from-env")
	t.Setenv("SAUCE_SERVER_PORT", "9090")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Sources.SauceNao.APIKey != "from-env" {
		t.Errorf("expected key from env, got %q", cfg.Sources.SauceNao.APIKey)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sauce.yaml")
	content := `
sources:
  enabled: [yandex]
  search_timeout: 3s
  fuzzysearch:
    api_key: fz-key
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Sources.Enabled) != 1 || cfg.Sources.Enabled[0] != "yandex" {
		t.Errorf("expected [yandex], got %v", cfg.Sources.Enabled)
	}
	if cfg.Sources.SearchTimeout != 3*time.Second {
		t.Errorf("expected 3s, got %s", cfg.Sources.SearchTimeout)
	}
	if cfg.Sources.FuzzySearch.APIKey != "fz-key" {
		t.Errorf("expected fz-key, got %q", cfg.Sources.FuzzySearch.APIKey)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug, got %q", cfg.Log.Level)
	}
}
