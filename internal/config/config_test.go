package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("TOKOKU_API_BASE_URL", "")
	t.Setenv("TOKOKU_SESSION_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !cfg.DemoMode() {
		t.Fatalf("expected demo mode when API_BASE_URL is unset")
	}
	if cfg.SearchDebounce != 500*time.Millisecond {
		t.Fatalf("expected 500ms debounce, got %s", cfg.SearchDebounce)
	}
	if cfg.ToastDuration != 3*time.Second || cfg.BannerDuration != 3*time.Second {
		t.Fatalf("unexpected toast/banner durations %s %s", cfg.ToastDuration, cfg.BannerDuration)
	}
	if cfg.SessionBackend != SessionBackendFile {
		t.Fatalf("expected file session backend, got %q", cfg.SessionBackend)
	}
	if cfg.SessionFile == "" {
		t.Fatalf("expected a default session file path")
	}
}

func TestLoadNormalizesBaseURL(t *testing.T) {
	t.Setenv("TOKOKU_API_BASE_URL", " https://pos.example.com/api/ ")
	t.Setenv("TOKOKU_SESSION_BACKEND", "REDIS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.APIBaseURL != "https://pos.example.com/api" {
		t.Fatalf("unexpected base url %q", cfg.APIBaseURL)
	}
	if cfg.DemoMode() {
		t.Fatalf("did not expect demo mode")
	}
	if cfg.SessionBackend != SessionBackendRedis {
		t.Fatalf("expected redis backend, got %q", cfg.SessionBackend)
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("TOKOKU_REQUEST_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected malformed duration to be rejected")
	}
}
