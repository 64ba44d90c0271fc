package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load with defaults failed: %v", err)
	}
	if cfg.Address != DefaultAddr {
		t.Fatalf("address default mismatch: %q", cfg.Address)
	}
	if cfg.TickRateHz != DefaultTickRateHz {
		t.Fatalf("tick rate default mismatch: %v", cfg.TickRateHz)
	}
	if cfg.Logging.Level != DefaultLogLevel || cfg.Logging.Path != DefaultLogPath {
		t.Fatalf("logging defaults mismatch: %+v", cfg.Logging)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DYNAMICS_ADDR", ":7777")
	t.Setenv("DYNAMICS_TICK_RATE_HZ", "120")
	t.Setenv("DYNAMICS_PING_INTERVAL", "5s")
	t.Setenv("DYNAMICS_MAX_CLIENTS", "8")
	t.Setenv("DYNAMICS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DYNAMICS_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Address != ":7777" || cfg.TickRateHz != 120 || cfg.MaxClients != 8 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.PingInterval != 5*time.Second {
		t.Fatalf("ping interval mismatch: %v", cfg.PingInterval)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins not parsed: %v", cfg.AllowedOrigins)
	}
}

func TestLoadCollectsProblems(t *testing.T) {
	t.Setenv("DYNAMICS_TICK_RATE_HZ", "nope")
	t.Setenv("DYNAMICS_MAX_CLIENTS", "-3")

	_, err := Load()
	if err == nil {
		t.Fatalf("invalid overrides should fail")
	}
	//1.- Every problem is reported in the single error message.
	message := err.Error()
	if !strings.Contains(message, "DYNAMICS_TICK_RATE_HZ") || !strings.Contains(message, "DYNAMICS_MAX_CLIENTS") {
		t.Fatalf("problems not aggregated: %v", message)
	}
}
