package config

import (
	"strings"
	"testing"
	"time"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("PLAIDENVIRONMENT", "sandbox")
	t.Setenv("STATEMENT_FALLBACK_DAY", "")
	t.Setenv("RATELIMIT_WINDOW", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg := New()

	if cfg.PlaidEnvironment != dto.PlaidSandbox {
		t.Fatalf("plaid env = %s", cfg.PlaidEnvironment)
	}
	if cfg.StatementFallbackDay != 15 || cfg.CloseBufferDays != 2 {
		t.Fatalf("cycle defaults = %d/%d", cfg.StatementFallbackDay, cfg.CloseBufferDays)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Fatalf("window = %s", cfg.RateLimitWindow)
	}
	if cfg.RateLimitIPReads != 600 || cfg.RateLimitIPWrites != 100 {
		t.Fatalf("ip budgets = %d/%d", cfg.RateLimitIPReads, cfg.RateLimitIPWrites)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("cors = %v", cfg.CORSOrigins)
	}
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("STATEMENT_FALLBACK_DAY", "20")
	t.Setenv("REPORT_CONFIGURED_TARGET", "true")
	t.Setenv("RATELIMIT_WINDOW", "30s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TOKENBACKEND", "SecretManager")

	cfg := New()

	if cfg.StatementFallbackDay != 20 || !cfg.ReportConfiguredTarget {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.RateLimitWindow != 30*time.Second {
		t.Fatalf("window = %s", cfg.RateLimitWindow)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors = %v", cfg.CORSOrigins)
	}
	if cfg.TokenBackend != TokenBackendSecretManager {
		t.Fatalf("token backend = %s", cfg.TokenBackend)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		ProjectID:            "p",
		PlaidClientID:        "id",
		PlaidSecret:          "secret",
		TokenBackend:         TokenBackendKMS,
		KMSKeyName:           "key",
		RateLimitBackend:     RateLimitMemory,
		RateLimitReads:       10,
		RateLimitWrites:      5,
		RateLimitIPReads:     50,
		RateLimitIPWrites:    25,
		RateLimitWindow:      time.Minute,
		StatementFallbackDay: 15,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.KMSKeyName = ""
	cfg.StatementFallbackDay = 40
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "KMSKEYNAME") || !strings.Contains(err.Error(), "STATEMENT_FALLBACK_DAY") {
		t.Fatalf("error should list every problem: %v", err)
	}
}
