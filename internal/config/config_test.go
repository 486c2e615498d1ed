package config

import (
	"strings"
	"testing"
)

var simEnv = []string{
	"SIM_ADDR", "SIM_GRPC_ADDR", "SIM_ALLOWED_ORIGINS", "SIM_CATALOG_PATH", "SIM_DEFAULT_TRIALS",
	"SIM_MAX_TRIALS", "SIM_BATCH_SIZE", "SIM_MAX_VOLLEYS", "SIM_RULES_VERSION", "SIM_RATE_WINDOW",
	"SIM_RATE_BURST", "SIM_MAX_PAYLOAD_BYTES", "SIM_PING_INTERVAL", "SIM_GRPC_AUTH_MODE",
	"SIM_GRPC_SHARED_SECRET", "SIM_GRPC_TLS_CERT", "SIM_GRPC_TLS_KEY", "SIM_GRPC_CLIENT_CA",
	"SIM_LOG_LEVEL", "SIM_LOG_PATH", "SIM_LOG_MAX_SIZE_MB", "SIM_LOG_MAX_BACKUPS",
	"SIM_LOG_MAX_AGE_DAYS", "SIM_LOG_COMPRESS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range simEnv {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Address != DefaultAddr || cfg.GRPCAddress != DefaultGRPCAddr {
		t.Fatalf("unexpected addresses %q %q", cfg.Address, cfg.GRPCAddress)
	}
	if cfg.AllowedOrigins != nil {
		t.Fatalf("expected no allowed origins, got %#v", cfg.AllowedOrigins)
	}
	if cfg.DefaultTrials != DefaultTrials || cfg.MaxTrials != DefaultMaxTrials || cfg.BatchSize != DefaultBatchSize {
		t.Fatalf("unexpected trial limits %+v", cfg)
	}
	if cfg.MaxVolleys != DefaultMaxVolleys || cfg.RulesVersion != DefaultRulesVersion {
		t.Fatalf("unexpected combat defaults %d %q", cfg.MaxVolleys, cfg.RulesVersion)
	}
	if cfg.GRPCAuthMode != GRPCAuthModeNone {
		t.Fatalf("expected no grpc auth by default, got %q", cfg.GRPCAuthMode)
	}
	if cfg.Logging.Path != DefaultLogPath || !cfg.Logging.Compress {
		t.Fatalf("unexpected logging defaults %+v", cfg.Logging)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIM_ADDR", "127.0.0.1:9000")
	t.Setenv("SIM_GRPC_ADDR", "off")
	t.Setenv("SIM_ALLOWED_ORIGINS", "https://example.com, https://demo.local")
	t.Setenv("SIM_CATALOG_PATH", "/srv/catalog.yaml.zst")
	t.Setenv("SIM_DEFAULT_TRIALS", "5000")
	t.Setenv("SIM_MAX_TRIALS", "20000")
	t.Setenv("SIM_BATCH_SIZE", "250")
	t.Setenv("SIM_RULES_VERSION", "B11")
	t.Setenv("SIM_RATE_WINDOW", "2s")
	t.Setenv("SIM_RATE_BURST", "9")
	t.Setenv("SIM_GRPC_AUTH_MODE", "shared_secret")
	t.Setenv("SIM_GRPC_SHARED_SECRET", "hunter2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Address != "127.0.0.1:9000" || cfg.GRPCAddress != "" {
		t.Fatalf("unexpected addresses %q %q", cfg.Address, cfg.GRPCAddress)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://demo.local" {
		t.Fatalf("unexpected allowed origins: %#v", cfg.AllowedOrigins)
	}
	if cfg.CatalogPath != "/srv/catalog.yaml.zst" {
		t.Fatalf("unexpected catalog path %q", cfg.CatalogPath)
	}
	if cfg.DefaultTrials != 5000 || cfg.MaxTrials != 20000 || cfg.BatchSize != 250 {
		t.Fatalf("unexpected trial limits %+v", cfg)
	}
	if cfg.RulesVersion != "b11" {
		t.Fatalf("expected rules normalised to b11, got %q", cfg.RulesVersion)
	}
	if cfg.RateWindow.String() != "2s" || cfg.RateBurst != 9 {
		t.Fatalf("unexpected rate limit %v/%d", cfg.RateWindow, cfg.RateBurst)
	}
	if cfg.GRPCAuthMode != GRPCAuthModeSharedSecret || cfg.GRPCSharedSecret != "hunter2" {
		t.Fatalf("unexpected grpc auth %q", cfg.GRPCAuthMode)
	}
}

func TestLoadReturnsValidationErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIM_MAX_PAYLOAD_BYTES", "-5")
	t.Setenv("SIM_PING_INTERVAL", "abc")
	t.Setenv("SIM_BATCH_SIZE", "0")
	t.Setenv("SIM_RULES_VERSION", "b12")
	t.Setenv("SIM_LOG_COMPRESS", "maybe")
	t.Setenv("SIM_GRPC_AUTH_MODE", "mtls")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error from invalid configuration, got nil")
	}

	for _, want := range []string{
		"SIM_MAX_PAYLOAD_BYTES",
		"SIM_PING_INTERVAL",
		"SIM_BATCH_SIZE",
		"SIM_RULES_VERSION",
		"SIM_LOG_COMPRESS",
		"SIM_GRPC_CLIENT_CA",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %s, got %q", want, err.Error())
		}
	}
}

func TestLoadRejectsDefaultAboveMaximum(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIM_DEFAULT_TRIALS", "500")
	t.Setenv("SIM_MAX_TRIALS", "100")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SIM_DEFAULT_TRIALS") {
		t.Fatalf("expected trial bound error, got %v", err)
	}
}

func TestLoadIgnoresEmptyAllowedOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIM_ALLOWED_ORIGINS", " , ,https://ok.example, ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://ok.example" {
		t.Fatalf("expected single cleaned origin, got %#v", cfg.AllowedOrigins)
	}
}

func TestLoadSharedSecretRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIM_GRPC_AUTH_MODE", "shared_secret")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SIM_GRPC_SHARED_SECRET") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}
