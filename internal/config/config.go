package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAddr is the default TCP address the HTTP and WebSocket surface listens on.
	DefaultAddr = ":43127"
	// DefaultGRPCAddr is the default address of the streaming gRPC service. Empty disables it.
	DefaultGRPCAddr = ":43128"
	// DefaultPingInterval controls the keepalive cadence for WebSocket connections.
	DefaultPingInterval = 30 * time.Second
	// DefaultMaxPayloadBytes limits inbound request bodies and WebSocket frames.
	DefaultMaxPayloadBytes int64 = 1 << 20

	// DefaultTrials is used when a request does not say how many fights to simulate.
	DefaultTrials = 100000
	// DefaultMaxTrials bounds the trials a single request may ask for.
	DefaultMaxTrials = 1000000
	// DefaultBatchSize is how many trials run between cancellation checks.
	DefaultBatchSize = 100
	// DefaultMaxVolleys aborts a trial that cannot finish the defender.
	DefaultMaxVolleys = 100000
	// DefaultRulesVersion selects the damage rules when a request leaves them unset.
	DefaultRulesVersion = "legacy"

	// DefaultRateWindow bounds how frequently a client may start simulations.
	DefaultRateWindow = time.Second
	// DefaultRateBurst sets how many simulations a client may start per window.
	DefaultRateBurst = 4

	// DefaultLogLevel controls verbosity for service logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "combatsim.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true
)

// GRPCAuthMode selects how the gRPC listener authenticates callers.
type GRPCAuthMode string

const (
	GRPCAuthModeNone         GRPCAuthMode = "none"
	GRPCAuthModeSharedSecret GRPCAuthMode = "shared_secret"
	GRPCAuthModeMTLS         GRPCAuthMode = "mtls"
)

// Config captures all runtime tunables for the simulation service.
type Config struct {
	Address         string
	GRPCAddress     string
	AllowedOrigins  []string
	MaxPayloadBytes int64
	PingInterval    time.Duration
	CatalogPath     string

	DefaultTrials int
	MaxTrials     int
	BatchSize     int
	MaxVolleys    int
	RulesVersion  string

	RateWindow time.Duration
	RateBurst  int

	GRPCAuthMode       GRPCAuthMode
	GRPCSharedSecret   string
	GRPCServerCertPath string
	GRPCServerKeyPath  string
	GRPCClientCAPath   string

	Logging LoggingConfig
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads the service configuration from environment variables, applying sane defaults
// and returning descriptive errors for invalid overrides.
func Load() (*Config, error) {
	cfg := &Config{
		Address:            getString("SIM_ADDR", DefaultAddr),
		GRPCAddress:        getString("SIM_GRPC_ADDR", DefaultGRPCAddr),
		AllowedOrigins:     parseList(os.Getenv("SIM_ALLOWED_ORIGINS")),
		MaxPayloadBytes:    DefaultMaxPayloadBytes,
		PingInterval:       DefaultPingInterval,
		CatalogPath:        strings.TrimSpace(os.Getenv("SIM_CATALOG_PATH")),
		DefaultTrials:      DefaultTrials,
		MaxTrials:          DefaultMaxTrials,
		BatchSize:          DefaultBatchSize,
		MaxVolleys:         DefaultMaxVolleys,
		RulesVersion:       strings.ToLower(getString("SIM_RULES_VERSION", DefaultRulesVersion)),
		RateWindow:         DefaultRateWindow,
		RateBurst:          DefaultRateBurst,
		GRPCAuthMode:       GRPCAuthMode(strings.ToLower(getString("SIM_GRPC_AUTH_MODE", string(GRPCAuthModeNone)))),
		GRPCSharedSecret:   strings.TrimSpace(os.Getenv("SIM_GRPC_SHARED_SECRET")),
		GRPCServerCertPath: strings.TrimSpace(os.Getenv("SIM_GRPC_TLS_CERT")),
		GRPCServerKeyPath:  strings.TrimSpace(os.Getenv("SIM_GRPC_TLS_KEY")),
		GRPCClientCAPath:   strings.TrimSpace(os.Getenv("SIM_GRPC_CLIENT_CA")),
		Logging: LoggingConfig{
			Level:      strings.TrimSpace(getString("SIM_LOG_LEVEL", DefaultLogLevel)),
			Path:       strings.TrimSpace(getString("SIM_LOG_PATH", DefaultLogPath)),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("SIM_GRPC_ADDR")), "off") {
		cfg.GRPCAddress = ""
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("SIM_MAX_PAYLOAD_BYTES")); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("SIM_MAX_PAYLOAD_BYTES must be a positive integer, got %q", raw))
		} else {
			cfg.MaxPayloadBytes = value
		}
	}

	problems = parseDuration("SIM_PING_INTERVAL", &cfg.PingInterval, problems)
	problems = parseDuration("SIM_RATE_WINDOW", &cfg.RateWindow, problems)
	problems = parsePositive("SIM_DEFAULT_TRIALS", &cfg.DefaultTrials, problems)
	problems = parsePositive("SIM_MAX_TRIALS", &cfg.MaxTrials, problems)
	problems = parsePositive("SIM_BATCH_SIZE", &cfg.BatchSize, problems)
	problems = parsePositive("SIM_MAX_VOLLEYS", &cfg.MaxVolleys, problems)
	problems = parsePositive("SIM_RATE_BURST", &cfg.RateBurst, problems)
	problems = parsePositive("SIM_LOG_MAX_SIZE_MB", &cfg.Logging.MaxSizeMB, problems)
	problems = parseNonNegative("SIM_LOG_MAX_BACKUPS", &cfg.Logging.MaxBackups, problems)
	problems = parseNonNegative("SIM_LOG_MAX_AGE_DAYS", &cfg.Logging.MaxAgeDays, problems)

	if raw := strings.TrimSpace(os.Getenv("SIM_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("SIM_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if cfg.DefaultTrials > cfg.MaxTrials {
		problems = append(problems, fmt.Sprintf("SIM_DEFAULT_TRIALS (%d) must not exceed SIM_MAX_TRIALS (%d)", cfg.DefaultTrials, cfg.MaxTrials))
	}

	switch cfg.RulesVersion {
	case "legacy", "b11":
	default:
		problems = append(problems, fmt.Sprintf("SIM_RULES_VERSION must be legacy or b11, got %q", cfg.RulesVersion))
	}

	switch cfg.GRPCAuthMode {
	case GRPCAuthModeNone:
	case GRPCAuthModeSharedSecret:
		if cfg.GRPCSharedSecret == "" {
			problems = append(problems, "SIM_GRPC_SHARED_SECRET is required for shared_secret auth")
		}
	case GRPCAuthModeMTLS:
		if cfg.GRPCServerCertPath == "" || cfg.GRPCServerKeyPath == "" || cfg.GRPCClientCAPath == "" {
			problems = append(problems, "SIM_GRPC_TLS_CERT, SIM_GRPC_TLS_KEY and SIM_GRPC_CLIENT_CA are required for mtls auth")
		}
	default:
		problems = append(problems, fmt.Sprintf("SIM_GRPC_AUTH_MODE must be none, shared_secret or mtls, got %q", cfg.GRPCAuthMode))
	}

	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}

	return cfg, nil
}

func parseDuration(key string, target *time.Duration, problems []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return problems
	}
	duration, err := time.ParseDuration(raw)
	if err != nil || duration <= 0 {
		return append(problems, fmt.Sprintf("%s must be a positive duration, got %q", key, raw))
	}
	*target = duration
	return problems
}

func parsePositive(key string, target *int, problems []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return problems
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return append(problems, fmt.Sprintf("%s must be a positive integer, got %q", key, raw))
	}
	*target = value
	return problems
}

func parseNonNegative(key string, target *int, problems []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return problems
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return append(problems, fmt.Sprintf("%s must be a non-negative integer, got %q", key, raw))
	}
	*target = value
	return problems
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			values = append(values, item)
		}
	}
	return values
}
