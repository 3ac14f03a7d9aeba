// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// JWT settings.
	JWTPrivateKeyPath string // Path to Ed25519 private key PEM file.
	JWTPublicKeyPath  string // Path to Ed25519 public key PEM file.
	JWTExpiration     time.Duration

	// Chronicle settings.
	ChronicleSecured      bool   // CHRONICLE_SECURED: writes without a WRITER handle fail.
	ChroniclePrecedentPath string // JSON backend: path to the precedents file.
	ChronicleAppealPath    string // JSON backend: path to the appeals file.
	DatabaseURL           string // Optional Postgres backend; empty means JSON files.

	// Reasoner endpoint settings.
	ReasonerCloudURL     string
	ReasonerSovereignURL string
	ReasonerBackstopURL  string
	ReasonerCloudKey     string
	PrecheckModel        string
	ForgeModel           string
	ForgeBackstopModel   string
	AdversaryModel       string
	FinalModel           string

	// Redis-backed rate limiting; empty URL disables Redis and falls back
	// to the in-memory limiter.
	RedisURL string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool // Use HTTP instead of HTTPS for OTEL exporter (default: false).
	ServiceName  string

	// CORS settings.
	CORSAllowedOrigins []string // Allowed origins for CORS; ["*"] permits all.

	// Operational settings.
	LogLevel            string
	MaxRequestBodyBytes int64 // Maximum request body size in bytes.
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if any environment variable contains an unparseable value.
// Missing variables use sensible defaults; only malformed values are rejected.
func Load() (Config, error) {
	var errs []error
	cfg := Config{
		JWTPrivateKeyPath:      envStr("SENATE_JWT_PRIVATE_KEY", ""),
		JWTPublicKeyPath:       envStr("SENATE_JWT_PUBLIC_KEY", ""),
		ChroniclePrecedentPath: envStr("CHRONICLE_PRECEDENT_PATH", "chronicle_data.json"),
		ChronicleAppealPath:    envStr("CHRONICLE_APPEAL_PATH", "chronicle_data_appeals.json"),
		DatabaseURL:            envStr("DATABASE_URL", ""),
		ReasonerCloudURL:       envStr("REASONER_CLOUD_URL", ""),
		ReasonerSovereignURL:   envStr("REASONER_SOVEREIGN_URL", ""),
		ReasonerBackstopURL:    envStr("REASONER_BACKSTOP_URL", ""),
		ReasonerCloudKey:       envStr("REASONER_CLOUD_KEY", ""),
		PrecheckModel:          envStr("PRECHECK_MODEL", ""),
		ForgeModel:             envStr("FORGE_MODEL", ""),
		ForgeBackstopModel:     envStr("FORGE_BACKSTOP_MODEL", ""),
		AdversaryModel:         envStr("ADVERSARY_MODEL", ""),
		FinalModel:             envStr("FINAL_MODEL", ""),
		RedisURL:               envStr("REDIS_URL", ""),
		OTELEndpoint:           envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:            envStr("OTEL_SERVICE_NAME", "senate"),
		LogLevel:               envStr("SENATE_LOG_LEVEL", "info"),
		CORSAllowedOrigins:     envStrSlice("SENATE_CORS_ALLOWED_ORIGINS", nil),
	}

	cfg.Port, errs = collectInt(errs, "SENATE_PORT", 8080)

	var maxReqBody int
	maxReqBody, errs = collectInt(errs, "SENATE_MAX_REQUEST_BODY_BYTES", 1*1024*1024)
	cfg.MaxRequestBodyBytes = int64(maxReqBody)

	cfg.ChronicleSecured, errs = collectBool(errs, "CHRONICLE_SECURED", false)
	cfg.OTELInsecure, errs = collectBool(errs, "OTEL_EXPORTER_OTLP_INSECURE", false)

	cfg.ReadTimeout, errs = collectDuration(errs, "SENATE_READ_TIMEOUT", 30*time.Second)
	cfg.WriteTimeout, errs = collectDuration(errs, "SENATE_WRITE_TIMEOUT", 60*time.Second)
	cfg.JWTExpiration, errs = collectDuration(errs, "SENATE_JWT_EXPIRATION", 24*time.Hour)

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return Config{}, fmt.Errorf("config: invalid environment variables:\n  %s", strings.Join(msgs, "\n  "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// collectInt parses an int env var, appending any error to the accumulator.
func collectInt(errs []error, key string, fallback int) (int, []error) {
	v, err := envInt(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectBool parses a bool env var, appending any error to the accumulator.
func collectBool(errs []error, key string, fallback bool) (bool, []error) {
	v, err := envBool(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectDuration parses a duration env var, appending any error to the accumulator.
func collectDuration(errs []error, key string, fallback time.Duration) (time.Duration, []error) {
	v, err := envDuration(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// Validate checks that required configuration is present and sane.
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, errors.New("config: SENATE_PORT must be between 1 and 65535"))
	}
	if c.MaxRequestBodyBytes <= 0 {
		errs = append(errs, errors.New("config: SENATE_MAX_REQUEST_BODY_BYTES must be positive"))
	}
	if c.ReadTimeout <= 0 {
		errs = append(errs, errors.New("config: SENATE_READ_TIMEOUT must be positive"))
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, errors.New("config: SENATE_WRITE_TIMEOUT must be positive"))
	}
	if c.ChroniclePrecedentPath == "" {
		errs = append(errs, errors.New("config: CHRONICLE_PRECEDENT_PATH must not be empty"))
	}
	if c.ChronicleAppealPath == "" {
		errs = append(errs, errors.New("config: CHRONICLE_APPEAL_PATH must not be empty"))
	}
	if c.JWTPrivateKeyPath != "" {
		if err := validateKeyFile(c.JWTPrivateKeyPath, "SENATE_JWT_PRIVATE_KEY"); err != nil {
			errs = append(errs, err)
		}
	}
	if c.JWTPublicKeyPath != "" {
		if err := validateKeyFile(c.JWTPublicKeyPath, "SENATE_JWT_PUBLIC_KEY"); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// validateKeyFile checks that a key file exists, is readable, is non-empty,
// and has restrictive permissions (owner-only on Unix).
func validateKeyFile(path, envVar string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config: %s %q: %w", envVar, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config: %s %q is a directory, expected a file", envVar, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("config: %s %q is empty", envVar, path)
	}
	// Check that the file is not world-readable (Unix permissions only).
	// info.Mode().Perm() returns the Unix permission bits.
	perm := info.Mode().Perm()
	if perm&0o077 != 0 {
		return fmt.Errorf("config: %s %q has overly permissive mode %04o (expected 0600 or stricter)", envVar, path, perm)
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}

// envStrSlice reads a comma-separated env var into a string slice.
// Returns fallback if the env var is empty or unset.
func envStrSlice(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
