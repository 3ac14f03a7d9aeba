package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	v, err := envInt("TEST_INT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestEnvIntFallback(t *testing.T) {
	v, err := envInt("TEST_INT_MISSING", 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-integer value, got nil")
	}
	if got := err.Error(); got != `TEST_INT_BAD="abc" is not a valid integer` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvBoolValid(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	v, err := envBool("TEST_BOOL", false)
	if err != nil || !v {
		t.Fatalf("expected true, nil; got %v, %v", v, err)
	}
}

func TestEnvBoolInvalid(t *testing.T) {
	t.Setenv("TEST_BOOL_BAD", "nope")
	if _, err := envBool("TEST_BOOL_BAD", false); err == nil {
		t.Fatal("expected error for invalid boolean")
	}
}

func TestEnvDurationValid(t *testing.T) {
	t.Setenv("TEST_DURATION", "5s")
	v, err := envDuration("TEST_DURATION", 0)
	if err != nil || v != 5*time.Second {
		t.Fatalf("expected 5s, nil; got %v, %v", v, err)
	}
}

func TestEnvDurationInvalid(t *testing.T) {
	t.Setenv("TEST_DURATION_BAD", "five seconds")
	if _, err := envDuration("TEST_DURATION_BAD", 0); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestEnvStrSlice(t *testing.T) {
	t.Setenv("TEST_SLICE", "a, b ,c")
	got := envStrSlice("TEST_SLICE", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestEnvStrSliceFallback(t *testing.T) {
	got := envStrSlice("TEST_SLICE_MISSING", []string{"default"})
	if len(got) != 1 || got[0] != "default" {
		t.Fatalf("expected fallback, got %v", got)
	}
}

func clearSenateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SENATE_PORT", "SENATE_READ_TIMEOUT", "SENATE_WRITE_TIMEOUT",
		"SENATE_JWT_PRIVATE_KEY", "SENATE_JWT_PUBLIC_KEY", "SENATE_JWT_EXPIRATION",
		"CHRONICLE_SECURED", "CHRONICLE_PRECEDENT_PATH", "CHRONICLE_APPEAL_PATH", "DATABASE_URL",
		"REASONER_CLOUD_URL", "REASONER_SOVEREIGN_URL", "REASONER_BACKSTOP_URL", "REASONER_CLOUD_KEY",
		"PRECHECK_MODEL", "FORGE_MODEL", "FORGE_BACKSTOP_MODEL", "ADVERSARY_MODEL", "FINAL_MODEL",
		"REDIS_URL", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME",
		"SENATE_LOG_LEVEL", "SENATE_CORS_ALLOWED_ORIGINS", "SENATE_MAX_REQUEST_BODY_BYTES",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearSenateEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.ReadTimeout != 30*time.Second {
		t.Fatalf("expected default read timeout 30s, got %v", cfg.ReadTimeout)
	}
	if cfg.ChroniclePrecedentPath != "chronicle_data.json" {
		t.Fatalf("unexpected default precedent path: %s", cfg.ChroniclePrecedentPath)
	}
	if cfg.ChronicleSecured {
		t.Fatal("expected CHRONICLE_SECURED to default to false")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	clearSenateEnv(t)
	t.Setenv("SENATE_PORT", "abc")

	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail with invalid SENATE_PORT")
	}
	if !strings.Contains(err.Error(), "SENATE_PORT") || !strings.Contains(err.Error(), "abc") {
		t.Fatalf("error should mention SENATE_PORT and value 'abc', got: %s", err)
	}
}

func TestLoad_MultipleInvalidValues(t *testing.T) {
	clearSenateEnv(t)
	t.Setenv("SENATE_PORT", "abc")
	t.Setenv("CHRONICLE_SECURED", "xyz")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "SENATE_PORT") {
		t.Fatalf("error should mention SENATE_PORT, got: %s", err)
	}
	if !strings.Contains(err.Error(), "CHRONICLE_SECURED") {
		t.Fatalf("error should mention CHRONICLE_SECURED, got: %s", err)
	}
}

func TestLoad_PortOutOfRange(t *testing.T) {
	clearSenateEnv(t)
	t.Setenv("SENATE_PORT", "70000")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestValidateKeyFile_Nonexistent(t *testing.T) {
	clearSenateEnv(t)
	bogusPath := filepath.Join(t.TempDir(), "nonexistent-key.pem")
	t.Setenv("SENATE_JWT_PRIVATE_KEY", bogusPath)

	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail when SENATE_JWT_PRIVATE_KEY points to a nonexistent file")
	}
	if !strings.Contains(err.Error(), "SENATE_JWT_PRIVATE_KEY") {
		t.Fatalf("error should mention SENATE_JWT_PRIVATE_KEY, got: %s", err)
	}
}

func TestValidateKeyFile_PermissiveMode(t *testing.T) {
	clearSenateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(path, []byte("not-really-a-key"), 0o644); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	t.Setenv("SENATE_JWT_PRIVATE_KEY", path)

	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail for a world-readable key file")
	}
	if !strings.Contains(err.Error(), "permissive") {
		t.Fatalf("expected permissive-mode error, got: %s", err)
	}
}

func TestValidateKeyFile_Empty(t *testing.T) {
	clearSenateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	t.Setenv("SENATE_JWT_PRIVATE_KEY", path)

	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail for an empty key file")
	}
	if !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty-file error, got: %s", err)
	}
}

func TestLoad_FullOverride(t *testing.T) {
	clearSenateEnv(t)
	t.Setenv("SENATE_PORT", "9090")
	t.Setenv("SENATE_JWT_EXPIRATION", "12h")
	t.Setenv("OTEL_SERVICE_NAME", "senate-test")
	t.Setenv("SENATE_LOG_LEVEL", "debug")
	t.Setenv("SENATE_CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("CHRONICLE_SECURED", "true")
	t.Setenv("DATABASE_URL", "postgres://localhost/senate")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.JWTExpiration != 12*time.Hour {
		t.Fatalf("expected 12h, got %v", cfg.JWTExpiration)
	}
	if cfg.ServiceName != "senate-test" {
		t.Fatalf("expected senate-test, got %s", cfg.ServiceName)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.ChronicleSecured {
		t.Fatal("expected CHRONICLE_SECURED=true to be honored")
	}
	if cfg.DatabaseURL != "postgres://localhost/senate" {
		t.Fatalf("expected DATABASE_URL to be honored, got %s", cfg.DatabaseURL)
	}
}
