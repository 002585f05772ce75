package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"LISTEN_ADDR", "DB_DSN", "JWT_SECRET", "JWT_ISS", "JWT_AUD", "JWT_EXPIRY"} {
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	// Check defaults
	if cfg.ListenAddr != ":8080" {
		t.Errorf("Expected default LISTEN_ADDR, got %s", cfg.ListenAddr)
	}
	if cfg.DatabaseDSN != "" {
		t.Errorf("Expected empty DB_DSN by default, got %s", cfg.DatabaseDSN)
	}
	if cfg.JWTSecret != "your-secret-key-change-in-production" {
		t.Errorf("Expected default JWT_SECRET, got %s", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "arka-asset-api" {
		t.Errorf("Expected default JWT_ISS, got %s", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "arka-asset-api" {
		t.Errorf("Expected default JWT_AUD, got %s", cfg.JWTAudience)
	}
	if cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("Expected default JWT_EXPIRY, got %v", cfg.JWTExpiry)
	}
}

func TestLoadWithEnvironment(t *testing.T) {
	clearEnv(t)
	os.Setenv("LISTEN_ADDR", ":9090")
	os.Setenv("DB_DSN", "postgres://localhost/arka")
	os.Setenv("JWT_SECRET", "test-secret-key")
	os.Setenv("JWT_ISS", "test-issuer")
	os.Setenv("JWT_AUD", "test-audience")
	os.Setenv("JWT_EXPIRY", "2h")
	defer clearEnv(t)

	cfg := Load()

	if cfg.ListenAddr != ":9090" {
		t.Errorf("Expected LISTEN_ADDR from env, got %s", cfg.ListenAddr)
	}
	if cfg.DatabaseDSN != "postgres://localhost/arka" {
		t.Errorf("Expected DB_DSN from env, got %s", cfg.DatabaseDSN)
	}
	if cfg.JWTSecret != "test-secret-key" {
		t.Errorf("Expected JWT_SECRET from env, got %s", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "test-issuer" {
		t.Errorf("Expected JWT_ISS from env, got %s", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "test-audience" {
		t.Errorf("Expected JWT_AUD from env, got %s", cfg.JWTAudience)
	}
	if cfg.JWTExpiry != 2*time.Hour {
		t.Errorf("Expected JWT_EXPIRY from env, got %v", cfg.JWTExpiry)
	}
}

func TestLoadIgnoresUnparseableExpiry(t *testing.T) {
	clearEnv(t)
	os.Setenv("JWT_EXPIRY", "soon")
	defer clearEnv(t)

	cfg := Load()
	if cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("Expected unparseable JWT_EXPIRY to fall back to default, got %v", cfg.JWTExpiry)
	}
}

func TestLoadAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		expectError bool
	}{
		{
			name: "valid config",
			env: map[string]string{
				"JWT_SECRET": "valid-secret-that-is-long-enough-for-testing",
			},
			expectError: false,
		},
		{
			name:        "defaults are valid",
			env:         map[string]string{},
			expectError: false,
		},
		{
			name: "secret too short",
			env: map[string]string{
				"JWT_SECRET": "short",
			},
			expectError: true,
		},
		{
			name: "negative expiry",
			env: map[string]string{
				"JWT_EXPIRY": "-1h",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				os.Setenv(k, v)
			}
			defer clearEnv(t)

			cfg, err := LoadAndValidate()
			if (err != nil) != tt.expectError {
				t.Errorf("LoadAndValidate() error = %v, expectError %v", err, tt.expectError)
			}
			if !tt.expectError && cfg == nil {
				t.Error("LoadAndValidate() returned nil config without error")
			}
		})
	}
}
