package config

import (
	"os"
	"testing"
	"time"
)

var managedEnv = []string{
	"APP_NAME", "APP_VERSION", "APP_ENV", "APP_PORT",
	"HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "HTTP_REQUEST_TIMEOUT", "HTTP_IDLE_TIMEOUT", "HTTP_SHUTDOWN_TIMEOUT",
	"AUTH_ENABLED", "JWT_ISSUER_URI", "JWT_JWK_SET_URI", "AUTH_CLOCK_SKEW", "AUTH_BYPASS_PATHS",
	"LOG_LEVEL", "REDIS_URL", "REDIS_KEY_PREFIX",
	"IAP_ENDPOINT", "IAP_TEST_MODE", "IAP_ACCOUNT_TOKEN", "IAP_DB_UUID", "IAP_TIMEOUT", "IAP_TOKEN_TTL",
	"IAP_BUY_CREDITS_URL", "IAP_MAX_CONCURRENT", "IAP_BREAKER_MAX_FAILURES", "IAP_BREAKER_COOLDOWN",
}

// clearEnv unsets every variable Load reads and restores the values after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedEnv {
		if value, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, value) })
		}
		os.Unsetenv(key)
	}
	t.Cleanup(func() {
		for _, key := range managedEnv {
			os.Unsetenv(key)
		}
	})
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	// Set AUTH_ENABLED=false to avoid requiring JWT config
	os.Setenv("AUTH_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "ms_ewaybill_core" {
		t.Errorf("expected default app name 'ms_ewaybill_core', got %q", cfg.App.Name)
	}
	if cfg.App.Version != "0.1.0" {
		t.Errorf("expected default version '0.1.0', got %q", cfg.App.Version)
	}
	if cfg.App.Environment != "local" {
		t.Errorf("expected default environment 'local', got %q", cfg.App.Environment)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Auth.Enabled != false {
		t.Errorf("expected auth enabled false (as set in test), got %v", cfg.Auth.Enabled)
	}
	if cfg.IAP.Endpoint != DefaultIAPTestEndpoint {
		t.Errorf("expected test endpoint %q, got %q", DefaultIAPTestEndpoint, cfg.IAP.Endpoint)
	}
	if cfg.IAP.Timeout != 70*time.Second {
		t.Errorf("expected IAP timeout 70s, got %v", cfg.IAP.Timeout)
	}
	if cfg.IAP.TokenTTL != 6*time.Hour {
		t.Errorf("expected token TTL 6h, got %v", cfg.IAP.TokenTTL)
	}
	if cfg.IAP.MaxConcurrent != 20 {
		t.Errorf("expected max concurrent 20, got %d", cfg.IAP.MaxConcurrent)
	}
	if cfg.Redis.URL != "" {
		t.Errorf("expected empty redis URL, got %q", cfg.Redis.URL)
	}
	if cfg.HTTP.RequestTimeout < cfg.IAP.Timeout {
		t.Errorf("default request timeout %v shorter than IAP timeout %v", cfg.HTTP.RequestTimeout, cfg.IAP.Timeout)
	}
}

func TestLoad_WithCustomValues(t *testing.T) {
	clearEnv(t)
	os.Setenv("APP_NAME", "test-app")
	os.Setenv("APP_VERSION", "2.0.0")
	os.Setenv("APP_ENV", "production")
	os.Setenv("APP_PORT", "9090")
	os.Setenv("AUTH_ENABLED", "false")
	os.Setenv("REDIS_URL", "redis://cache:6379/2")
	os.Setenv("IAP_ACCOUNT_TOKEN", "acct-123")
	os.Setenv("IAP_DB_UUID", "db-uuid")
	os.Setenv("IAP_MAX_CONCURRENT", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "test-app" {
		t.Errorf("expected app name 'test-app', got %q", cfg.App.Name)
	}
	if cfg.App.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %q", cfg.App.Version)
	}
	if cfg.App.Environment != "production" {
		t.Errorf("expected environment 'production', got %q", cfg.App.Environment)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Redis.URL != "redis://cache:6379/2" {
		t.Errorf("expected redis URL, got %q", cfg.Redis.URL)
	}
	if cfg.IAP.AccountToken != "acct-123" || cfg.IAP.DBUUID != "db-uuid" {
		t.Errorf("unexpected IAP identity %q/%q", cfg.IAP.AccountToken, cfg.IAP.DBUUID)
	}
	if cfg.IAP.MaxConcurrent != 5 {
		t.Errorf("expected max concurrent 5, got %d", cfg.IAP.MaxConcurrent)
	}
}

func TestLoad_IAPEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		testMode string
		expected string
	}{
		{"production default", "", "false", DefaultIAPEndpoint},
		{"test default", "", "true", DefaultIAPTestEndpoint},
		{"explicit wins", "https://proxy.internal/", "true", "https://proxy.internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			os.Setenv("AUTH_ENABLED", "false")
			os.Setenv("IAP_TEST_MODE", tt.testMode)
			if tt.endpoint != "" {
				os.Setenv("IAP_ENDPOINT", tt.endpoint)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.IAP.Endpoint != tt.expected {
				t.Errorf("expected endpoint %q, got %q", tt.expected, cfg.IAP.Endpoint)
			}
		})
	}
}

func TestLoad_InvalidIAPSettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"relative endpoint", "IAP_ENDPOINT", "l10n-in-edi"},
		{"zero timeout", "IAP_TIMEOUT", "0s"},
		{"negative token ttl", "IAP_TOKEN_TTL", "-1m"},
		{"zero concurrency", "IAP_MAX_CONCURRENT", "0"},
		{"too much concurrency", "IAP_MAX_CONCURRENT", "500"},
		{"request shorter than portal", "HTTP_REQUEST_TIMEOUT", "10s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			os.Setenv("AUTH_ENABLED", "false")
			os.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_AuthEnabled_MissingIssuerURI(t *testing.T) {
	clearEnv(t)
	os.Setenv("AUTH_ENABLED", "true")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when AUTH_ENABLED=true and JWT_ISSUER_URI is missing")
	}

	if err.Error() != "invalid config: JWT_ISSUER_URI is required when AUTH_ENABLED=true" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoad_AuthEnabled_MissingJWKSetURI(t *testing.T) {
	clearEnv(t)
	os.Setenv("AUTH_ENABLED", "true")
	os.Setenv("JWT_ISSUER_URI", "https://issuer.example.com")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when AUTH_ENABLED=true and JWT_JWK_SET_URI is missing")
	}

	if err.Error() != "invalid config: JWT_JWK_SET_URI is required when AUTH_ENABLED=true" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestHTTPSettings_Address(t *testing.T) {
	settings := HTTPSettings{Port: 8080}
	addr := settings.Address()

	if addr != ":8080" {
		t.Errorf("expected address ':8080', got %q", addr)
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	value := getEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("expected 'test-value', got %q", value)
	}

	value = getEnv("NON_EXISTENT_KEY", "default-value")
	if value != "default-value" {
		t.Errorf("expected 'default-value', got %q", value)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback bool
		expected bool
	}{
		{"true value", "true", false, true},
		{"false value", "false", true, false},
		{"True value", "True", false, true},
		{"FALSE value", "FALSE", true, false},
		{"invalid value", "invalid", true, true},
		{"missing key", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_BOOL", tt.envValue)
				defer os.Unsetenv("TEST_BOOL")
			} else {
				os.Unsetenv("TEST_BOOL")
			}

			result := getEnvAsBool("TEST_BOOL", tt.fallback)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback int
		expected int
	}{
		{"valid int", "123", 0, 123},
		{"zero", "0", 999, 0},
		{"negative", "-10", 0, -10},
		{"invalid value", "not-a-number", 42, 42},
		{"missing key", "", 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_INT", tt.envValue)
				defer os.Unsetenv("TEST_INT")
			} else {
				os.Unsetenv("TEST_INT")
			}

			result := getEnvAsInt("TEST_INT", tt.fallback)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback time.Duration
		expected time.Duration
	}{
		{"valid duration", "10s", 0, 10 * time.Second},
		{"minutes", "5m", 0, 5 * time.Minute},
		{"hours", "2h", 0, 2 * time.Hour},
		{"invalid value", "not-a-duration", 30 * time.Second, 30 * time.Second},
		{"empty value", "", 30 * time.Second, 30 * time.Second},
		{"missing key", "", 30 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_DURATION", tt.envValue)
				defer os.Unsetenv("TEST_DURATION")
			} else {
				os.Unsetenv("TEST_DURATION")
			}

			result := getEnvAsDuration("TEST_DURATION", tt.fallback)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestGetEnvAsCSV(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback []string
		expected []string
	}{
		{
			name:     "single value",
			envValue: "value1",
			fallback: []string{"default"},
			expected: []string{"value1"},
		},
		{
			name:     "multiple values",
			envValue: "value1,value2,value3",
			fallback: []string{"default"},
			expected: []string{"value1", "value2", "value3"},
		},
		{
			name:     "with spaces",
			envValue: "value1, value2 , value3",
			fallback: []string{"default"},
			expected: []string{"value1", "value2", "value3"},
		},
		{
			name:     "empty values filtered",
			envValue: "value1,,value2, ,value3",
			fallback: []string{"default"},
			expected: []string{"value1", "value2", "value3"},
		},
		{
			name:     "empty string",
			envValue: "",
			fallback: []string{"default"},
			expected: []string{"default"},
		},
		{
			name:     "only spaces",
			envValue: " , , ",
			fallback: []string{"default"},
			expected: []string{"default"},
		},
		{
			name:     "missing key",
			envValue: "",
			fallback: []string{"default1", "default2"},
			expected: []string{"default1", "default2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_CSV", tt.envValue)
				defer os.Unsetenv("TEST_CSV")
			} else {
				os.Unsetenv("TEST_CSV")
			}

			result := getEnvAsCSV("TEST_CSV", tt.fallback)
			if len(result) != len(tt.expected) {
				t.Errorf("expected %d values, got %d", len(tt.expected), len(result))
				return
			}

			for i, expected := range tt.expected {
				if result[i] != expected {
					t.Errorf("expected[%d] %q, got %q", i, expected, result[i])
				}
			}
		})
	}
}
