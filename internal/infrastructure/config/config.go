package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default IAP proxy endpoints in front of the government portals.
const (
	DefaultIAPEndpoint     = "https://l10n-in-edi.api.odoo.com"
	DefaultIAPTestEndpoint = "https://l10n-in-edi-demo.api.odoo.com"
)

// AppConfig encapsulates all runtime configuration knobs.
type AppConfig struct {
	App      AppSettings
	HTTP     HTTPSettings
	Auth     AuthSettings
	Log      LogSettings
	Database DatabaseSettings
	Audit    AuditSettings
	Redis    RedisSettings
	IAP      IAPSettings
}

type AppSettings struct {
	Name        string
	Version     string
	Environment string
}

type HTTPSettings struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration // Upper bound for a generate request, portal round trips included
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type AuthSettings struct {
	Enabled     bool
	IssuerURI   string
	JWKSetURI   string
	ClockSkew   time.Duration
	BypassPaths []string
}

type LogSettings struct {
	Level string
}

type DatabaseSettings struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	RunMigrations   bool
}

type AuditSettings struct {
	Enabled         bool
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
}

// RedisSettings configures the shared token store. An empty URL keeps
// tokens in process memory.
type RedisSettings struct {
	URL       string
	KeyPrefix string
}

// IAPSettings configures the connector to the IAP proxy.
type IAPSettings struct {
	Endpoint           string
	TestMode           bool
	AccountToken       string
	DBUUID             string
	Timeout            time.Duration
	TokenTTL           time.Duration // Used when the portal does not report the token expiry
	BuyCreditsURL      string
	MaxConcurrent      int
	BreakerMaxFailures int
	BreakerCooldown    time.Duration
}

// Load resolves the application configuration from environment variables.
// It first attempts to load variables from a .env file if it exists.
// Environment variables set in the system take precedence over .env file values.
func Load() (AppConfig, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := AppConfig{
		App: AppSettings{
			Name:        getEnv("APP_NAME", "ms_ewaybill_core"),
			Version:     getEnv("APP_VERSION", "0.1.0"),
			Environment: getEnv("APP_ENV", "local"),
		},
		HTTP: HTTPSettings{
			Port:            getEnvAsInt("APP_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 3*time.Minute),
			RequestTimeout:  getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 150*time.Second),
			IdleTimeout:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Auth: AuthSettings{
			Enabled:     getEnvAsBool("AUTH_ENABLED", true),
			IssuerURI:   strings.TrimSpace(os.Getenv("JWT_ISSUER_URI")),
			JWKSetURI:   strings.TrimSpace(os.Getenv("JWT_JWK_SET_URI")),
			ClockSkew:   getEnvAsDuration("AUTH_CLOCK_SKEW", 2*time.Minute),
			BypassPaths: getEnvAsCSV("AUTH_BYPASS_PATHS", []string{"/health"}),
		},
		Log: LogSettings{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseSettings{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Database:        getEnv("DB_NAME", "ms_ewaybill_core"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			RunMigrations:   getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		Audit: AuditSettings{
			Enabled:         getEnvAsBool("AUDIT_ENABLED", true),
			LogRequestBody:  getEnvAsBool("AUDIT_LOG_REQUEST_BODY", true),
			LogResponseBody: getEnvAsBool("AUDIT_LOG_RESPONSE_BODY", true),
			MaxBodySize:     getEnvAsInt("AUDIT_MAX_BODY_SIZE", 102400),
		},
		Redis: RedisSettings{
			URL:       strings.TrimSpace(os.Getenv("REDIS_URL")),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "ewaybill:"),
		},
		IAP: IAPSettings{
			Endpoint:           strings.TrimSpace(os.Getenv("IAP_ENDPOINT")),
			TestMode:           getEnvAsBool("IAP_TEST_MODE", true),
			AccountToken:       strings.TrimSpace(os.Getenv("IAP_ACCOUNT_TOKEN")),
			DBUUID:             strings.TrimSpace(os.Getenv("IAP_DB_UUID")),
			Timeout:            getEnvAsDuration("IAP_TIMEOUT", 70*time.Second),
			TokenTTL:           getEnvAsDuration("IAP_TOKEN_TTL", 6*time.Hour),
			BuyCreditsURL:      getEnv("IAP_BUY_CREDITS_URL", "https://iap.odoo.com/iap/1/credit?service_name=l10n_in_edi"),
			MaxConcurrent:      getEnvAsInt("IAP_MAX_CONCURRENT", 20),
			BreakerMaxFailures: getEnvAsInt("IAP_BREAKER_MAX_FAILURES", 5),
			BreakerCooldown:    getEnvAsDuration("IAP_BREAKER_COOLDOWN", 30*time.Second),
		},
	}

	if cfg.IAP.Endpoint == "" {
		cfg.IAP.Endpoint = DefaultIAPEndpoint
		if cfg.IAP.TestMode {
			cfg.IAP.Endpoint = DefaultIAPTestEndpoint
		}
	}
	cfg.IAP.Endpoint = strings.TrimRight(cfg.IAP.Endpoint, "/")

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg AppConfig) validate() error {
	if u, err := url.Parse(cfg.IAP.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid config: IAP_ENDPOINT %q is not an absolute URL", cfg.IAP.Endpoint)
	}
	if cfg.IAP.Timeout <= 0 {
		return errors.New("invalid config: IAP_TIMEOUT must be greater than 0")
	}
	if cfg.IAP.TokenTTL <= 0 {
		return errors.New("invalid config: IAP_TOKEN_TTL must be greater than 0")
	}
	if cfg.IAP.MaxConcurrent <= 0 || cfg.IAP.MaxConcurrent > 200 {
		return errors.New("invalid config: IAP_MAX_CONCURRENT must be between 1 and 200")
	}
	if cfg.HTTP.RequestTimeout < cfg.IAP.Timeout {
		return errors.New("invalid config: HTTP_REQUEST_TIMEOUT cannot be shorter than IAP_TIMEOUT")
	}

	if cfg.Auth.Enabled {
		if cfg.Auth.IssuerURI == "" {
			return errors.New("invalid config: JWT_ISSUER_URI is required when AUTH_ENABLED=true")
		}
		if cfg.Auth.JWKSetURI == "" {
			return errors.New("invalid config: JWT_JWK_SET_URI is required when AUTH_ENABLED=true")
		}
	}
	return nil
}

// Address returns the HTTP listen address in host:port form.
func (h HTTPSettings) Address() string {
	return fmt.Sprintf(":%d", h.Port)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsCSV(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
