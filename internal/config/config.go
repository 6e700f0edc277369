package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration required by the API process.
// All values come from env (or an env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig      `envconfig:"APP"`
	DB       DBConfig       `envconfig:"DB"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Auth     AuthConfig     `envconfig:"JWT"`
	Twilio   TwilioConfig   `envconfig:"TWILIO"`
	HangUpBy HangUpByConfig `envconfig:"HANGUPBY"`
}

// Keys are derived from field names (split_words) under each section prefix,
// e.g. App.APIKey reads APP_API_KEY.
type AppConfig struct {
	Env  string `default:"local"`
	Port int    `default:"8080"`

	// LogLevel overrides the env default (debug, info, warn, error).
	LogLevel string `split_words:"true"`

	// APIKey guards token issuance for plugin sessions.
	APIKey string `split_words:"true"`

	// CORSOrigins lists the browser origins allowed to call the API (the Flex UI host).
	CORSOrigins []string `split_words:"true" default:"https://flex.twilio.com"`
}

// DBConfig is optional: with no host, audit events stay in memory.
type DBConfig struct {
	Host     string
	Port     int `default:"5432"`
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string `envconfig:"SSLMODE"`
}

// RedisConfig is optional: with no host, the attribution store and wrap-up
// claims are process-local.
type RedisConfig struct {
	Host     string
	Port     int `default:"6379"`
	Password string
	DB       int
}

type AuthConfig struct {
	Secret     string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration `split_words:"true"`
	RefreshTTL time.Duration `split_words:"true"`
}

type TwilioConfig struct {
	AccountSID   string `split_words:"true"`
	AuthToken    string `split_words:"true"`
	WorkspaceSID string `split_words:"true"`

	APIBaseURL        string `split_words:"true" default:"https://api.twilio.com"`
	TaskRouterBaseURL string `split_words:"true" default:"https://taskrouter.twilio.com"`

	// WebhookURL is the public callback URL configured on the workspace.
	// Signatures are computed over it, so it must match exactly.
	WebhookURL string `split_words:"true"`

	HTTPTimeout time.Duration `split_words:"true" default:"10s"`
}

type HangUpByConfig struct {
	StoreTTL time.Duration `split_words:"true" default:"24h"`
	DedupTTL time.Duration `split_words:"true" default:"24h"`
	Workers  int           `default:"8"`

	// WebhookGrace is how long a TaskRouter wrap-up waits for the desktop's own report.
	WebhookGrace time.Duration `split_words:"true" default:"30s"`
}

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("failed to load env: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// applyDefaults fills values whose default depends on other settings.
func (c *Config) applyDefaults() {
	c.App.Env = strings.TrimSpace(c.App.Env)
	if c.DB.Host != "" && strings.TrimSpace(c.DB.SSLMode) == "" && !c.IsProduction() {
		// Local-friendly default; production must be explicit.
		c.DB.SSLMode = "disable"
	}
	if c.Auth.AccessTTL <= 0 {
		c.Auth.AccessTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTTL <= 0 {
		c.Auth.RefreshTTL = 30 * 24 * time.Hour
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if len(c.App.CORSOrigins) == 0 {
		errs = append(errs, errors.New("APP_CORS_ORIGINS must list at least one origin"))
	}
	if c.App.APIKey == "" && (c.IsProduction() || c.App.Env == "staging") {
		errs = append(errs, fmt.Errorf("APP_API_KEY is required in %s", c.App.Env))
	}

	if c.HasDB() {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.SSLMode == "" {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else if !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.HasRedis() {
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
		if c.Redis.DB < 0 {
			errs = append(errs, fmt.Errorf("REDIS_DB must be >= 0, got %d", c.Redis.DB))
		}
	}

	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.Issuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.Audience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if !strings.HasPrefix(c.Twilio.AccountSID, "AC") {
		errs = append(errs, fmt.Errorf("TWILIO_ACCOUNT_SID must be an account sid (AC...), got %q", c.Twilio.AccountSID))
	}
	if c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required"))
	}
	if !strings.HasPrefix(c.Twilio.WorkspaceSID, "WS") {
		errs = append(errs, fmt.Errorf("TWILIO_WORKSPACE_SID must be a workspace sid (WS...), got %q", c.Twilio.WorkspaceSID))
	}
	if c.Twilio.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("TWILIO_HTTP_TIMEOUT must be > 0, got %s", c.Twilio.HTTPTimeout))
	}

	if c.HangUpBy.StoreTTL <= 0 {
		errs = append(errs, fmt.Errorf("HANGUPBY_STORE_TTL must be > 0, got %s", c.HangUpBy.StoreTTL))
	}
	if c.HangUpBy.DedupTTL <= 0 {
		errs = append(errs, fmt.Errorf("HANGUPBY_DEDUP_TTL must be > 0, got %s", c.HangUpBy.DedupTTL))
	}
	if c.HangUpBy.WebhookGrace < 0 {
		errs = append(errs, fmt.Errorf("HANGUPBY_WEBHOOK_GRACE must be >= 0, got %s", c.HangUpBy.WebhookGrace))
	}
	if c.HangUpBy.Workers <= 0 {
		errs = append(errs, fmt.Errorf("HANGUPBY_WORKERS must be > 0, got %d", c.HangUpBy.Workers))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HasDB() bool { return c.DB.Host != "" }

func (c Config) HasRedis() bool { return c.Redis.Host != "" }

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
