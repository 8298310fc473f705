// Package config loads runtime configuration from an optional .env file, an
// optional YAML file and the process environment, in that order of precedence
// (later sources win).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	PDF      PDFConfig      `yaml:"pdf"`
	Jobs     JobsConfig     `yaml:"jobs"`
	VIES     VIESConfig     `yaml:"vies"`
	CORS     CORSConfig     `yaml:"cors"`
	Locale   LocaleConfig   `yaml:"locale"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	AuditLogPath    string        `yaml:"audit_log_path" env:"AUDIT_LOG_PATH"`
	AuthRateLimit   int           `yaml:"auth_rate_limit" env:"AUTH_RATE_LIMIT"`
	AuthRateBurst   int           `yaml:"auth_rate_burst" env:"AUTH_RATE_BURST"`
}

type DatabaseConfig struct {
	DSN             string `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"JWT_TTL"`
	BcryptCost int           `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
	ScopeTTL   time.Duration `yaml:"scope_cache_ttl" env:"AUTH_SCOPE_CACHE_TTL"`
}

type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

type PDFConfig struct {
	FontDir string `yaml:"font_dir" env:"PDF_FONT_DIR"`
}

type JobsConfig struct {
	OverdueSchedule string `yaml:"overdue_schedule" env:"OVERDUE_SCHEDULE"`
	OverdueEnabled  bool   `yaml:"overdue_enabled" env:"OVERDUE_ENABLED"`
}

type VIESConfig struct {
	BaseURL string        `yaml:"base_url" env:"VIES_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"VIES_TIMEOUT"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CLIENT_URL"`
}

type LocaleConfig struct {
	Language   string `yaml:"language" env:"DEFAULT_LANGUAGE"`
	Timezone   string `yaml:"timezone" env:"TZ_NAME"`
	DateFormat string `yaml:"date_format" env:"DATE_FORMAT"`
	StrictEIK  bool   `yaml:"strict_eik" env:"STRICT_EIK"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AuthRateLimit:   5,
			AuthRateBurst:   10,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			AutoMigrate:     true,
		},
		Auth: AuthConfig{
			TokenTTL:   24 * time.Hour,
			BcryptCost: 10,
			ScopeTTL:   5 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Jobs:    JobsConfig{OverdueSchedule: "@hourly", OverdueEnabled: true},
		VIES: VIESConfig{
			BaseURL: "https://ec.europa.eu/taxation_customs/vies/rest-api",
			Timeout: 10 * time.Second,
		},
		CORS:   CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Locale: LocaleConfig{Language: "bg", Timezone: "Europe/Sofia", DateFormat: "DD.MM.YYYY"},
	}
}

// Load reads .env (when present), the YAML file named by CONFIG_FILE (when
// set) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return LoadFromPath(os.Getenv("CONFIG_FILE"))
}

// LoadFromPath loads defaults, overlays the YAML file at path (skipped when
// empty) and applies environment overrides.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that cannot be expressed as defaults.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	switch strings.ToLower(c.Locale.Language) {
	case "bg", "es", "en":
	default:
		return fmt.Errorf("unsupported default language %q", c.Locale.Language)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	return nil
}

// UseMemoryStore reports whether no database is configured.
func (c *Config) UseMemoryStore() bool {
	return strings.TrimSpace(c.Database.DSN) == ""
}
