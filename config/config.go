package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config is built once at startup and passed to every component.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Session   SessionConfig   `mapstructure:"session"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Media     MediaConfig     `mapstructure:"media"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           string `mapstructure:"port"`
	Env            string `mapstructure:"env"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
	BodyLimitMB    int    `mapstructure:"body_limit_mb"`
}

// Production reports whether cookies must be marked secure.
func (s ServerConfig) Production() bool {
	env := strings.ToLower(strings.TrimSpace(s.Env))
	return env == "production" || env == "prod"
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns DATABASE_URL when set, otherwise a postgres keyword DSN.
func (d DatabaseConfig) DSN() string {
	if strings.TrimSpace(d.URL) != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// UpstreamConfig points at the external generation service.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SessionConfig struct {
	Secret     string        `mapstructure:"secret"`
	TTL        time.Duration `mapstructure:"ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

type RateLimitConfig struct {
	Max           int `mapstructure:"max"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type MediaConfig struct {
	CacheControl string `mapstructure:"cache_control"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// env var name per config key
var bindings = map[string]string{
	"server.port":               "PORT",
	"server.env":                "APP_ENV",
	"server.allowed_origins":    "ALLOWED_ORIGINS",
	"server.body_limit_mb":      "BODY_LIMIT_MB",
	"database.driver":           "DB_DRIVER",
	"database.url":              "DATABASE_URL",
	"database.host":             "DB_HOST",
	"database.port":             "DB_PORT",
	"database.user":             "DB_USER",
	"database.password":         "DB_PASSWORD",
	"database.name":             "DB_NAME",
	"database.sslmode":          "DB_SSLMODE",
	"upstream.base_url":         "GENERATION_SERVICE_URL",
	"upstream.api_key":          "GENERATION_API_KEY",
	"upstream.timeout":          "UPSTREAM_TIMEOUT",
	"session.secret":            "JWT_SECRET",
	"session.ttl":               "SESSION_TTL",
	"session.bcrypt_cost":       "BCRYPT_COST",
	"rate_limit.max":            "RATE_LIMIT_MAX",
	"rate_limit.window_seconds": "RATE_LIMIT_WINDOW_SECONDS",
	"media.cache_control":       "MEDIA_CACHE_CONTROL",
	"log.level":                 "LOG_LEVEL",
	"log.format":                "LOG_FORMAT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.allowed_origins", "*")
	v.SetDefault("server.body_limit_mb", 100)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("upstream.base_url", "http://localhost:8000")
	v.SetDefault("upstream.timeout", 30*time.Second)
	v.SetDefault("session.ttl", 7*24*time.Hour)
	v.SetDefault("session.bcrypt_cost", 12)
	v.SetDefault("rate_limit.max", 120)
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("media.cache_control", "public, max-age=3600")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
}

// Load reads .env (outside production) and the process environment.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// a missing .env is fine; real deployments inject env vars
		_ = godotenv.Load()
	}
	return LoadFrom(viper.New())
}

// LoadFrom builds a Config from v after registering defaults and env bindings.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Upstream.BaseURL = strings.TrimRight(strings.TrimSpace(c.Upstream.BaseURL), "/")
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Upstream.Timeout <= 0 {
		c.Upstream.Timeout = 30 * time.Second
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 7 * 24 * time.Hour
	}
	// bcrypt below 10 rounds is too cheap for interactive logins
	if c.Session.BcryptCost < 10 {
		c.Session.BcryptCost = 10
	}
	if c.Session.BcryptCost > bcrypt.MaxCost {
		c.Session.BcryptCost = bcrypt.MaxCost
	}
	if c.Server.BodyLimitMB <= 0 {
		c.Server.BodyLimitMB = 100
	}
	// RATE_LIMIT_MAX=0 turns the limiter off
	if c.RateLimit.Max < 0 {
		c.RateLimit.Max = 0
	}
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if strings.TrimSpace(c.Media.CacheControl) == "" {
		c.Media.CacheControl = "public, max-age=3600"
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Session.Secret) == "" {
		return errors.New("JWT secret not configured (set JWT_SECRET)")
	}
	if c.Upstream.BaseURL == "" {
		return errors.New("GENERATION_SERVICE_URL is empty")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}
