// Package config handles application configuration and environment loading.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Notification sinks selectable with NOTIFY_SINK.
const (
	SinkLog   = "log"
	SinkInbox = "inbox"
	SinkKafka = "kafka"
)

// AuthConfig holds authentication and identity provider configuration.
type AuthConfig struct {
	IssuerURL string // OIDC issuer URL; enables go-oidc verification
	Audience  string // required audience (client id) when IssuerURL is set
	JWTSecret string // HS256 shared secret for local/dev tokens
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != ""
}

// Validate checks that the auth configuration is internally consistent.
func (a *AuthConfig) Validate() error {
	if a.IssuerURL == "" && a.JWTSecret == "" {
		return fmt.Errorf("at least one of AUTH_ISSUER_URL or JWT_SECRET must be set")
	}
	if a.IssuerURL != "" && a.Audience == "" {
		return fmt.Errorf("AUTH_AUDIENCE is required when AUTH_ISSUER_URL is set")
	}
	return nil
}

// NotifyConfig selects and tunes the notification sink.
type NotifyConfig struct {
	Sink             string        // log (default), inbox or kafka
	KafkaBrokers     []string      // required for the kafka sink
	KafkaTopicPrefix string        // prepended to membership.<transition>
	RedisAddr        string        // enables the Redis dedupe guard when set
	RedisDedupeTTL   time.Duration // dedupe marker lifetime (default 24h)
	RelaySchedule    string        // outbox relay cron spec (default "@every 30s")
}

// Config holds the configuration for the membership service.
type Config struct {
	DBPath        string // path to the SQLite database file
	ListenAddr    string // HTTP listen address (default ":8080")
	LogLevel      string // log level: debug, info, warn, error (default "info")
	Env           string // environment: "development" (default) or "production"
	PolicyFile    string // optional YAML membership policy
	TxMaxAttempts int    // transition attempts on serialization conflicts (default 5)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	Auth   AuthConfig
	Notify NotifyConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:     os.Getenv("DB_PATH"),
		ListenAddr: os.Getenv("LISTEN_ADDR"),
		LogLevel:   os.Getenv("LOG_LEVEL"),
		Env:        os.Getenv("ENV"),
		PolicyFile: os.Getenv("MEMBERSHIP_POLICY_FILE"),
		Auth: AuthConfig{
			IssuerURL: os.Getenv("AUTH_ISSUER_URL"),
			Audience:  os.Getenv("AUTH_AUDIENCE"),
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		Notify: NotifyConfig{
			Sink:             strings.ToLower(strings.TrimSpace(os.Getenv("NOTIFY_SINK"))),
			KafkaTopicPrefix: os.Getenv("KAFKA_TOPIC_PREFIX"),
			RedisAddr:        os.Getenv("REDIS_ADDR"),
			RelaySchedule:    os.Getenv("OUTBOX_RELAY_SCHEDULE"),
		},
	}

	if v := os.Getenv("MEMBERSHIP_TX_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("MEMBERSHIP_TX_MAX_ATTEMPTS must be a positive integer, got %q", v)
		}
		cfg.TxMaxAttempts = n
	}
	if v := os.Getenv("REDIS_DEDUPE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DEDUPE_TTL: %w", err)
		}
		cfg.Notify.RedisDedupeTTL = d
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Notify.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "membership.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.TxMaxAttempts == 0 {
		cfg.TxMaxAttempts = 5
	}
	if cfg.Notify.Sink == "" {
		cfg.Notify.Sink = SinkLog
	}
	if cfg.Notify.RedisDedupeTTL == 0 {
		cfg.Notify.RedisDedupeTTL = 24 * time.Hour
	}
	if cfg.Notify.RelaySchedule == "" {
		cfg.Notify.RelaySchedule = "@every 30s"
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	switch cfg.Notify.Sink {
	case SinkLog, SinkInbox:
	case SinkKafka:
		if len(cfg.Notify.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("KAFKA_BROKERS is required when NOTIFY_SINK=kafka")
		}
	default:
		return nil, fmt.Errorf("NOTIFY_SINK must be one of %s, %s, %s; got %q", SinkLog, SinkInbox, SinkKafka, cfg.Notify.Sink)
	}

	if err := cfg.Auth.Validate(); err != nil {
		if cfg.IsProduction() {
			return nil, err
		}
		cfg.Auth.JWTSecret = "dev-secret-change-in-production"
		cfg.Warnings = append(cfg.Warnings, "no identity provider configured, using insecure development JWT secret")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
