// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

// Package config loads katarogu configuration from defaults, an optional
// YAML file, command-line flags and a few environment variables, in that
// order of increasing precedence.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/katarogu/katarogu/internal/actions"
	"github.com/katarogu/katarogu/internal/auth"
	"github.com/katarogu/katarogu/internal/auth/redis"
	"github.com/katarogu/katarogu/internal/logging"
	"github.com/katarogu/katarogu/internal/mail"
	"github.com/katarogu/katarogu/internal/store"
)

// Environment variables that supply secrets left out of the file.
const (
	EnvDatabaseURL  = "DATABASE_URL"
	EnvSMTPPassword = "SMTP_PASSWORD"
)

// Verification code stores.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Mail drivers.
const (
	MailSMTP = "smtp"
	MailLog  = "log"
)

// Config is the full process configuration.
type Config struct {
	// Development relaxes cookie security for local http use.
	Development  bool               `koanf:"development"`
	Server       ServerConfig       `koanf:"server"`
	Metrics      MetricsConfig      `koanf:"metrics"`
	Log          LogConfig          `koanf:"log"`
	Database     DatabaseConfig     `koanf:"database"`
	Session      SessionConfig      `koanf:"session"`
	Hashing      HashingConfig      `koanf:"hashing"`
	Verification VerificationConfig `koanf:"verification"`
	Mail         MailConfig         `koanf:"mail"`
}

// ServerConfig configures the site listener.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig selects log output.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DatabaseConfig locates PostgreSQL.
type DatabaseConfig struct {
	URL              string        `koanf:"url"`
	ConnectAttempts  uint64        `koanf:"connect_attempts"`
	ConnectBaseDelay time.Duration `koanf:"connect_base_delay"`
	ConnectMaxDelay  time.Duration `koanf:"connect_max_delay"`
}

// SessionConfig tunes sessions and the expiry sweeper.
type SessionConfig struct {
	CookieName  string        `koanf:"cookie_name"`
	Lifetime    time.Duration `koanf:"lifetime"`
	RenewWithin time.Duration `koanf:"renew_within"`
	// SweepInterval of 0 disables the background sweeper.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// HashingConfig sets argon2id cost and concurrency.
type HashingConfig struct {
	Memory        uint32 `koanf:"memory"`
	Time          uint32 `koanf:"time"`
	Parallelism   uint8  `koanf:"parallelism"`
	MaxConcurrent int64  `koanf:"max_concurrent"`
}

// VerificationConfig configures email verification codes.
type VerificationConfig struct {
	Store          string        `koanf:"store"`
	CodeTTL        time.Duration `koanf:"code_ttl"`
	SendOnRegister bool          `koanf:"send_on_register"`
	Redis          RedisConfig   `koanf:"redis"`
}

// RedisConfig locates Redis when it stores verification codes.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// MailConfig selects how verification codes are delivered.
type MailConfig struct {
	Driver string     `koanf:"driver"`
	SMTP   SMTPConfig `koanf:"smtp"`
}

// SMTPConfig configures the SMTP relay.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	// Timeout bounds one delivery. Zero selects mail.DefaultSendTimeout.
	Timeout time.Duration `koanf:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	session := auth.DefaultSessionConfig()
	params := auth.DefaultArgon2Params()
	connect := store.DefaultConnectConfig()

	return Config{
		Server: ServerConfig{
			Addr:              "127.0.0.1:8080",
			ReadHeaderTimeout: 10 * time.Second,
			RequestTimeout:    30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
		Database: DatabaseConfig{
			ConnectAttempts:  connect.Attempts,
			ConnectBaseDelay: connect.BaseDelay,
			ConnectMaxDelay:  connect.MaxDelay,
		},
		Session: SessionConfig{
			CookieName:    session.CookieName,
			Lifetime:      session.Lifetime,
			RenewWithin:   session.RenewWithin,
			SweepInterval: auth.DefaultSweepInterval,
		},
		Hashing: HashingConfig{
			Memory:        params.Memory,
			Time:          params.Time,
			Parallelism:   params.Parallelism,
			MaxConcurrent: actions.DefaultMaxConcurrentHashes,
		},
		Verification: VerificationConfig{
			Store:          StorePostgres,
			CodeTTL:        auth.DefaultCodeTTL,
			SendOnRegister: true,
			Redis:          RedisConfig{Addr: "127.0.0.1:6379"},
		},
		Mail: MailConfig{
			Driver: MailLog,
			SMTP:   SMTPConfig{Port: 587},
		},
	}
}

// FlagKeys maps command-line flag names to configuration keys. Only flags
// listed here and explicitly set override the file.
var FlagKeys = map[string]string{
	"addr":         "server.addr",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"database-url": "database.url",
	"development":  "development",
}

// Load builds the configuration. path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	return load(path, flags, os.Getenv)
}

func load(path string, flags *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = getenv(EnvDatabaseURL)
	}
	if cfg.Mail.SMTP.Password == "" {
		cfg.Mail.SMTP.Password = getenv(EnvSMTPPassword)
	}

	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return invalid("server.addr", c.Server.Addr, "server address is required")
	}
	if c.Server.RequestTimeout <= 0 {
		return invalid("server.request_timeout", c.Server.RequestTimeout, "request timeout must be positive")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", c.Log.Format, "log format must be 'json' or 'text'")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalidFrom("log.level", err)
	}
	if c.Database.URL == "" {
		return invalid("database.url", "", "database url is required (set database.url or "+EnvDatabaseURL+")")
	}
	if c.Database.ConnectAttempts == 0 {
		return invalid("database.connect_attempts", c.Database.ConnectAttempts, "at least one connect attempt is required")
	}
	if err := c.SessionConfig().Validate(); err != nil {
		return invalidFrom("session", err)
	}
	if c.Session.SweepInterval < 0 {
		return invalid("session.sweep_interval", c.Session.SweepInterval, "sweep interval cannot be negative")
	}
	if err := c.Argon2Params().Validate(); err != nil {
		return invalidFrom("hashing", err)
	}
	if c.Hashing.MaxConcurrent < 1 {
		return invalid("hashing.max_concurrent", c.Hashing.MaxConcurrent, "at least one concurrent hash is required")
	}
	if err := c.validateVerification(); err != nil {
		return err
	}
	return c.validateMail()
}

func (c *Config) validateVerification() error {
	if c.Verification.CodeTTL <= 0 {
		return invalid("verification.code_ttl", c.Verification.CodeTTL, "code ttl must be positive")
	}
	switch c.Verification.Store {
	case StorePostgres:
	case StoreRedis:
		if c.Verification.Redis.Addr == "" {
			return invalid("verification.redis.addr", "", "redis address is required for the redis store")
		}
	default:
		return invalid("verification.store", c.Verification.Store, "verification store must be 'postgres' or 'redis'")
	}
	return nil
}

func (c *Config) validateMail() error {
	switch c.Mail.Driver {
	case MailLog:
		return nil
	case MailSMTP:
		if _, err := mail.NewSMTPSender(c.SMTPConfig(), c.Verification.CodeTTL); err != nil {
			return invalidFrom("mail.smtp", err)
		}
		return nil
	default:
		return invalid("mail.driver", c.Mail.Driver, "mail driver must be 'smtp' or 'log'")
	}
}

func invalid(key string, value any, msg string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).With("value", value).Errorf("%s", msg)
}

// invalidFrom reports a section rejected by its own validator as
// CONFIG_INVALID, keeping the section's code as cause_code.
func invalidFrom(key string, err error) error {
	builder := oops.Code("CONFIG_INVALID").With("key", key)
	if oopsErr, ok := oops.AsOops(err); ok {
		builder = builder.With("cause_code", oopsErr.Code())
	}
	return builder.Errorf("%s: %s", key, err.Error())
}

// SessionConfig returns the session manager configuration.
func (c *Config) SessionConfig() auth.SessionConfig {
	return auth.SessionConfig{
		CookieName:  c.Session.CookieName,
		Lifetime:    c.Session.Lifetime,
		RenewWithin: c.Session.RenewWithin,
		Secure:      !c.Development,
	}
}

// Argon2Params returns the hashing parameters.
func (c *Config) Argon2Params() auth.Argon2Params {
	params := auth.DefaultArgon2Params()
	params.Memory = c.Hashing.Memory
	params.Time = c.Hashing.Time
	params.Parallelism = c.Hashing.Parallelism
	return params
}

// ActionsConfig returns the action service configuration.
func (c *Config) ActionsConfig() actions.Config {
	return actions.Config{
		SendCodeOnRegister:  c.Verification.SendOnRegister,
		MaxConcurrentHashes: c.Hashing.MaxConcurrent,
	}
}

// ConnectConfig returns the database connect retry policy.
func (c *Config) ConnectConfig() store.ConnectConfig {
	cfg := store.DefaultConnectConfig()
	cfg.Attempts = c.Database.ConnectAttempts
	cfg.BaseDelay = c.Database.ConnectBaseDelay
	cfg.MaxDelay = c.Database.ConnectMaxDelay
	return cfg
}

// RedisConfig returns the verification Redis settings.
func (c *Config) RedisConfig() redis.Config {
	return redis.Config{
		Addr:     c.Verification.Redis.Addr,
		Password: c.Verification.Redis.Password,
		DB:       c.Verification.Redis.DB,
	}
}

// SMTPConfig returns the SMTP sender settings.
func (c *Config) SMTPConfig() mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:     c.Mail.SMTP.Host,
		Port:     c.Mail.SMTP.Port,
		Username: c.Mail.SMTP.Username,
		Password: c.Mail.SMTP.Password,
		From:     c.Mail.SMTP.From,
		Timeout:  c.Mail.SMTP.Timeout,
	}
}
