// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katarogu/katarogu/pkg/errutil"
)

func noEnv(string) string { return "" }

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "katarogu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validConfig() Config {
	cfg := Default()
	cfg.Database.URL = "postgres://katarogu@localhost/katarogu"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "auth_session", cfg.Session.CookieName)
	assert.Equal(t, 720*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, 360*time.Hour, cfg.Session.RenewWithin)
	assert.Equal(t, time.Hour, cfg.Session.SweepInterval)
	assert.Equal(t, 10*time.Minute, cfg.Verification.CodeTTL)
	assert.Equal(t, StorePostgres, cfg.Verification.Store)
	assert.Equal(t, MailLog, cfg.Mail.Driver)
	assert.Equal(t, uint32(19456), cfg.Hashing.Memory)
	assert.Equal(t, int64(4), cfg.Hashing.MaxConcurrent)
	assert.True(t, cfg.SessionConfig().Secure)
}

func TestLoad_NoSources(t *testing.T) {
	cfg, err := load("", nil, noEnv)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
development: true
server:
  addr: ":8081"
log:
  format: text
session:
  lifetime: 48h
  renew_within: 12h
verification:
  store: redis
  code_ttl: 15m
  redis:
    addr: redis:6379
    db: 2
mail:
  driver: smtp
  smtp:
    host: smtp.example.com
    from: noreply@example.com
    timeout: 5s
`)

	cfg, err := load(path, nil, noEnv)
	require.NoError(t, err)

	assert.True(t, cfg.Development)
	assert.False(t, cfg.SessionConfig().Secure)
	assert.Equal(t, ":8081", cfg.Server.Addr)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level, "unset keys keep their defaults")
	assert.Equal(t, 48*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, 12*time.Hour, cfg.Session.RenewWithin)
	assert.Equal(t, "auth_session", cfg.Session.CookieName)
	assert.Equal(t, StoreRedis, cfg.Verification.Store)
	assert.Equal(t, 15*time.Minute, cfg.Verification.CodeTTL)
	assert.Equal(t, 2, cfg.RedisConfig().DB)
	assert.Equal(t, 587, cfg.SMTPConfig().Port)
	assert.Equal(t, "smtp.example.com", cfg.SMTPConfig().Host)
	assert.Equal(t, 5*time.Second, cfg.SMTPConfig().Timeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "absent.yaml"), nil, noEnv)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeFile(t, "server: [unclosed")
	_, err := load(path, nil, noEnv)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "server:\n  addr: \":8081\"\nlog:\n  format: text\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", "127.0.0.1:8080", "")
	flags.String("log-format", "json", "")
	flags.Bool("development", false, "")
	flags.String("unrelated", "x", "")
	require.NoError(t, flags.Parse([]string{"--addr", ":9000", "--development", "--unrelated", "y"}))

	cfg, err := load(path, flags, noEnv)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "text", cfg.Log.Format, "unchanged flags do not override the file")
	assert.True(t, cfg.Development)
}

func TestLoad_EnvironmentSecrets(t *testing.T) {
	env := map[string]string{
		EnvDatabaseURL:  "postgres://env@localhost/katarogu",
		EnvSMTPPassword: "from-env",
	}
	getenv := func(key string) string { return env[key] }

	cfg, err := load("", nil, getenv)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env@localhost/katarogu", cfg.Database.URL)
	assert.Equal(t, "from-env", cfg.Mail.SMTP.Password)

	path := writeFile(t, "database:\n  url: postgres://file@localhost/katarogu\n")
	cfg, err = load(path, nil, getenv)
	require.NoError(t, err)
	assert.Equal(t, "postgres://file@localhost/katarogu", cfg.Database.URL, "file wins over environment")
}

func TestValidate(t *testing.T) {
	require.NoError(t, func() error { cfg := validConfig(); return cfg.Validate() }())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing server addr", func(c *Config) { c.Server.Addr = "" }},
		{"zero request timeout", func(c *Config) { c.Server.RequestTimeout = 0 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"missing database url", func(c *Config) { c.Database.URL = "" }},
		{"no connect attempts", func(c *Config) { c.Database.ConnectAttempts = 0 }},
		{"renew window beyond lifetime", func(c *Config) { c.Session.RenewWithin = 2 * c.Session.Lifetime }},
		{"negative sweep interval", func(c *Config) { c.Session.SweepInterval = -time.Second }},
		{"weak argon2 memory", func(c *Config) { c.Hashing.Memory = 1024 }},
		{"no hash slots", func(c *Config) { c.Hashing.MaxConcurrent = 0 }},
		{"zero code ttl", func(c *Config) { c.Verification.CodeTTL = 0 }},
		{"unknown store", func(c *Config) { c.Verification.Store = "memcached" }},
		{"redis without addr", func(c *Config) {
			c.Verification.Store = StoreRedis
			c.Verification.Redis.Addr = ""
		}},
		{"unknown mail driver", func(c *Config) { c.Mail.Driver = "pigeon" }},
		{"smtp without host", func(c *Config) { c.Mail.Driver = MailSMTP }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			errutil.AssertErrorCode(t, cfg.Validate(), "CONFIG_INVALID")
		})
	}
}

func TestValidate_SectionErrorsKeepCause(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		key       string
		causeCode string
	}{
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level", "LOG_INVALID_LEVEL"},
		{"session", func(c *Config) { c.Session.RenewWithin = 2 * c.Session.Lifetime }, "session", "SESSION_INVALID_CONFIG"},
		{"hashing", func(c *Config) { c.Hashing.Memory = 1024 }, "hashing", "AUTH_WEAK_HASH_PARAMS"},
		{"smtp", func(c *Config) { c.Mail.Driver = MailSMTP }, "mail.smtp", "MAIL_INVALID_CONFIG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "key", tt.key)
			errutil.AssertErrorContext(t, err, "cause_code", tt.causeCode)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate_SweeperDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Session.SweepInterval = 0
	assert.NoError(t, cfg.Validate())
}

func TestConversions(t *testing.T) {
	cfg := validConfig()
	cfg.Hashing.Memory = 65536
	cfg.Verification.SendOnRegister = false

	assert.Equal(t, uint32(65536), cfg.Argon2Params().Memory)
	assert.Equal(t, uint32(32), cfg.Argon2Params().KeyLen)
	assert.False(t, cfg.ActionsConfig().SendCodeOnRegister)
	assert.Equal(t, int64(4), cfg.ActionsConfig().MaxConcurrentHashes)
	assert.Equal(t, cfg.Database.ConnectAttempts, cfg.ConnectConfig().Attempts)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisConfig().Addr)
}
