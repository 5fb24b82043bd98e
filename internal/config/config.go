// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

// Package config loads ProfileHub configuration from defaults, a YAML file,
// the environment and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/profilehub/profilehub/internal/auth"
	"github.com/profilehub/profilehub/internal/xdg"
)

// EnvPrefix is the prefix of environment variables read into the config.
// Nested keys use a double underscore: PROFILEHUB_DATABASE__URL.
const EnvPrefix = "PROFILEHUB_"

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// MinSessionSecretLength is the minimum accepted session signing key length.
const MinSessionSecretLength = 32

// Config is the complete runtime configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Auth     AuthConfig     `koanf:"auth"`
}

// HTTPConfig configures the web server.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
	// Production enables the HTTPS redirect and Secure cookies.
	Production bool `koanf:"production"`
	// StaticDir serves assets from disk instead of the embedded copy.
	StaticDir string `koanf:"static_dir"`
}

// MetricsConfig configures the metrics and health server. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DatabaseConfig selects and configures the user store.
type DatabaseConfig struct {
	Driver         string        `koanf:"driver"`
	URL            string        `koanf:"url"`
	SQLitePath     string        `koanf:"sqlite_path"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// SessionConfig configures the session cookie.
type SessionConfig struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
}

// AuthConfig configures password policy and hashing cost.
type AuthConfig struct {
	MinPasswordLength  int          `koanf:"min_password_length"`
	MinPasswordEntropy float64      `koanf:"min_password_entropy"`
	Argon2             Argon2Config `koanf:"argon2"`
}

// Argon2Config holds the argon2id cost parameters.
type Argon2Config struct {
	Time      uint32 `koanf:"time"`
	MemoryKiB uint32 `koanf:"memory_kib"`
	Threads   uint8  `koanf:"threads"`
}

// HasherParams converts the config into auth.HasherParams.
func (c Argon2Config) HasherParams() auth.HasherParams {
	return auth.HasherParams{Time: c.Time, MemoryKiB: c.MemoryKiB, Threads: c.Threads}
}

// PasswordPolicy converts the config into an auth.PasswordPolicy.
func (c AuthConfig) PasswordPolicy() auth.PasswordPolicy {
	return auth.PasswordPolicy{MinLength: c.MinPasswordLength, MinEntropyBits: c.MinPasswordEntropy}
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	hp := auth.DefaultHasherParams()
	return map[string]any{
		"http.addr":                 "127.0.0.1:3000",
		"http.production":           false,
		"http.static_dir":           "",
		"metrics.addr":              "127.0.0.1:9100",
		"log.format":                "json",
		"log.level":                 "info",
		"database.driver":           DriverSQLite,
		"database.url":              "",
		"database.sqlite_path":      "",
		"database.connect_timeout":  "30s",
		"session.secret":            "",
		"session.ttl":               "24h",
		"auth.min_password_length":  auth.DefaultPasswordPolicy().MinLength,
		"auth.min_password_entropy": 0.0,
		"auth.argon2.time":          hp.Time,
		"auth.argon2.memory_kib":    hp.MemoryKiB,
		"auth.argon2.threads":       hp.Threads,
	}
}

// flagKeys maps command-line flag names to config keys. Flags not listed
// here are command options, not configuration.
var flagKeys = map[string]string{
	"log-format":      "log.format",
	"log-level":       "log.level",
	"addr":            "http.addr",
	"metrics-addr":    "metrics.addr",
	"production":      "http.production",
	"database-driver": "database.driver",
	"database-url":    "database.url",
	"sqlite-path":     "database.sqlite_path",
}

// Options controls where Load reads from.
type Options struct {
	// File is an explicit config file. It must exist when set. When empty,
	// the XDG config file is read if present.
	File string
	// DotEnv is a .env file loaded into the process environment before the
	// environment is read. Missing files are ignored.
	DotEnv string
	// Flags are applied last. Only flags named in flagKeys are read.
	Flags *pflag.FlagSet
}

// Load builds the configuration. It does not validate it.
func Load(opts Options) (*Config, error) {
	if opts.DotEnv != "" {
		if err := godotenv.Load(opts.DotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_DOTENV_FAILED").With("path", opts.DotEnv).Wrap(err)
		}
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	path, required := opts.File, true
	if path == "" {
		required = false
		if p, err := xdg.ConfigFile(); err == nil {
			path = p
		}
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil || required {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").
					With("source", "file").
					With("path", path).
					Wrap(err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal config").Wrap(err)
	}
	return &cfg, nil
}

// envKey turns PROFILEHUB_DATABASE__SQLITE_PATH into database.sqlite_path.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks that the configuration is usable by the serve command.
func (c *Config) Validate() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "http.addr").Errorf("http.addr is required")
	}
	if err := c.ValidateLog(); err != nil {
		return err
	}
	if len(c.Session.Secret) < MinSessionSecretLength {
		return oops.Code("CONFIG_INVALID").
			With("key", "session.secret").
			Errorf("session.secret must be at least %d characters", MinSessionSecretLength)
	}
	if c.Session.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").With("key", "session.ttl").Errorf("session.ttl must be positive")
	}
	if c.Auth.MinPasswordLength < 1 || c.Auth.MinPasswordLength > auth.MaxPasswordLength {
		return oops.Code("CONFIG_INVALID").
			With("key", "auth.min_password_length").
			Errorf("auth.min_password_length must be between 1 and %d", auth.MaxPasswordLength)
	}
	if c.Auth.MinPasswordEntropy < 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "auth.min_password_entropy").
			Errorf("auth.min_password_entropy must not be negative")
	}
	if err := c.Auth.Argon2.HasherParams().Validate(); err != nil {
		return oops.With("key", "auth.argon2").Wrap(err)
	}
	return nil
}

// ValidateLog checks the log settings. Every command needs them.
func (c *Config) ValidateLog() error {
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("key", "log.format").
			Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return oops.Code("CONFIG_INVALID").
			With("key", "log.level").
			Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	return nil
}

// ValidateDatabase checks the database settings. Commands that only touch
// the store need nothing else.
func (c *Config) ValidateDatabase() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return oops.Code("CONFIG_INVALID").
				With("key", "database.url").
				Errorf("database.url is required for the postgres driver")
		}
	case DriverSQLite:
	default:
		return oops.Code("CONFIG_INVALID").
			With("key", "database.driver").
			Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.Database.ConnectTimeout < 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.connect_timeout").
			Errorf("database.connect_timeout must not be negative")
	}
	return nil
}

// SQLitePath returns the configured SQLite path, defaulting to the XDG
// data directory.
func (c *Config) SQLitePath() (string, error) {
	if c.Database.SQLitePath != "" {
		return c.Database.SQLitePath, nil
	}
	return xdg.DatabaseFile()
}
