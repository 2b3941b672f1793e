// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads the engine configuration from a YAML file,
// AUTHENGINE_ environment variables and command-line flags, in that order of
// precedence from lowest to highest.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/authengine/internal/auth"
	"github.com/holomush/authengine/internal/token"
	"github.com/holomush/authengine/internal/xdg"
)

// EnvPrefix prefixes every environment override. Nested keys are separated
// by a double underscore: AUTHENGINE_DATABASE__URL sets database.url.
const EnvPrefix = "AUTHENGINE_"

// Config is the validated engine configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Tokens   TokensConfig   `koanf:"tokens"`
	Sessions SessionsConfig `koanf:"sessions"`
	Hasher   HasherConfig   `koanf:"hasher"`
	Lockout  LockoutConfig  `koanf:"lockout"`
	Guard    GuardConfig    `koanf:"guard"`
	Sweep    SweepConfig    `koanf:"sweep"`
}

// ServerConfig holds listen addresses and HTTP timeouts.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	MetricsAddr       string        `koanf:"metrics_addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig selects the log format and level.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Credential store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseConfig selects the credential store and configures the PostgreSQL
// pool. The memory driver keeps everything in process and loses it on exit.
type DatabaseConfig struct {
	Driver         string `koanf:"driver"`
	URL            string `koanf:"url"`
	MaxConns       int32  `koanf:"max_conns"`
	MinConns       int32  `koanf:"min_conns"`
	ConnectRetries uint64 `koanf:"connect_retries"`
	AutoMigrate    bool   `koanf:"auto_migrate"`
}

// RedisConfig enables the Redis single-use ledger when Addr is set.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

// Enabled reports whether the Redis ledger is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// TokenConfig is the secret and lifespan of one token type.
type TokenConfig struct {
	Secret   string        `koanf:"secret"`
	Lifespan time.Duration `koanf:"lifespan"`
}

// TokensConfig has one entry per token type.
type TokensConfig struct {
	Access        TokenConfig `koanf:"access"`
	Refresh       TokenConfig `koanf:"refresh"`
	EmailVerify   TokenConfig `koanf:"email_verify"`
	EmailChange   TokenConfig `koanf:"email_change"`
	ResetPassword TokenConfig `koanf:"reset_password"`
	DeviceVerify  TokenConfig `koanf:"device_verify"`
	UserDeletion  TokenConfig `koanf:"user_deletion"`
}

func (t TokensConfig) byType() map[token.Type]TokenConfig {
	return map[token.Type]TokenConfig{
		token.Access:        t.Access,
		token.Refresh:       t.Refresh,
		token.EmailVerify:   t.EmailVerify,
		token.EmailChange:   t.EmailChange,
		token.ResetPassword: t.ResetPassword,
		token.DeviceVerify:  t.DeviceVerify,
		token.UserDeletion:  t.UserDeletion,
	}
}

// SessionsConfig shapes generated session ids.
type SessionsConfig struct {
	IDAlphabet string `koanf:"id_alphabet"`
	IDLength   int    `koanf:"id_length"`
}

// HasherConfig holds the argon2id cost parameters.
type HasherConfig struct {
	Time      uint32 `koanf:"time"`
	MemoryKiB uint32 `koanf:"memory_kib"`
	Threads   uint8  `koanf:"threads"`
	SaltLen   uint32 `koanf:"salt_len"`
	KeyLen    uint32 `koanf:"key_len"`
}

// LockoutConfig configures login lockout.
type LockoutConfig struct {
	Threshold int           `koanf:"threshold"`
	Duration  time.Duration `koanf:"duration"`
}

// GuardConfig sizes the redemption cache.
type GuardConfig struct {
	CacheCapacity uint64 `koanf:"cache_capacity"`
}

// SweepConfig configures the maintenance sweeper.
type SweepConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// Default returns the configuration used for every key left unset. Token
// secrets have no default.
func Default() Config {
	params := auth.DefaultArgon2Params()
	lockout := auth.DefaultLockoutPolicy()
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			MetricsAddr:       "127.0.0.1:9100",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Log:      LogConfig{Format: "json", Level: "info"},
		Database: DatabaseConfig{Driver: DriverPostgres, ConnectRetries: 5},
		Redis:    RedisConfig{Prefix: "authengine"},
		Tokens: TokensConfig{
			Access:        TokenConfig{Lifespan: 15 * time.Minute},
			Refresh:       TokenConfig{Lifespan: 30 * 24 * time.Hour},
			EmailVerify:   TokenConfig{Lifespan: 24 * time.Hour},
			EmailChange:   TokenConfig{Lifespan: time.Hour},
			ResetPassword: TokenConfig{Lifespan: time.Hour},
			DeviceVerify:  TokenConfig{Lifespan: auth.DeviceChallengeTTL},
			UserDeletion:  TokenConfig{Lifespan: time.Hour},
		},
		Sessions: SessionsConfig{
			IDAlphabet: auth.DefaultSessionIDAlphabet,
			IDLength:   auth.DefaultSessionIDLength,
		},
		Hasher: HasherConfig{
			Time:      params.Time,
			MemoryKiB: params.Memory,
			Threads:   params.Threads,
			SaltLen:   params.SaltLen,
			KeyLen:    params.KeyLen,
		},
		Lockout: LockoutConfig{Threshold: lockout.Threshold, Duration: lockout.Duration},
		Guard:   GuardConfig{CacheCapacity: auth.DefaultGuardCacheCapacity},
		Sweep:   SweepConfig{Interval: auth.DefaultSweepInterval},
	}
}

// RegisterFlags adds the flags Load understands. Flag names are config keys.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("server.addr", "", "HTTP listen address")
	fs.String("server.metrics_addr", "", "metrics/health listen address (empty keeps the configured value)")
	fs.String("log.format", "", "log format (json or text)")
	fs.String("log.level", "", "log level (debug, info, warn, error)")
	fs.String("database.driver", "", "credential store (postgres or memory)")
	fs.String("database.url", "", "PostgreSQL connection URL")
	fs.String("redis.addr", "", "Redis address for the single-use ledger")
}

// Load reads the configuration and validates it.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg, err := Read(fs)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read layers the file named by the --config flag (or
// $XDG_CONFIG_HOME/authengine/config.yaml when present), environment
// variables and explicitly set flags over Default without validating the
// result. Commands that need only part of the configuration use it.
func Read(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path := configPath(fs); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, changedFlag), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	return &cfg, nil
}

// configPath is the --config flag, or the XDG config file when one exists.
func configPath(fs *pflag.FlagSet) string {
	if fs != nil {
		if path, err := fs.GetString("config"); err == nil && path != "" {
			return path
		}
	}
	if path, ok := xdg.ConfigFile(); ok {
		return path
	}
	return ""
}

// changedFlag keeps only flags set on the command line so empty flag
// defaults never mask file, env or built-in values.
func changedFlag(f *pflag.Flag) (string, interface{}) {
	if !f.Changed || f.Name == "config" {
		return "", nil
	}
	return f.Name, f.Value.String()
}

func envKey(name string) string {
	name = strings.TrimPrefix(name, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(name), "__", ".")
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	invalid := func(key, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	if c.Server.Addr == "" {
		return invalid("server.addr", "server.addr is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return invalid("database.url", "database.url is required")
		}
	case DriverMemory:
	default:
		return invalid("database.driver", "database.driver must be %q or %q, got %q",
			DriverPostgres, DriverMemory, c.Database.Driver)
	}
	if c.Database.MinConns < 0 || c.Database.MaxConns < 0 {
		return invalid("database.max_conns", "connection limits must not be negative")
	}
	if c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
		return invalid("database.min_conns", "min_conns %d exceeds max_conns %d", c.Database.MinConns, c.Database.MaxConns)
	}
	if _, err := auth.NewIDGenerator(c.Sessions.IDAlphabet, c.Sessions.IDLength); err != nil {
		return invalid("sessions", "sessions: %v", err)
	}
	if _, err := auth.NewArgon2idHasher(c.HasherParams()); err != nil {
		return invalid("hasher", "hasher: %v", err)
	}
	if c.Lockout.Threshold <= 0 || c.Lockout.Duration <= 0 {
		return invalid("lockout", "lockout threshold and duration must be positive")
	}
	if c.Sweep.Interval <= 0 {
		return invalid("sweep.interval", "sweep.interval must be positive")
	}
	if _, err := token.NewCodec(c.TokenKeys()); err != nil {
		return invalid("tokens", "tokens: %v", err)
	}
	return nil
}

// TokenKeys converts the token section into codec keys.
func (c *Config) TokenKeys() map[token.Type]token.Key {
	keys := make(map[token.Type]token.Key, len(token.Types()))
	for t, tc := range c.Tokens.byType() {
		keys[t] = token.Key{Secret: []byte(tc.Secret), Lifespan: tc.Lifespan}
	}
	return keys
}

// HasherParams converts the hasher section into argon2id parameters.
func (c *Config) HasherParams() auth.Argon2Params {
	return auth.Argon2Params{
		Time:    c.Hasher.Time,
		Memory:  c.Hasher.MemoryKiB,
		Threads: c.Hasher.Threads,
		SaltLen: c.Hasher.SaltLen,
		KeyLen:  c.Hasher.KeyLen,
	}
}

// LockoutPolicy converts the lockout section.
func (c *Config) LockoutPolicy() auth.LockoutPolicy {
	return auth.LockoutPolicy{Threshold: c.Lockout.Threshold, Duration: c.Lockout.Duration}
}
