// Package config loads the runtime configuration of the entitymap commands
// from ENTITYMAP_* environment variables, optionally seeded from a .env file
// in the working directory.
//
// Keys nest on the first underscore after the prefix:
//
//	ENTITYMAP_DATABASE_DSN           -> database.dsn
//	ENTITYMAP_LOG_SLOW_QUERY_THRESHOLD -> log.slow_query_threshold
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/hitec-hamburg/entitymap/db"
	"github.com/hitec-hamburg/entitymap/models"
)

const envPrefix = "ENTITYMAP_"

// Config is the root configuration object.
type Config struct {
	Database DatabaseConfig `koanf:"database" validate:"required"`
	Log      LogConfig      `koanf:"log" validate:"required"`
	Auth     AuthConfig     `koanf:"auth" validate:"required"`
}

// DatabaseConfig selects the backend and tunes the pool.
type DatabaseConfig struct {
	Driver string `koanf:"driver" validate:"required,oneof=sqlite3 postgres mysql"`
	DSN    string `koanf:"dsn" validate:"required"`

	// DefaultTimeout bounds statements whose context carries no deadline.
	DefaultTimeout time.Duration `koanf:"default_timeout"`

	MaxOpenConns    int           `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`

	// Migrate makes the relations demo apply the embedded migrations instead
	// of issuing CREATE statements from the table metadata.
	Migrate bool `koanf:"migrate"`
}

// LogConfig controls the process logger and the query log hook.
type LogConfig struct {
	Level  string `koanf:"level" validate:"required,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"required,oneof=text json"`

	// QueryArgs includes bound parameters in query logs. Arguments carry
	// emails and password hashes.
	QueryArgs          bool          `koanf:"query_args"`
	SlowQueryThreshold time.Duration `koanf:"slow_query_threshold"`
}

// AuthConfig picks the password scheme for newly created users.
type AuthConfig struct {
	PasswordScheme string `koanf:"password_scheme" validate:"required,oneof=sha256 bcrypt"`
	BcryptCost     int    `koanf:"bcrypt_cost" validate:"omitempty,min=4,max=31"`
}

// Default returns the configuration used when no variable is set: an
// in-memory SQLite database, info-level text logs and SHA-256 passwords.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:         "sqlite3",
			DSN:            ":memory:",
			DefaultTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:              "info",
			Format:             "text",
			SlowQueryThreshold: 200 * time.Millisecond,
		},
		Auth: AuthConfig{
			PasswordScheme: "sha256",
		},
	}
}

// Load reads ENTITYMAP_* variables over the defaults and validates the
// result.
func Load() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(envPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// envKey maps ENTITYMAP_LOG_QUERY_ARGS to log.query_args.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// DB converts c into a db.Config carrying hooks.
func (c DatabaseConfig) DB(hooks ...db.Hook) db.Config {
	return db.Config{
		DSN:             c.DSN,
		DriverName:      c.Driver,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		DefaultTimeout:  c.DefaultTimeout,
		Hooks:           hooks,
	}
}

// Hasher returns the configured password scheme.
func (c AuthConfig) Hasher() models.Hasher {
	if c.PasswordScheme == "bcrypt" {
		return models.BcryptHasher{Cost: c.BcryptCost}
	}
	h, _ := models.HasherByName(c.PasswordScheme)
	if h == nil {
		return models.SHA256Hasher{}
	}
	return h
}
