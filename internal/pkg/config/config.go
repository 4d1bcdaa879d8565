package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth  AuthConfig
	Store StoreConfig
	Mongo MongoConfig
	Redis RedisConfig
	Audit AuditConfig
}

type AuthConfig struct {
	Type            string        `env:"AUTH_TYPE,        default=session_auth"`
	SessionName     string        `env:"SESSION_NAME,     default=_my_session_id"`
	SessionDuration time.Duration `env:"SESSION_DURATION, default=0s"`
	PasswordHasher  string        `env:"PASSWORD_HASHER,  default=bcrypt"`
	// ExcludedPaths are exempt from the request gate; default must stay the
	// last tag option because it contains commas.
	ExcludedPaths []string `env:"AUTH_EXCLUDED_PATHS, default=/api/v1/status/,/api/v1/unauthorized/,/api/v1/forbidden/,/api/v1/users/,/api/v1/sessions/,/api/v1/reset_password/,/health*,/metrics/,/swagger/*"`
}

type StoreConfig struct {
	Credentials string `env:"CREDENTIAL_STORE, default=memory"`
	Sessions    string `env:"SESSION_STORE,    default=record"`
	SQLiteDSN   string `env:"SQLITE_DSN,       default=auth.db"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_service"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown backends and inconsistent combinations.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(name, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: unsupported value %q (want one of %v)", name, value, allowed))
	}

	oneOf("AUTH_TYPE", c.Auth.Type, "auth", "basic_auth", "session_auth", "session_exp_auth")
	oneOf("PASSWORD_HASHER", c.Auth.PasswordHasher, "bcrypt", "argon2id")
	oneOf("CREDENTIAL_STORE", c.Store.Credentials, "memory", "mongo", "sqlite")
	oneOf("SESSION_STORE", c.Store.Sessions, "record", "memory", "redis")

	if c.Auth.SessionDuration < 0 {
		errs = append(errs, errors.New("SESSION_DURATION: must not be negative"))
	}
	if c.Auth.Type == "session_exp_auth" {
		if c.Auth.SessionDuration <= 0 {
			errs = append(errs, errors.New("session_exp_auth requires a positive SESSION_DURATION"))
		}
		if c.Store.Sessions == "record" {
			errs = append(errs, errors.New("session_exp_auth requires SESSION_STORE=memory or redis"))
		}
	}
	if c.Store.Credentials == "sqlite" && c.Store.SQLiteDSN == "" {
		errs = append(errs, errors.New("SQLITE_DSN: required for the sqlite credential store"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
