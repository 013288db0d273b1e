// Package config loads the service configuration.
//
// Sources, later ones winning:
//
//  1. built-in defaults
//  2. an optional YAML file
//  3. the bare PORT, DATABASE_URL and GEMINI_API_KEY variables
//  4. STEPWISE_-prefixed variables, "__" separating levels
//     (STEPWISE_SERVER__READ_TIMEOUT=30s sets server.read_timeout)
//
// A .env file in the working directory is loaded into the environment first
// when present. Variables already set are not overwritten.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/sakif/stepwise/internal/explainer/gemini"
)

// EnvPrefix prefixes every structured environment variable.
const EnvPrefix = "STEPWISE_"

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Identity IdentityConfig `koanf:"identity"`
	Gemini   GeminiConfig   `koanf:"gemini"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"` // must outlast gemini.timeout
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `koanf:"driver"` // sqlite, postgres
	Path            string        `koanf:"path"`   // sqlite only
	DSN             string        `koanf:"dsn"`    // postgres only
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// AuthConfig verifies session tokens.
type AuthConfig struct {
	SessionSecret string `koanf:"session_secret"`
	Issuer        string `koanf:"issuer"`
}

// IdentityConfig reaches the identity provider's backend API.
type IdentityConfig struct {
	APIURL    string        `koanf:"api_url"`
	SecretKey string        `koanf:"secret_key"`
	Timeout   time.Duration `koanf:"timeout"`
}

type GeminiConfig struct {
	APIKey        string        `koanf:"api_key"`
	Model         string        `koanf:"model"`
	Timeout       time.Duration `koanf:"timeout"`
	MaxConcurrent int           `koanf:"max_concurrent"`
	BaseURL       string        `koanf:"base_url"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    150 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Path:            "data/stepwise.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Identity: IdentityConfig{
			APIURL:  "https://api.clerk.com/v1",
			Timeout: 10 * time.Second,
		},
		Gemini: GeminiConfig{
			Model:         gemini.DefaultModel,
			Timeout:       2 * time.Minute,
			MaxConcurrent: 8,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// legacyEnv maps the unprefixed variables older deployments set.
var legacyEnv = map[string]string{
	"PORT":           "server.port",
	"DATABASE_URL":   "database.dsn",
	"GEMINI_API_KEY": "gemini.api_key",
}

// Options controls where Load looks.
type Options struct {
	// File is a YAML config file. Empty skips it; a named file that does
	// not exist is an error.
	File string
	// DotEnv is loaded into the process environment first. A missing file
	// is ignored.
	DotEnv string
}

// Load builds the configuration from defaults, the YAML file and the
// environment. It does not validate; call Validate.
func Load(opts Options) (Config, error) {
	if opts.DotEnv != "" {
		if err := godotenv.Load(opts.DotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: loading %s: %w", opts.DotEnv, err)
		}
	}

	k := koanf.New(".")

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: loading %s: %w", opts.File, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return legacyEnv[s]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("config: loading legacy environment: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding: %w", err)
	}

	// A DSN with no explicit driver means postgres.
	if cfg.Database.DSN != "" && !k.Exists("database.driver") {
		cfg.Database.Driver = DriverPostgres
	}
	return cfg, nil
}

// envKey turns STEPWISE_GEMINI__API_KEY into gemini.api_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate reports every problem with cfg at once.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Gemini.Timeout > 0 && c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.Gemini.Timeout {
		errs = append(errs, fmt.Errorf("server.write_timeout (%s) must exceed gemini.timeout (%s)",
			c.Server.WriteTimeout, c.Gemini.Timeout))
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn (or DATABASE_URL) is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: want %s or %s",
			c.Database.Driver, DriverSQLite, DriverPostgres))
	}

	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Identity.APIURL == "" {
		errs = append(errs, errors.New("identity.api_url is required"))
	}
	if c.Identity.SecretKey == "" {
		errs = append(errs, errors.New("identity.secret_key is required"))
	}
	if c.Gemini.APIKey == "" {
		errs = append(errs, errors.New("gemini.api_key (or GEMINI_API_KEY) is required"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Validate checks only what token signing and verification need.
func (a AuthConfig) Validate() error {
	if len(a.SessionSecret) < 16 {
		return errors.New("auth.session_secret must be at least 16 characters")
	}
	return nil
}

// ParseLevel maps a level name to its slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: want debug, info, warn or error", s)
	}
	return l, nil
}

// NewLogger builds the process logger described by c.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
