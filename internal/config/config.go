// Package config assembles the application configuration from viper and the
// environment.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spelldeck/spelldeck/internal/cache"
	"github.com/spelldeck/spelldeck/internal/gemini"
	"github.com/spelldeck/spelldeck/internal/storage"
	"github.com/spelldeck/spelldeck/internal/store"
	"github.com/spelldeck/spelldeck/tts"
	"github.com/spf13/viper"
)

// AppName scopes the user directories.
const AppName = "spelldeck"

// Config is the complete application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Database store.Config   `mapstructure:"database"`
	Storage  storage.Config `mapstructure:"storage"`
	Cache    cache.Config   `mapstructure:"cache"`
	Gemini   gemini.Config  `mapstructure:"gemini"`
	TTS      tts.Config     `mapstructure:"-"`

	Secrets Secrets `mapstructure:"-"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  bool   `mapstructure:"file"`
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	BodyLimit       int64         `mapstructure:"body_limit"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// DevUser is the user id applied to every request when no JWT secret
	// is configured.
	DevUser string `mapstructure:"dev_user"`
}

// Secrets are read from the environment only.
type Secrets struct {
	GeminiAPIKey    string `env:"GOOGLE_API_KEY"`
	GoogleTTSAPIKey string `env:"GOOGLE_TTS_API_KEY"`
	MiniMaxAPIKey   string `env:"MINIMAX_API_KEY"`
	JWTSecret       string `env:"SPELLDECK_JWT_SECRET"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Server: ServerConfig{
			Addr:            "127.0.0.1:3001",
			CORSOrigins:     []string{"*"},
			BodyLimit:       50 << 20,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			DevUser:         "local",
		},
		Database: store.Config{Driver: store.DriverSQLite},
		Storage:  storage.Config{Backend: "fs", PublicURL: "/media"},
		Cache:    cache.DefaultConfig(),
		Gemini:   gemini.DefaultConfig(),
		TTS:      tts.DefaultConfig(),
	}
}

// SetDefaults registers every key with v so environment overrides apply to
// Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.dev_user", d.Server.DevUser)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", "")

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.dir", "")
	v.SetDefault("storage.public_url", d.Storage.PublicURL)

	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.fallback_entries", d.Cache.FallbackEntries)
	v.SetDefault("cache.headroom", d.Cache.Headroom)
	v.SetDefault("cache.retention", d.Cache.Retention)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.compression_level", d.Cache.CompressionLevel)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)

	v.SetDefault("gemini.base_url", d.Gemini.BaseURL)
	v.SetDefault("gemini.ocr_timeout", d.Gemini.OCRTimeout)
	v.SetDefault("gemini.enrich_timeout", d.Gemini.EnrichTimeout)
	v.SetDefault("gemini.image_timeout", d.Gemini.ImageTimeout)
	v.SetDefault("gemini.images_per_minute", d.Gemini.ImagesPerMinute)

	tts.SetDefaults(v)
}

// Load reads the configuration from v and the secrets from the environment.
// Empty paths are filled with the user's data and cache directories.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode configuration: %w", err)
	}

	ttsCfg, err := tts.LoadConfigFromViper(v)
	if err != nil {
		return cfg, err
	}
	cfg.TTS = ttsCfg

	secrets, err := env.ParseAs[Secrets]()
	if err != nil {
		return cfg, fmt.Errorf("error parsing environment: %w", err)
	}
	cfg.Secrets = secrets
	cfg.applySecrets()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if err := cfg.resolvePaths(gap.NewScope(gap.User, AppName)); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applySecrets hands the API keys to the components that use them. The
// Google TTS key falls back to the Gemini key; both are Google Cloud keys.
func (c *Config) applySecrets() {
	c.Gemini.APIKey = c.Secrets.GeminiAPIKey
	c.TTS.Google.APIKey = c.Secrets.GoogleTTSAPIKey
	if c.TTS.Google.APIKey == "" {
		c.TTS.Google.APIKey = c.Secrets.GeminiAPIKey
	}
	c.TTS.MiniMax.APIKey = c.Secrets.MiniMaxAPIKey
}

// Validate checks the values the components cannot default themselves.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	if c.Database.Driver == "sqlite" {
		c.Database.Driver = store.DriverSQLite
	}
	switch c.Database.Driver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("invalid database driver %q", c.Database.Driver)
	}
	switch c.Storage.Backend {
	case "fs", "s3":
	default:
		return fmt.Errorf("invalid storage backend %q: must be fs or s3", c.Storage.Backend)
	}
	if c.Server.BodyLimit <= 0 {
		return fmt.Errorf("server body limit must be positive, got %d", c.Server.BodyLimit)
	}
	return nil
}

// AuthEnabled reports whether requests must carry a signed token.
func (c *Config) AuthEnabled() bool {
	return c.Secrets.JWTSecret != ""
}

type dirs interface {
	DataPath(filename string) (string, error)
	CacheDir() (string, error)
}

func (c *Config) resolvePaths(scope dirs) error {
	var err error
	expand := func(p *string, fallback func() (string, error)) {
		if err != nil {
			return
		}
		if *p == "" {
			*p, err = fallback()
			return
		}
		*p, err = homedir.Expand(*p)
	}
	data := func(name string) func() (string, error) {
		return func() (string, error) { return scope.DataPath(name) }
	}

	if c.Database.Driver == store.DriverSQLite {
		expand(&c.Database.DSN, data("spelldeck.db"))
	}
	if c.Storage.Backend == "fs" {
		expand(&c.Storage.Dir, data("media"))
	}
	expand(&c.Cache.DiskPath, func() (string, error) {
		dir, err := scope.CacheDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "images"), nil
	})
	expand(&c.TTS.SettingsFile, data("settings.yaml"))

	if err != nil {
		return fmt.Errorf("unable to resolve data directories: %w", err)
	}
	return nil
}
