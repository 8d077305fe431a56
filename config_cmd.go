package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// API keys and the JWT secret are never read from this file. Set
// GOOGLE_API_KEY, GOOGLE_TTS_API_KEY, MINIMAX_API_KEY and
// SPELLDECK_JWT_SECRET in the environment instead.
const defaultConfig = `# debug, info, warn or error
log:
  level: "info"
  # also append to spelldeck.log in the user cache directory
  file: false

server:
  addr: "127.0.0.1:3001"
  cors_origins: ["*"]
  # largest accepted request body in bytes (worksheet photos are big)
  body_limit: 52428800
  request_timeout: "60s"
  shutdown_timeout: "5s"
  # user id for every request while SPELLDECK_JWT_SECRET is unset
  dev_user: "local"

database:
  # sqlite3 or postgres
  driver: "sqlite3"
  # defaults to spelldeck.db in the user data directory
  # dsn: "postgres://spelldeck@localhost/spelldeck?sslmode=disable"

storage:
  # fs or s3
  backend: "fs"
  # dir: "~/spelldeck/media"
  public_url: "/media"
  # s3:
  #   region: "us-east-1"
  #   endpoint: "http://localhost:9000"
  #   bucket_prefix: "spelldeck-"
  #   public_url: "https://cdn.example.com"
  #   use_path_style: true

# word illustration cache
cache:
  max_entries: 100
  fallback_entries: 50
  headroom: 10
  retention: "720h"
  # dir: "~/.cache/spelldeck/images"
  compression_level: 3
  cleanup_interval: "1h"

gemini:
  ocr_timeout: "30s"
  enrich_timeout: "15s"
  image_timeout: "20s"
  images_per_minute: 10

tts:
  # provider used until one is picked: google, minimax or browser
  provider: "google"
  # settings_file: "~/.local/share/spelldeck/settings.yaml"
  timeout: "8s"
  cache_bytes: 33554432
  requests_per_minute: 60
  google:
    language_code: "en-US"
    voice_name: "en-US-Neural2-D"
    speaking_rate: 1.0
  minimax:
    model: "speech-01-turbo"
    voice_id: "male-qn-qingse"
    speed: 0.8
    sample_rate: 32000
    bitrate: 128000
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the spelldeck config file",
	Long:    paragraph(fmt.Sprintf("\n%s the spelldeck config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("spelldeck config\nspelldeck config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Spelldeck", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
