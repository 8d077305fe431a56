package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/spelldeck/spelldeck/internal/config"
)

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, config.AppName).CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.AppName+".log"), nil
}

// setupLog configures the default logger from the loaded configuration. With
// log.file set, output is also appended to the log file in the cache dir.
func setupLog() (func() error, error) {
	log.SetOutput(os.Stderr)
	applyLogLevel()

	if !viper.GetBool("log.file") {
		return func() error { return nil }, nil
	}

	logFile, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return f.Close, nil
}

func applyLogLevel() {
	lvl, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		log.Warn("Unknown log level, using info", "level", viper.GetString("log.level"))
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
