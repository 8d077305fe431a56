package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/spelldeck/spelldeck/internal/cache"
	"github.com/spelldeck/spelldeck/internal/config"
	"github.com/spelldeck/spelldeck/internal/gemini"
	"github.com/spelldeck/spelldeck/internal/resolver"
	"github.com/spelldeck/spelldeck/internal/storage"
	"github.com/spelldeck/spelldeck/internal/store"
	"github.com/spelldeck/spelldeck/internal/study"
	"github.com/spelldeck/spelldeck/tts"
	"github.com/spelldeck/spelldeck/tts/engines"
)

// app holds the components shared by serve and the operator commands.
type app struct {
	cfg config.Config

	store    *store.Store
	records  *study.Service
	ai       *gemini.Client
	images   *cache.MediaCache
	resolver *resolver.Resolver
	speech   *speech
}

// openApp connects every component. Close releases whatever was opened,
// including after a partial failure.
func openApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.open(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if !a.ai.Configured() {
		log.Warn("GOOGLE_API_KEY is not set; OCR, enrichment and image generation are disabled")
	}
	return a, nil
}

func (a *app) open(ctx context.Context) error {
	var err error
	a.store, err = store.Open(ctx, a.cfg.Database)
	if err != nil {
		return fmt.Errorf("unable to open database: %w", err)
	}
	a.records, err = openRecords(ctx, a.cfg, a.store)
	if err != nil {
		return err
	}

	a.ai = gemini.New(a.cfg.Gemini, gemini.WithLogger(log.WithPrefix("gemini")))
	a.images = openImageCache(a.cfg, true)
	a.resolver = resolver.New(a.images, a.records, a.ai, resolver.WithLogger(log.WithPrefix("resolver")))

	a.speech, err = openSpeech(a.cfg)
	return err
}

// Close waits for background uploads, then closes the caches, the settings
// watcher and the database.
func (a *app) Close() error {
	var errs []error
	if a.resolver != nil {
		a.resolver.Wait()
	}
	if a.images != nil {
		errs = append(errs, a.images.Close())
	}
	if a.speech != nil {
		errs = append(errs, a.speech.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

func openRecords(ctx context.Context, cfg config.Config, st *store.Store) (*study.Service, error) {
	buckets, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("unable to open storage: %w", err)
	}
	return study.NewService(st, buckets, log.WithPrefix("study")), nil
}

// openImageCache opens the word image cache. The janitor only runs in
// long-lived processes.
func openImageCache(cfg config.Config, janitor bool) *cache.MediaCache {
	c := cfg.Cache
	if !janitor {
		c.CleanupInterval = 0
	}
	return cache.New(c,
		cache.WithLogger(log.WithPrefix("cache")),
		cache.WithSession(cache.NewSessionMirror()),
	)
}

// speech bundles the provider selector with its engines and settings file.
type speech struct {
	*tts.Selector
	engines  []tts.Engine
	settings *tts.Settings
}

func openSpeech(cfg config.Config) (*speech, error) {
	logger := log.WithPrefix("tts")

	settings, err := tts.OpenSettings(cfg.TTS.SettingsFile, cfg.TTS.Provider, logger)
	if err != nil {
		return nil, fmt.Errorf("unable to open tts settings: %w", err)
	}

	rpm := engines.WithRequestsPerMinute(cfg.TTS.RequestsPerMinute)
	engs := []tts.Engine{
		engines.NewGoogle(cfg.TTS.Google, rpm),
		engines.NewMiniMax(cfg.TTS.MiniMax, rpm),
	}

	sel := tts.NewSelector(settings, engs,
		tts.WithAudioCache(cache.NewAudioCache(cfg.TTS.CacheBytes)),
		tts.WithTimeout(cfg.TTS.Timeout),
		tts.WithLogger(logger),
	)
	return &speech{Selector: sel, engines: engs, settings: settings}, nil
}

func (s *speech) Close() error {
	return s.settings.Close()
}
