// Package server exposes the proxy endpoints and the record API over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"

	"github.com/spelldeck/spelldeck/internal/cache"
	"github.com/spelldeck/spelldeck/internal/config"
	"github.com/spelldeck/spelldeck/internal/gemini"
	"github.com/spelldeck/spelldeck/internal/model"
	"github.com/spelldeck/spelldeck/internal/resolver"
	"github.com/spelldeck/spelldeck/internal/study"
	"github.com/spelldeck/spelldeck/tts"
)

// Records is the record service.
type Records interface {
	CreateRecord(ctx context.Context, userID string, d study.Draft) (model.StudyRecord, error)
	GetRecord(ctx context.Context, userID, id string) (model.StudyRecord, error)
	ListRecords(ctx context.Context, userID string) ([]model.StudyRecord, error)
	DeleteRecord(ctx context.Context, userID, id string) error
	CheckDuplicate(ctx context.Context, userID string, words []string) (*study.DuplicateError, error)
	RecordMedia(ctx context.Context, userID, recordID string) ([]model.WordMedia, error)
}

// AI is the Gemini client.
type AI interface {
	Configured() bool
	ExtractSpelling(ctx context.Context, image string) (gemini.Recognition, error)
	GenerateImage(ctx context.Context, prompt string, width, height int) (gemini.Image, error)
	EnrichWord(ctx context.Context, word, sentence, grade string) (gemini.Enrichment, error)
	EnrichBatch(ctx context.Context, items []model.WordItem, grade string) ([]model.WordItem, error)
}

// Images resolves flashcard illustrations.
type Images interface {
	Resolve(ctx context.Context, req resolver.Request) (resolver.Result, error)
	Forget(userID string, words ...string)
}

// ImageCache is the local media cache.
type ImageCache interface {
	Stats() cache.Stats
	Clear() error
}

// Speech is the provider selector. Choices are per user.
type Speech interface {
	CurrentFor(user string) tts.Provider
	Available(p tts.Provider) bool
	SetFor(user string, p tts.Provider) (string, error)
	SpeakFor(ctx context.Context, user, text string, opts tts.Options) (tts.Audio, error)
	PreloadFor(ctx context.Context, user string, words []string, opts tts.Options) int
	StatsFor(user string) tts.SelectorStats
	ClearCache()
}

// Deps are the components the server routes to.
type Deps struct {
	Records    Records
	AI         AI
	Images     Images
	ImageCache ImageCache
	Speech     Speech
	// Engines back /api/tts in the given fallback order.
	Engines []tts.Engine
	// MediaDir is served under /media when storage is on the local disk.
	MediaDir string
}

// Server is the HTTP service.
type Server struct {
	config   config.ServerConfig
	deps     Deps
	auth     authenticator
	validate *validator.Validate
	logger   *log.Logger
	timeout  time.Duration

	http *http.Server
}

// New creates a server. An empty jwtSecret runs every request as the
// configured development user.
func New(cfg config.ServerConfig, jwtSecret string, ttsTimeout time.Duration, deps Deps, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default().WithPrefix("http")
	}
	if cfg.DevUser == "" {
		cfg.DevUser = config.Default().Server.DevUser
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = config.Default().Server.BodyLimit
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = config.Default().Server.RequestTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = config.Default().Server.ShutdownTimeout
	}
	return &Server{
		config:   cfg,
		deps:     deps,
		auth:     authenticator{secret: []byte(jwtSecret), devUser: cfg.DevUser, logger: logger},
		validate: newValidator(),
		logger:   logger,
		timeout:  ttsTimeout,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}).Handler)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.RequestTimeout))
	r.Use(limitBody(s.config.BodyLimit))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Post("/tts", s.proxyTTS)
		r.With(s.auth.optional).Post("/extract-spelling", s.extractSpelling)
		r.Post("/generate-image", s.generateImage)
		r.Post("/enrich-word", s.enrichWord)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.require)

			r.Route("/records", func(r chi.Router) {
				r.Get("/", s.listRecords)
				r.Post("/", s.createRecord)
				r.Get("/{id}", s.getRecord)
				r.Delete("/{id}", s.deleteRecord)
				r.Get("/{id}/media", s.recordMedia)
				r.Get("/{id}/words/{word}/image", s.wordImage)
			})

			r.Get("/cache/stats", s.cacheStats)
			r.Delete("/cache", s.clearCache)

			r.Get("/tts/provider", s.getProvider)
			r.Put("/tts/provider", s.setProvider)
			r.Post("/tts/speak", s.speak)
			r.Post("/tts/preload", s.preload)
		})
	})

	if s.deps.MediaDir != "" {
		fs := http.StripPrefix("/media/", http.FileServer(http.Dir(s.deps.MediaDir)))
		r.Get("/media/*", fs.ServeHTTP)
	}

	return r
}

// Run serves on the configured address until ctx is done, then shuts down
// within the shutdown deadline.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String(), "auth", s.auth.enabled())
		errc <- s.http.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
