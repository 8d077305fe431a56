// Package resolver finds the illustration for a flashcard word. It asks
// object storage first, then the local media cache, and only then
// generates a new image.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc"

	"github.com/spelldeck/spelldeck/internal/gemini"
	"github.com/spelldeck/spelldeck/internal/model"
)

var (
	// ErrPlaceholder means no image could be produced and the caller
	// should show a placeholder. The cause is wrapped alongside it.
	ErrPlaceholder = errors.New("image unavailable")

	// ErrInFlight is returned while another caller is generating the
	// same word for the same record.
	ErrInFlight = errors.New("image generation already in progress")
)

// Sources reported in Result.
const (
	SourceCloud     = "cloud"
	SourceCache     = "cache"
	SourceGenerated = "generated"
)

const persistTimeout = 30 * time.Second

// Request identifies the word to illustrate.
type Request struct {
	UserID   string
	RecordID string
	Item     model.WordItem
}

// Word is the target word of the request.
func (r Request) Word() string { return strings.TrimSpace(r.Item.TargetWord) }

// Result is a resolved image: a public URL or a data URI.
type Result struct {
	Image  string `json:"image"`
	Source string `json:"source"`
}

// Strategy is one way of finding an image. ok is false on a clean miss.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, req Request) (image string, ok bool, err error)
}

// ImageCache is the local media cache, scoped by user.
type ImageCache interface {
	GetFor(scope, word string) (string, bool)
	PutFor(scope, word, image string)
	DeleteFor(scope, word string)
}

// CloudImages is the durable image store.
type CloudImages interface {
	WordImageURL(ctx context.Context, userID, recordID, word string) (string, bool, error)
	SaveWordImage(ctx context.Context, userID, recordID string, item model.WordItem, dataURI string) (model.WordMedia, error)
}

// Generator produces an illustration from a prompt.
type Generator interface {
	GenerateImage(ctx context.Context, prompt string, width, height int) (gemini.Image, error)
}

// Resolver tries its strategies strictly in order.
type Resolver struct {
	strategies []Strategy
	logger     *log.Logger
	background *conc.WaitGroup
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New builds the cloud, cache and generate chain. cloud may be nil, in
// which case lookups and uploads are skipped.
func New(cache ImageCache, cloud CloudImages, gen Generator, opts ...Option) *Resolver {
	r := newResolver(opts...)

	if cloud != nil {
		r.strategies = append(r.strategies, &cloudStrategy{cloud: cloud, cache: cache})
	}
	r.strategies = append(r.strategies,
		&cacheStrategy{cache: cache},
		&generateStrategy{
			gen:        gen,
			cache:      cache,
			cloud:      cloud,
			guard:      newGuard(),
			background: r.background,
			logger:     r.logger,
		},
	)
	return r
}

// NewWithStrategies builds a resolver over an explicit chain.
func NewWithStrategies(strategies []Strategy, opts ...Option) *Resolver {
	r := newResolver(opts...)
	r.strategies = strategies
	return r
}

func newResolver(opts ...Option) *Resolver {
	r := &Resolver{background: &conc.WaitGroup{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.Default().WithPrefix("resolver")
	}
	return r
}

// Resolve returns the first image any strategy produces. Errors from all
// but the last strategy are logged and treated as misses.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	if req.Word() == "" {
		return Result{}, fmt.Errorf("%w: empty word", ErrPlaceholder)
	}

	var lastErr error
	for i, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		image, ok, err := s.Attempt(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrInFlight) {
				return Result{}, err
			}
			if i < len(r.strategies)-1 {
				r.logger.Warn("image lookup failed, trying next source", "source", s.Name(), "word", req.Word(), "err", err)
				continue
			}
			lastErr = err
			break
		}
		if ok {
			r.logger.Debug("image resolved", "source", s.Name(), "word", req.Word())
			return Result{Image: image, Source: s.Name()}, nil
		}
	}

	if lastErr != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrPlaceholder, lastErr)
	}
	return Result{}, ErrPlaceholder
}

// Forget drops the user's cached images for words, so the next Resolve
// looks in storage or generates again.
func (r *Resolver) Forget(userID string, words ...string) {
	for _, s := range r.strategies {
		if cs, ok := s.(*cacheStrategy); ok {
			for _, w := range words {
				cs.cache.DeleteFor(userID, w)
			}
		}
	}
}

// Wait blocks until background uploads have finished.
func (r *Resolver) Wait() {
	r.background.Wait()
}

type cloudStrategy struct {
	cloud CloudImages
	cache ImageCache
}

func (s *cloudStrategy) Name() string { return SourceCloud }

func (s *cloudStrategy) Attempt(ctx context.Context, req Request) (string, bool, error) {
	if req.RecordID == "" {
		return "", false, nil
	}
	url, ok, err := s.cloud.WordImageURL(ctx, req.UserID, req.RecordID, req.Word())
	if err != nil || !ok {
		return "", false, err
	}
	s.cache.PutFor(req.UserID, req.Word(), url)
	return url, true, nil
}

type cacheStrategy struct {
	cache ImageCache
}

func (s *cacheStrategy) Name() string { return SourceCache }

func (s *cacheStrategy) Attempt(_ context.Context, req Request) (string, bool, error) {
	image, ok := s.cache.GetFor(req.UserID, req.Word())
	return image, ok, nil
}

type generateStrategy struct {
	gen        Generator
	cache      ImageCache
	cloud      CloudImages
	guard      *guard
	background *conc.WaitGroup
	logger     *log.Logger
}

func (s *generateStrategy) Name() string { return SourceGenerated }

func (s *generateStrategy) Attempt(ctx context.Context, req Request) (string, bool, error) {
	if s.gen == nil {
		return "", false, nil
	}

	key := req.RecordID + "/" + strings.ToLower(req.Word())
	if !s.guard.acquire(key) {
		return "", false, ErrInFlight
	}
	defer s.guard.release(key)

	img, err := s.gen.GenerateImage(ctx, gemini.FlashcardPrompt(req.Word(), req.Item.Sentence), 1024, 1024)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", false, ctxErr
	}
	if err != nil {
		return "", false, err
	}

	dataURI := img.DataURI()
	s.cache.PutFor(req.UserID, req.Word(), dataURI)

	if s.cloud != nil && req.RecordID != "" {
		s.background.Go(func() { s.persist(req, dataURI) })
	}
	return dataURI, true, nil
}

// persist uploads a generated image and records it. It runs detached from
// the request so a closed connection does not lose the upload.
func (s *generateStrategy) persist(req Request, dataURI string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if _, err := s.cloud.SaveWordImage(ctx, req.UserID, req.RecordID, req.Item, dataURI); err != nil {
		s.logger.Warn("failed to persist generated image", "word", req.Word(), "record", req.RecordID, "err", err)
		return
	}
	s.logger.Debug("persisted generated image", "word", req.Word(), "record", req.RecordID)
}

// guard tracks keys with a generation in progress.
type guard struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newGuard() *guard {
	return &guard{keys: make(map[string]struct{})}
}

func (g *guard) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.keys[key]; busy {
		return false
	}
	g.keys[key] = struct{}{}
	return true
}

func (g *guard) release(key string) {
	g.mu.Lock()
	delete(g.keys, key)
	g.mu.Unlock()
}
