package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spelldeck/spelldeck/internal/cache"
	"github.com/spelldeck/spelldeck/internal/config"
	"github.com/spelldeck/spelldeck/internal/gemini"
	"github.com/spelldeck/spelldeck/internal/model"
	"github.com/spelldeck/spelldeck/internal/resolver"
	"github.com/spelldeck/spelldeck/internal/storage"
	"github.com/spelldeck/spelldeck/internal/store"
	"github.com/spelldeck/spelldeck/internal/study"
	"github.com/spelldeck/spelldeck/tts"
)

const testSecret = "test-secret"

type fakeAI struct {
	configured  bool
	recognition gemini.Recognition
	imageErr    error

	mu     sync.Mutex
	images int
}

func (f *fakeAI) Configured() bool { return f.configured }

func (f *fakeAI) ExtractSpelling(context.Context, string) (gemini.Recognition, error) {
	if !f.configured {
		return gemini.Recognition{}, gemini.ErrNotConfigured
	}
	return f.recognition, nil
}

func (f *fakeAI) GenerateImage(context.Context, string, int, int) (gemini.Image, error) {
	f.mu.Lock()
	f.images++
	f.mu.Unlock()
	if f.imageErr != nil {
		return gemini.Image{}, f.imageErr
	}
	return gemini.Image{Base64: "iVBORw0KGgo=", MimeType: "image/png"}, nil
}

func (f *fakeAI) EnrichWord(_ context.Context, word, _, _ string) (gemini.Enrichment, error) {
	return gemini.Enrichment{Meaning: "meaning of " + word, WordType: "noun"}, nil
}

func (f *fakeAI) EnrichBatch(_ context.Context, items []model.WordItem, _ string) ([]model.WordItem, error) {
	out := make([]model.WordItem, len(items))
	for i, it := range items {
		it.Meaning = "meaning of " + it.TargetWord
		out[i] = it
	}
	return out, nil
}

type fakeEngine struct {
	provider   tts.Provider
	configured bool
	err        error
}

func (f *fakeEngine) Provider() tts.Provider { return f.provider }
func (f *fakeEngine) Configured() bool       { return f.configured }

func (f *fakeEngine) Synthesize(context.Context, string, tts.Options) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("audio:" + string(f.provider)), nil
}

type testEnv struct {
	handler  http.Handler
	records  *study.Service
	ai       *fakeAI
	google   *fakeEngine
	minimax  *fakeEngine
	images   *cache.MediaCache
	resolver *resolver.Resolver
	settings *tts.Settings
}

func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := log.New(io.Discard)

	st, err := store.Open(ctx, store.Config{Driver: store.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	buckets, err := storage.Open(ctx, storage.Config{Dir: t.TempDir(), PublicURL: "http://test/media"})
	require.NoError(t, err)
	svc := study.NewService(st, buckets, logger)

	ai := &fakeAI{configured: true}
	images := cache.NewWithBackends(cache.DefaultConfig(), []cache.Backend{cache.NewMemoryStore(50)}, cache.WithLogger(logger))
	res := resolver.New(images, svc, ai, resolver.WithLogger(logger))
	t.Cleanup(res.Wait)

	settings, err := tts.OpenSettings(filepath.Join(t.TempDir(), "settings.yaml"), tts.Google, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = settings.Close() })

	google := &fakeEngine{provider: tts.Google, configured: true}
	minimax := &fakeEngine{provider: tts.MiniMax, configured: true}
	engines := []tts.Engine{google, minimax}
	selector := tts.NewSelector(settings, engines, tts.WithLogger(logger))

	cfg := config.Default().Server
	srv := New(cfg, secret, time.Second, Deps{
		Records:    svc,
		AI:         ai,
		Images:     res,
		ImageCache: images,
		Speech:     selector,
		Engines:    engines,
	}, logger)

	return &testEnv{
		handler:  srv.Handler(),
		records:  svc,
		ai:       ai,
		google:   google,
		minimax:  minimax,
		images:   images,
		resolver: res,
		settings: settings,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func signToken(t *testing.T, secret, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func createBody(words ...string) map[string]any {
	list := make([]map[string]string, 0, len(words))
	for _, w := range words {
		list = append(list, map[string]string{"word": w, "sentence": "The " + w + " is here."})
	}
	return map[string]any{"grade": "P2", "term": "Term 1", "spelling_number": "Spelling(3)", "words": list}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")
	env.google.configured = false
	env.ai.configured = false

	rec := env.do(t, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeJSON[healthResponse](t, rec)
	assert.Equal(t, "ok", got.Status)
	assert.True(t, got.TTSConfigured)
	assert.False(t, got.OCRConfigured)
	assert.False(t, got.ImageGenerationConfigured)
}

func TestProxyTTS(t *testing.T) {
	t.Run("auto falls through to the next provider", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.google.err = errors.New("quota exceeded")

		rec := env.do(t, http.MethodPost, "/api/tts", map[string]any{"text": "kite"}, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		got := decodeJSON[ttsResponse](t, rec)
		assert.True(t, got.Success)
		assert.Equal(t, tts.MiniMax, got.Provider)
		assert.Equal(t, "mp3", got.Format)
		assert.NotEmpty(t, got.AudioBase64)
	})

	t.Run("named provider does not fall back", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.google.err = errors.New("quota exceeded")

		rec := env.do(t, http.MethodPost, "/api/tts", map[string]any{"text": "kite", "provider": "google"}, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.False(t, decodeJSON[errorBody](t, rec).Success)
	})

	t.Run("no configured provider", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.google.configured = false
		env.minimax.configured = false

		rec := env.do(t, http.MethodPost, "/api/tts", map[string]any{"text": "kite"}, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t, "")

		for _, body := range []map[string]any{
			{"text": ""},
			{"text": "kite", "provider": "espeak"},
			{"text": "kite", "speed": 9},
		} {
			rec := env.do(t, http.MethodPost, "/api/tts", body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		}
	})
}

func TestExtractSpelling(t *testing.T) {
	env := newTestEnv(t, "")
	env.ai.recognition = gemini.Recognition{
		Grade: "P2",
		Words: []gemini.RecognizedWord{{Word: "kite"}, {Word: "lamp"}, {Word: "desk"}},
	}

	rec := env.do(t, http.MethodPost, "/api/extract-spelling", map[string]any{"imageData": "data:image/jpeg;base64,AAAA"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON[extractResponse](t, rec)
	assert.Len(t, got.Data.Words, 3)
	assert.Nil(t, got.Duplicate)

	_, err := env.records.CreateRecord(context.Background(), config.Default().Server.DevUser, study.Draft{
		Items: []model.WordItem{{TargetWord: "kite"}, {TargetWord: "lamp"}, {TargetWord: "desk"}},
	})
	require.NoError(t, err)

	rec = env.do(t, http.MethodPost, "/api/extract-spelling", map[string]any{"imageData": "AAAA"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeJSON[extractResponse](t, rec)
	require.NotNil(t, got.Duplicate)
	assert.InDelta(t, 1.0, got.Duplicate.Similarity, 0.001)
}

func TestExtractSpelling_NotConfigured(t *testing.T) {
	env := newTestEnv(t, "")
	env.ai.configured = false

	rec := env.do(t, http.MethodPost, "/api/extract-spelling", map[string]any{"imageData": "AAAA"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/extract-spelling", map[string]any{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateImageAndEnrich(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/api/generate-image", map[string]any{"prompt": "a kite"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	img := decodeJSON[map[string]any](t, rec)
	assert.Equal(t, true, img["success"])
	assert.Equal(t, "image/png", img["mimeType"])

	rec = env.do(t, http.MethodPost, "/api/enrich-word", map[string]any{"word": "kite", "sentence": "I fly a kite."}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	enr := decodeJSON[enrichResponse](t, rec)
	assert.Equal(t, "meaning of kite", enr.Data.Meaning)
}

func TestRecordsLifecycle(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/api/records", createBody("kite", "lamp"), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeJSON[recordResponse](t, rec).Data
	assert.Equal(t, "P2 Term 1 Spelling(3)", created.Title)
	require.Len(t, created.Content.Items, 2)

	rec = env.do(t, http.MethodGet, "/api/records", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON[recordsResponse](t, rec).Data, 1)

	rec = env.do(t, http.MethodGet, "/api/records?grade=P5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeJSON[recordsResponse](t, rec).Data)

	rec = env.do(t, http.MethodGet, "/api/records/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeJSON[recordResponse](t, rec).Data.ID)

	rec = env.do(t, http.MethodPost, "/api/records", createBody("kite", "lamp"), "")
	require.Equal(t, http.StatusConflict, rec.Code)
	dup := decodeJSON[duplicateResponse](t, rec)
	assert.Equal(t, created.ID, dup.Duplicate.Record.ID)

	body := createBody("kite", "lamp")
	body["force"] = true
	rec = env.do(t, http.MethodPost, "/api/records", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/records/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/records/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRecord_Enrich(t *testing.T) {
	env := newTestEnv(t, "")

	body := createBody("kite")
	body["enrich"] = true
	rec := env.do(t, http.MethodPost, "/api/records", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "meaning of kite", decodeJSON[recordResponse](t, rec).Data.Content.Items[0].Meaning)
}

func TestCreateRecord_Invalid(t *testing.T) {
	env := newTestEnv(t, "")

	for name, body := range map[string]map[string]any{
		"no words":         {"grade": "P2"},
		"bad grade":        {"grade": "P9", "words": []map[string]string{{"word": "kite"}}},
		"empty word":       {"words": []map[string]string{{"word": ""}}},
		"repeated words":   createBody("kite", "Kite"),
		"word with a path": createBody("../../bob/r1/apple"),
		"dot word":         createBody(".."),
	} {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/records", body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestWordImage(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/api/records", createBody("kite"), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeJSON[recordResponse](t, rec).Data.ID

	rec = env.do(t, http.MethodGet, "/api/records/"+id+"/words/kite/image", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeJSON[imageResponse](t, rec)
	assert.Equal(t, resolver.SourceGenerated, got.Source)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", got.Image)

	rec = env.do(t, http.MethodGet, "/api/records/"+id+"/words/KITE/image", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, resolver.SourceGenerated, decodeJSON[imageResponse](t, rec).Source)
	assert.Equal(t, 1, env.ai.images)

	rec = env.do(t, http.MethodGet, "/api/records/"+id+"/words/lamp/image", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWordImage_PerUser(t *testing.T) {
	env := newTestEnv(t, testSecret)
	alice := signToken(t, testSecret, "alice")
	bob := signToken(t, testSecret, "bob")

	create := func(token string) string {
		rec := env.do(t, http.MethodPost, "/api/records", createBody("apple"), token)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decodeJSON[recordResponse](t, rec).Data.ID
	}
	image := func(token, id string) imageResponse {
		rec := env.do(t, http.MethodGet, "/api/records/"+id+"/words/apple/image", nil, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decodeJSON[imageResponse](t, rec)
	}

	aliceRec := create(alice)
	assert.Equal(t, resolver.SourceGenerated, image(alice, aliceRec).Source)
	env.resolver.Wait()

	bobRec := create(bob)
	assert.Equal(t, resolver.SourceGenerated, image(bob, bobRec).Source)
	env.resolver.Wait()
	assert.Equal(t, 2, env.ai.images)

	rec := env.do(t, http.MethodGet, "/api/records/"+bobRec+"/media", nil, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	media := decodeJSON[mediaResponse](t, rec).Data
	require.Len(t, media, 1)
	assert.Contains(t, media[0].ImageURL, "/bob/"+bobRec+"/apple.png")

	// a deleted record's cached URL is not served for the next record
	rec = env.do(t, http.MethodDelete, "/api/records/"+aliceRec, nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	next := create(alice)
	got := image(alice, next)
	assert.Equal(t, resolver.SourceGenerated, got.Source)
	assert.NotContains(t, got.Image, aliceRec)
}

func TestWordImage_Placeholder(t *testing.T) {
	env := newTestEnv(t, "")
	env.ai.imageErr = errors.New("model overloaded")

	rec := env.do(t, http.MethodPost, "/api/records", createBody("kite"), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeJSON[recordResponse](t, rec).Data.ID

	rec = env.do(t, http.MethodGet, "/api/records/"+id+"/words/kite/image", nil, "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	got := decodeJSON[placeholderResponse](t, rec)
	assert.True(t, got.Placeholder)
	assert.False(t, got.Success)
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, testSecret)
	alice := signToken(t, testSecret, "alice")
	bob := signToken(t, testSecret, "bob")

	rec := env.do(t, http.MethodGet, "/api/records", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/records", nil, signToken(t, "other-secret", "alice"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/records", createBody("kite"), alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeJSON[recordResponse](t, rec).Data.ID

	rec = env.do(t, http.MethodGet, "/api/records/"+id, nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/records", nil, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeJSON[recordsResponse](t, rec).Data)

	// public proxy endpoints stay open
	rec = env.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTTSProvider(t *testing.T) {
	env := newTestEnv(t, "")
	env.minimax.configured = false

	rec := env.do(t, http.MethodGet, "/api/tts/provider", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON[providerResponse](t, rec)
	assert.Equal(t, tts.Google, got.Provider)
	require.Len(t, got.Providers, len(tts.Providers))
	for _, p := range got.Providers {
		assert.Equal(t, p.ID != tts.MiniMax, p.Available, p.ID)
	}

	rec = env.do(t, http.MethodPut, "/api/tts/provider", map[string]string{"provider": "minimax"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")

	rec = env.do(t, http.MethodPut, "/api/tts/provider", map[string]string{"provider": "browser"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeJSON[providerResponse](t, rec)
	assert.Equal(t, tts.Browser, got.Provider)
	assert.Equal(t, tts.SwitchedMessage(tts.Browser), got.Message)
	assert.Equal(t, tts.Browser, env.settings.ProviderFor(config.Default().Server.DevUser))
	assert.Equal(t, tts.Google, env.settings.Provider())

	rec = env.do(t, http.MethodPut, "/api/tts/provider", map[string]string{"provider": "espeak"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTTSProvider_PerUser(t *testing.T) {
	env := newTestEnv(t, testSecret)
	alice := signToken(t, testSecret, "alice")
	bob := signToken(t, testSecret, "bob")

	rec := env.do(t, http.MethodPut, "/api/tts/provider", map[string]string{"provider": "browser"}, alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/tts/provider", nil, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tts.Google, decodeJSON[providerResponse](t, rec).Provider)

	rec = env.do(t, http.MethodPost, "/api/tts/speak", map[string]string{"text": "kite"}, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON[speakResponse](t, rec)
	assert.Equal(t, tts.Google, got.Provider)
	assert.False(t, got.Native)

	rec = env.do(t, http.MethodPost, "/api/tts/speak", map[string]string{"text": "kite"}, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeJSON[speakResponse](t, rec).Native)
}

func TestSpeak(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/api/tts/speak", map[string]string{"text": "kite"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON[speakResponse](t, rec)
	assert.Equal(t, tts.Google, got.Provider)
	assert.False(t, got.Native)
	assert.False(t, got.Cached)
	assert.Equal(t, "mp3", got.Format)

	rec = env.do(t, http.MethodPost, "/api/tts/speak", map[string]string{"text": "kite"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeJSON[speakResponse](t, rec).Cached)

	rec = env.do(t, http.MethodGet, "/api/cache/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeJSON[cacheStatsResponse](t, rec)
	assert.Equal(t, 1, stats.Audio.CacheSize)

	rec = env.do(t, http.MethodDelete, "/api/cache", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/tts/speak", map[string]string{"text": "kite"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeJSON[speakResponse](t, rec).Cached)
}

func TestPreload(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/api/tts/preload", map[string]any{"words": []string{"kite", "lamp"}}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"loaded":2`)

	rec = env.do(t, http.MethodPost, "/api/tts/speak", map[string]string{"text": "lamp"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeJSON[speakResponse](t, rec).Cached)

	rec = env.do(t, http.MethodPost, "/api/tts/preload", map[string]any{"words": []string{}}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpeak_Browser(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, env.settings.SetProvider(tts.Browser))

	rec := env.do(t, http.MethodPost, "/api/tts/speak", map[string]string{"text": "kite"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON[speakResponse](t, rec)
	assert.True(t, got.Native)
	assert.Empty(t, got.AudioBase64)
	assert.InDelta(t, tts.BrowserRate, got.Rate, 0.001)
}

func TestSpeak_FailureSuggestsSwitch(t *testing.T) {
	env := newTestEnv(t, "")
	env.google.err = errors.New("quota exceeded")

	rec := env.do(t, http.MethodPost, "/api/tts/speak", map[string]string{"text": "kite"}, "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	got := decodeJSON[speakFailure](t, rec)
	assert.False(t, got.Success)
	assert.Equal(t, tts.Google, got.Provider)
	assert.Equal(t, []tts.Provider{tts.MiniMax, tts.Browser}, got.Suggest)
	assert.Contains(t, got.Message, tts.Google.Label())
}

func TestBodyLimit(t *testing.T) {
	env := newTestEnv(t, "")
	cfg := config.Default().Server
	cfg.BodyLimit = 64
	srv := New(cfg, "", time.Second, Deps{AI: env.ai}, log.New(io.Discard))

	big := map[string]string{"imageData": string(bytes.Repeat([]byte("A"), 256))}
	env.handler = srv.Handler()
	rec := env.do(t, http.MethodPost, "/api/extract-spelling", big, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds")
}
