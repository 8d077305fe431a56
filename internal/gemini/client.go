// Package gemini wraps the Gemini generateContent API for worksheet OCR,
// word enrichment and flashcard illustration.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Gemini REST endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Models used by the collaborators.
const (
	TextModel  = "gemini-2.5-flash"
	ImageModel = "gemini-2.5-flash-image"
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("gemini api key not configured")

	// ErrEmptyResponse is returned when the model produced no candidates.
	ErrEmptyResponse = errors.New("gemini returned no candidates")

	// ErrNoJSON is returned when the model text holds no JSON object.
	ErrNoJSON = errors.New("no json object in model response")

	// ErrNoImage is returned when the image model produced no image part.
	ErrNoImage = errors.New("no image in model response")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api error: %d - %s", e.Status, e.Body)
}

// Config configures a Client.
type Config struct {
	APIKey  string `mapstructure:"-"`
	BaseURL string `mapstructure:"base_url"`

	OCRTimeout    time.Duration `mapstructure:"ocr_timeout"`
	EnrichTimeout time.Duration `mapstructure:"enrich_timeout"`
	ImageTimeout  time.Duration `mapstructure:"image_timeout"`

	// Image generation requests per minute. Zero means unlimited.
	ImagesPerMinute int `mapstructure:"images_per_minute"`
}

// DefaultConfig returns the default timeouts and limits.
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		OCRTimeout:      30 * time.Second,
		EnrichTimeout:   15 * time.Second,
		ImageTimeout:    20 * time.Second,
		ImagesPerMinute: 10,
	}
}

// Client calls the Gemini API.
type Client struct {
	config  Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the client logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client. Zero config fields take their defaults.
func New(config Config, opts ...Option) *Client {
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.OCRTimeout == 0 {
		config.OCRTimeout = def.OCRTimeout
	}
	if config.EnrichTimeout == 0 {
		config.EnrichTimeout = def.EnrichTimeout
	}
	if config.ImageTimeout == 0 {
		config.ImageTimeout = def.ImageTimeout
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	c := &Client{
		config: config,
		http:   &http.Client{},
	}
	if config.ImagesPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.ImagesPerMinute)), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Default().WithPrefix("gemini")
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.config.APIKey != "" }

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// parts returns the parts of the first candidate.
func (r *generateResponse) parts() ([]part, error) {
	if len(r.Candidates) == 0 {
		return nil, ErrEmptyResponse
	}
	return r.Candidates[0].Content.Parts, nil
}

// firstText returns the text of the first part of the first candidate.
func (r *generateResponse) firstText() (string, error) {
	parts, err := r.parts()
	if err != nil {
		return "", err
	}
	if len(parts) == 0 || parts[0].Text == "" {
		return "", errors.New("no text in model response")
	}
	return parts[0].Text, nil
}

// generate posts req to model under timeout. A transport error or a 5xx
// response is retried once.
func (c *Client) generate(ctx context.Context, model string, req generateRequest, timeout time.Duration) (*generateResponse, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		resp, retry, err := c.do(ctx, model, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
		c.logger.Debug("retrying gemini request", "model", model, "err", err)
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, model string, body []byte) (*generateResponse, bool, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.config.BaseURL, model, c.config.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, true, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, resp.StatusCode >= 500, &APIError{Status: resp.StatusCode, Body: string(raw)}
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, fmt.Errorf("decode gemini response: %w", err)
	}
	return &out, false, nil
}
