package engines

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/spelldeck/spelldeck/tts"
)

// Google synthesizes speech with the Google Cloud Text-to-Speech REST API.
type Google struct {
	base
	config tts.GoogleConfig
}

// NewGoogle creates a Google Cloud TTS engine.
func NewGoogle(config tts.GoogleConfig, opts ...Option) *Google {
	def := tts.DefaultGoogleConfig()
	if config.Endpoint == "" {
		config.Endpoint = def.Endpoint
	}
	if config.LanguageCode == "" {
		config.LanguageCode = def.LanguageCode
	}
	if config.VoiceName == "" {
		config.VoiceName = def.VoiceName
	}
	if config.SpeakingRate == 0 {
		config.SpeakingRate = def.SpeakingRate
	}
	return &Google{base: newBase(tts.Google, opts), config: config}
}

// Provider implements tts.Engine.
func (g *Google) Provider() tts.Provider { return tts.Google }

// Configured implements tts.Engine.
func (g *Google) Configured() bool { return g.config.APIKey != "" }

type googleRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
		SSMLGender   string `json:"ssmlGender"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
		Pitch         float64 `json:"pitch"`
	} `json:"audioConfig"`
}

type googleResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize implements tts.Engine.
func (g *Google) Synthesize(ctx context.Context, text string, opts tts.Options) ([]byte, error) {
	if !g.Configured() {
		return nil, tts.ErrNotConfigured
	}

	var req googleRequest
	req.Input.Text = text
	req.Voice.LanguageCode = g.config.LanguageCode
	req.Voice.Name = g.config.VoiceName
	if opts.Voice != "" {
		req.Voice.Name = opts.Voice
	}
	req.Voice.SSMLGender = "NEUTRAL"
	req.AudioConfig.AudioEncoding = "MP3"
	req.AudioConfig.SpeakingRate = g.config.SpeakingRate
	if opts.Speed > 0 {
		req.AudioConfig.SpeakingRate = opts.Speed
	}

	endpoint := g.config.Endpoint + "?key=" + url.QueryEscape(g.config.APIKey)

	var resp googleResponse
	if err := g.postJSON(ctx, endpoint, nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.AudioContent == "" {
		return nil, tts.ErrNoAudio
	}
	data, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode google audio: %w", err)
	}
	return data, nil
}
