package engines

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/spelldeck/spelldeck/tts"
)

// MiniMax synthesizes speech with the MiniMax t2a_v2 API.
type MiniMax struct {
	base
	config tts.MiniMaxConfig
}

// NewMiniMax creates a MiniMax engine.
func NewMiniMax(config tts.MiniMaxConfig, opts ...Option) *MiniMax {
	def := tts.DefaultMiniMaxConfig()
	if config.Endpoint == "" {
		config.Endpoint = def.Endpoint
	}
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.VoiceID == "" {
		config.VoiceID = def.VoiceID
	}
	if config.Speed == 0 {
		config.Speed = def.Speed
	}
	if config.SampleRate == 0 {
		config.SampleRate = def.SampleRate
	}
	if config.Bitrate == 0 {
		config.Bitrate = def.Bitrate
	}
	return &MiniMax{base: newBase(tts.MiniMax, opts), config: config}
}

// Provider implements tts.Engine.
func (m *MiniMax) Provider() tts.Provider { return tts.MiniMax }

// Configured implements tts.Engine.
func (m *MiniMax) Configured() bool { return m.config.APIKey != "" }

type miniMaxRequest struct {
	Model        string `json:"model"`
	Text         string `json:"text"`
	VoiceSetting struct {
		VoiceID string  `json:"voice_id"`
		Speed   float64 `json:"speed"`
		Vol     float64 `json:"vol"`
	} `json:"voice_setting"`
	AudioSetting struct {
		SampleRate int    `json:"sample_rate"`
		Bitrate    int    `json:"bitrate"`
		Format     string `json:"format"`
	} `json:"audio_setting"`
}

type miniMaxResponse struct {
	Data *struct {
		Audio string `json:"audio"`
	} `json:"data"`
	BaseResp struct {
		StatusCode int    `json:"status_code"`
		StatusMsg  string `json:"status_msg"`
	} `json:"base_resp"`
}

// APIError is a MiniMax response whose base_resp status is not zero.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "API Error"
	}
	return fmt.Sprintf("minimax error %d: %s", e.Code, msg)
}

// Synthesize implements tts.Engine.
func (m *MiniMax) Synthesize(ctx context.Context, text string, opts tts.Options) ([]byte, error) {
	if !m.Configured() {
		return nil, tts.ErrNotConfigured
	}

	req := miniMaxRequest{Model: m.config.Model, Text: text}
	req.VoiceSetting.VoiceID = m.config.VoiceID
	if opts.Voice != "" {
		req.VoiceSetting.VoiceID = opts.Voice
	}
	req.VoiceSetting.Speed = m.config.Speed
	if opts.Speed > 0 {
		req.VoiceSetting.Speed = opts.Speed
	}
	req.VoiceSetting.Vol = 1.0
	req.AudioSetting.SampleRate = m.config.SampleRate
	req.AudioSetting.Bitrate = m.config.Bitrate
	req.AudioSetting.Format = "mp3"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+m.config.APIKey)

	var resp miniMaxResponse
	if err := m.postJSON(ctx, m.config.Endpoint, header, req, &resp); err != nil {
		return nil, err
	}
	if resp.BaseResp.StatusCode != 0 {
		return nil, &APIError{Code: resp.BaseResp.StatusCode, Message: resp.BaseResp.StatusMsg}
	}
	if resp.Data == nil || resp.Data.Audio == "" {
		return nil, tts.ErrNoAudio
	}
	data, err := hex.DecodeString(resp.Data.Audio)
	if err != nil {
		return nil, fmt.Errorf("decode minimax audio: %w", err)
	}
	return data, nil
}
