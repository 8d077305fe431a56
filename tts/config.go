package tts

import (
	"fmt"
	"time"
)

// Config contains all speech configuration options.
type Config struct {
	// Provider selected when no settings file exists yet.
	Provider Provider `mapstructure:"provider"`

	// SettingsFile persists the selected provider.
	SettingsFile string `mapstructure:"settings_file"`

	// Timeout bounds a single remote synthesis.
	Timeout time.Duration `mapstructure:"timeout"`

	// CacheBytes caps the synthesized audio cache.
	CacheBytes int64 `mapstructure:"cache_bytes"`

	// RequestsPerMinute throttles each remote provider.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`

	Google  GoogleConfig  `mapstructure:"google"`
	MiniMax MiniMaxConfig `mapstructure:"minimax"`
}

// GoogleConfig contains Google Cloud TTS settings.
type GoogleConfig struct {
	APIKey       string  `mapstructure:"-"`
	Endpoint     string  `mapstructure:"endpoint"`
	LanguageCode string  `mapstructure:"language_code"`
	VoiceName    string  `mapstructure:"voice_name"`
	SpeakingRate float64 `mapstructure:"speaking_rate"`
}

// MiniMaxConfig contains MiniMax TTS settings.
type MiniMaxConfig struct {
	APIKey     string  `mapstructure:"-"`
	Endpoint   string  `mapstructure:"endpoint"`
	Model      string  `mapstructure:"model"`
	VoiceID    string  `mapstructure:"voice_id"`
	Speed      float64 `mapstructure:"speed"`
	SampleRate int     `mapstructure:"sample_rate"`
	Bitrate    int     `mapstructure:"bitrate"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:          DefaultProvider,
		Timeout:           8 * time.Second,
		CacheBytes:        32 << 20,
		RequestsPerMinute: 60,

		Google:  DefaultGoogleConfig(),
		MiniMax: DefaultMiniMaxConfig(),
	}
}

// DefaultGoogleConfig returns default Google TTS configuration.
func DefaultGoogleConfig() GoogleConfig {
	return GoogleConfig{
		Endpoint:     "https://texttospeech.googleapis.com/v1/text:synthesize",
		LanguageCode: "en-US",
		VoiceName:    "en-US-Neural2-D",
		SpeakingRate: 1.0,
	}
}

// DefaultMiniMaxConfig returns default MiniMax configuration.
func DefaultMiniMaxConfig() MiniMaxConfig {
	return MiniMaxConfig{
		Endpoint:   "https://api.minimaxi.chat/v1/t2a_v2",
		Model:      "speech-01-turbo",
		VoiceID:    "male-qn-qingse",
		Speed:      0.8,
		SampleRate: 32000,
		Bitrate:    128000,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	p, err := ParseProvider(string(c.Provider))
	if err != nil {
		return err
	}
	c.Provider = p

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.CacheBytes < 0 {
		return fmt.Errorf("cache size must not be negative, got %d", c.CacheBytes)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests per minute must not be negative, got %d", c.RequestsPerMinute)
	}

	if c.Google.SpeakingRate < 0.25 || c.Google.SpeakingRate > 4.0 {
		return fmt.Errorf("google speaking rate must be between 0.25 and 4.0, got %.2f", c.Google.SpeakingRate)
	}
	if c.MiniMax.Speed < 0.5 || c.MiniMax.Speed > 2.0 {
		return fmt.Errorf("minimax speed must be between 0.5 and 2.0, got %.2f", c.MiniMax.Speed)
	}

	return nil
}
