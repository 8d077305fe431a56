package tts

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads speech configuration from the "tts" section of v.
// API keys are not read here; they come from the environment.
func LoadConfigFromViper(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	if v.IsSet("tts.provider") {
		cfg.Provider = Provider(v.GetString("tts.provider"))
	}
	if v.IsSet("tts.settings_file") {
		cfg.SettingsFile = v.GetString("tts.settings_file")
	}
	if v.IsSet("tts.timeout") {
		if d, err := time.ParseDuration(v.GetString("tts.timeout")); err == nil {
			cfg.Timeout = d
		}
	}
	if v.IsSet("tts.cache_bytes") {
		cfg.CacheBytes = v.GetInt64("tts.cache_bytes")
	}
	if v.IsSet("tts.requests_per_minute") {
		cfg.RequestsPerMinute = v.GetInt("tts.requests_per_minute")
	}

	cfg.Google = loadGoogleConfig(v)
	cfg.MiniMax = loadMiniMaxConfig(v)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid TTS configuration: %w", err)
	}

	return cfg, nil
}

// loadGoogleConfig loads Google TTS-specific configuration.
func loadGoogleConfig(v *viper.Viper) GoogleConfig {
	cfg := DefaultGoogleConfig()

	if v.IsSet("tts.google.endpoint") {
		cfg.Endpoint = v.GetString("tts.google.endpoint")
	}
	if v.IsSet("tts.google.language_code") {
		cfg.LanguageCode = v.GetString("tts.google.language_code")
	}
	if v.IsSet("tts.google.voice_name") {
		cfg.VoiceName = v.GetString("tts.google.voice_name")
	}
	if v.IsSet("tts.google.speaking_rate") {
		cfg.SpeakingRate = v.GetFloat64("tts.google.speaking_rate")
	}

	return cfg
}

// loadMiniMaxConfig loads MiniMax-specific configuration.
func loadMiniMaxConfig(v *viper.Viper) MiniMaxConfig {
	cfg := DefaultMiniMaxConfig()

	if v.IsSet("tts.minimax.endpoint") {
		cfg.Endpoint = v.GetString("tts.minimax.endpoint")
	}
	if v.IsSet("tts.minimax.model") {
		cfg.Model = v.GetString("tts.minimax.model")
	}
	if v.IsSet("tts.minimax.voice_id") {
		cfg.VoiceID = v.GetString("tts.minimax.voice_id")
	}
	if v.IsSet("tts.minimax.speed") {
		cfg.Speed = v.GetFloat64("tts.minimax.speed")
	}
	if v.IsSet("tts.minimax.sample_rate") {
		cfg.SampleRate = v.GetInt("tts.minimax.sample_rate")
	}
	if v.IsSet("tts.minimax.bitrate") {
		cfg.Bitrate = v.GetInt("tts.minimax.bitrate")
	}

	return cfg
}

// SetDefaults sets default values in v for the speech configuration.
func SetDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	v.SetDefault("tts.provider", string(defaults.Provider))
	v.SetDefault("tts.timeout", defaults.Timeout.String())
	v.SetDefault("tts.cache_bytes", defaults.CacheBytes)
	v.SetDefault("tts.requests_per_minute", defaults.RequestsPerMinute)

	v.SetDefault("tts.google.language_code", defaults.Google.LanguageCode)
	v.SetDefault("tts.google.voice_name", defaults.Google.VoiceName)
	v.SetDefault("tts.google.speaking_rate", defaults.Google.SpeakingRate)

	v.SetDefault("tts.minimax.model", defaults.MiniMax.Model)
	v.SetDefault("tts.minimax.voice_id", defaults.MiniMax.VoiceID)
	v.SetDefault("tts.minimax.speed", defaults.MiniMax.Speed)
}
