package engines

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spelldeck/spelldeck/tts"
)

func TestGoogle_Synthesize(t *testing.T) {
	audio := []byte("ID3-google")
	var got googleRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "g-key" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString(audio),
		})
	}))
	defer srv.Close()

	g := NewGoogle(tts.GoogleConfig{APIKey: "g-key", Endpoint: srv.URL})
	data, err := g.Synthesize(context.Background(), "apple", tts.Options{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(data) != string(audio) {
		t.Errorf("data = %q", data)
	}
	if got.Input.Text != "apple" || got.Voice.Name != "en-US-Neural2-D" || got.Voice.LanguageCode != "en-US" {
		t.Errorf("request = %+v", got)
	}
	if got.Voice.SSMLGender != "NEUTRAL" || got.AudioConfig.AudioEncoding != "MP3" || got.AudioConfig.SpeakingRate != 1.0 {
		t.Errorf("request = %+v", got)
	}

	if _, err := g.Synthesize(context.Background(), "apple", tts.Options{Voice: "en-GB-Neural2-A", Speed: 0.7}); err != nil {
		t.Fatal(err)
	}
	if got.Voice.Name != "en-GB-Neural2-A" || got.AudioConfig.SpeakingRate != 0.7 {
		t.Errorf("overrides ignored: %+v", got)
	}
}

func TestGoogle_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("key") {
		case "empty":
			_, _ = w.Write([]byte(`{}`))
		default:
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	if _, err := NewGoogle(tts.GoogleConfig{}).Synthesize(ctx, "apple", tts.Options{}); !errors.Is(err, tts.ErrNotConfigured) {
		t.Errorf("no key error = %v", err)
	}

	_, err := NewGoogle(tts.GoogleConfig{APIKey: "x", Endpoint: srv.URL}).Synthesize(ctx, "apple", tts.Options{})
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusTooManyRequests || se.Provider != tts.Google {
		t.Errorf("status error = %v", err)
	}

	_, err = NewGoogle(tts.GoogleConfig{APIKey: "empty", Endpoint: srv.URL}).Synthesize(ctx, "apple", tts.Options{})
	if !errors.Is(err, tts.ErrNoAudio) {
		t.Errorf("empty response error = %v", err)
	}
}

func TestMiniMax_Synthesize(t *testing.T) {
	audio := []byte("ID3-minimax")
	var got miniMaxRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer m-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":      map[string]string{"audio": hex.EncodeToString(audio)},
			"base_resp": map[string]any{"status_code": 0, "status_msg": "success"},
		})
	}))
	defer srv.Close()

	m := NewMiniMax(tts.MiniMaxConfig{APIKey: "m-key", Endpoint: srv.URL})
	data, err := m.Synthesize(context.Background(), "apple", tts.Options{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(data) != string(audio) {
		t.Errorf("data = %q", data)
	}
	if got.Model != "speech-01-turbo" || got.Text != "apple" {
		t.Errorf("request = %+v", got)
	}
	if got.VoiceSetting.VoiceID != "male-qn-qingse" || got.VoiceSetting.Speed != 0.8 || got.VoiceSetting.Vol != 1.0 {
		t.Errorf("voice setting = %+v", got.VoiceSetting)
	}
	if got.AudioSetting.SampleRate != 32000 || got.AudioSetting.Bitrate != 128000 || got.AudioSetting.Format != "mp3" {
		t.Errorf("audio setting = %+v", got.AudioSetting)
	}
}

func TestMiniMax_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"base_resp":{"status_code":1004,"status_msg":"authentication failed"}}`))
	}))
	defer srv.Close()

	_, err := NewMiniMax(tts.MiniMaxConfig{APIKey: "bad", Endpoint: srv.URL}).
		Synthesize(context.Background(), "apple", tts.Options{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Code != 1004 || apiErr.Message != "authentication failed" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestMiniMax_NoAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"base_resp":{"status_code":0}}`))
	}))
	defer srv.Close()

	_, err := NewMiniMax(tts.MiniMaxConfig{APIKey: "k", Endpoint: srv.URL}).
		Synthesize(context.Background(), "apple", tts.Options{})
	if !errors.Is(err, tts.ErrNoAudio) {
		t.Fatalf("error = %v, want ErrNoAudio", err)
	}
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"audioContent":"QQ=="}`))
	}))
	defer srv.Close()

	g := NewGoogle(tts.GoogleConfig{APIKey: "k", Endpoint: srv.URL}, WithRequestsPerMinute(1))
	if _, err := g.Synthesize(context.Background(), "a", tts.Options{}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Synthesize(ctx, "b", tts.Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestEnginesSatisfyInterface(t *testing.T) {
	var _ tts.Engine = NewGoogle(tts.GoogleConfig{})
	var _ tts.Engine = NewMiniMax(tts.MiniMaxConfig{})
}
