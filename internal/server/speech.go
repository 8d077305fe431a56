package server

import (
	"errors"
	"net/http"

	"github.com/spelldeck/spelldeck/internal/cache"
	"github.com/spelldeck/spelldeck/tts"
)

type cacheStatsResponse struct {
	Success bool              `json:"success"`
	Images  cache.Stats       `json:"images"`
	Audio   tts.SelectorStats `json:"audio"`
}

func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	resp := cacheStatsResponse{Success: true}
	if s.deps.ImageCache != nil {
		resp.Images = s.deps.ImageCache.Stats()
	}
	if s.deps.Speech != nil {
		resp.Audio = s.deps.Speech.StatsFor(UserIDFromContext(r.Context()))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	if s.deps.ImageCache != nil {
		if err := s.deps.ImageCache.Clear(); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if s.deps.Speech != nil {
		s.deps.Speech.ClearCache()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type providerInfo struct {
	ID        tts.Provider `json:"id"`
	Label     string       `json:"label"`
	Available bool         `json:"available"`
}

type providerResponse struct {
	Success   bool           `json:"success"`
	Provider  tts.Provider   `json:"provider"`
	Providers []providerInfo `json:"providers"`
	Message   string         `json:"message,omitempty"`
}

func (s *Server) providerState(user, msg string) providerResponse {
	resp := providerResponse{Success: true, Provider: s.deps.Speech.CurrentFor(user), Message: msg}
	for _, p := range tts.Providers {
		resp.Providers = append(resp.Providers, providerInfo{ID: p, Label: p.Label(), Available: s.deps.Speech.Available(p)})
	}
	return resp
}

func (s *Server) getProvider(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.providerState(UserIDFromContext(r.Context()), ""))
}

type setProviderRequest struct {
	Provider string `json:"provider" validate:"required,oneof=google minimax browser"`
}

func (s *Server) setProvider(w http.ResponseWriter, r *http.Request) {
	var req setProviderRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user := UserIDFromContext(r.Context())
	msg, err := s.deps.Speech.SetFor(user, tts.Provider(req.Provider))
	if err != nil {
		writeJSON(w, statusFor(err), struct {
			errorBody
			Message string `json:"message,omitempty"`
		}{errorBody{Error: err.Error()}, msg})
		return
	}
	writeJSON(w, http.StatusOK, s.providerState(user, msg))
}

type speakRequest struct {
	Text  string  `json:"text" validate:"required,max=5000"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed" validate:"omitempty,gt=0,lte=4"`
}

type speakResponse struct {
	Success     bool         `json:"success"`
	Provider    tts.Provider `json:"provider"`
	AudioBase64 string       `json:"audio_base64,omitempty"`
	Format      string       `json:"format,omitempty"`
	Native      bool         `json:"native"`
	Rate        float64      `json:"rate,omitempty"`
	Cached      bool         `json:"cached"`
}

type speakFailure struct {
	Success  bool           `json:"success"`
	Error    string         `json:"error"`
	Message  string         `json:"message"`
	Provider tts.Provider   `json:"provider"`
	Suggest  []tts.Provider `json:"suggest"`
}

// speak uses the selected provider only. A failure names the provider and
// the alternatives the user may switch to.
func (s *Server) speak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user := UserIDFromContext(r.Context())
	audio, err := s.deps.Speech.SpeakFor(r.Context(), user, req.Text, tts.Options{Voice: req.Voice, Speed: req.Speed})
	if err != nil {
		var te *tts.Error
		if !errors.As(err, &te) {
			s.writeError(w, r, err)
			return
		}
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, speakFailure{
			Error:    err.Error(),
			Message:  te.UserMessage(),
			Provider: te.Provider,
			Suggest:  te.SuggestSwitch(),
		})
		return
	}

	resp := speakResponse{
		Success:  true,
		Provider: audio.Provider,
		Native:   audio.Native(),
		Rate:     audio.Rate,
		Cached:   audio.Cached,
	}
	if !audio.Native() {
		resp.AudioBase64 = audio.Base64()
		resp.Format = audio.Format
	}
	writeJSON(w, http.StatusOK, resp)
}

type preloadRequest struct {
	Words []string `json:"words" validate:"required,min=1,max=100,dive,required"`
	Voice string   `json:"voice"`
}

// preload warms the audio cache for a word list, typically a record about
// to be practised.
func (s *Server) preload(w http.ResponseWriter, r *http.Request) {
	var req preloadRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user := UserIDFromContext(r.Context())
	loaded := s.deps.Speech.PreloadFor(r.Context(), user, req.Words, tts.Options{Voice: req.Voice})
	writeJSON(w, http.StatusOK, struct {
		Success  bool         `json:"success"`
		Loaded   int          `json:"loaded"`
		Provider tts.Provider `json:"provider"`
	}{true, loaded, s.deps.Speech.CurrentFor(user)})
}
