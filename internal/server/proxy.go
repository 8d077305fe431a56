package server

import (
	"net/http"
	"strings"

	"github.com/spelldeck/spelldeck/internal/gemini"
	"github.com/spelldeck/spelldeck/internal/model"
	"github.com/spelldeck/spelldeck/tts"
)

type ttsRequest struct {
	Text     string  `json:"text" validate:"required,max=5000"`
	Voice    string  `json:"voice"`
	Speed    float64 `json:"speed" validate:"omitempty,gt=0,lte=4"`
	Provider string  `json:"provider" validate:"omitempty,oneof=auto google minimax"`
}

type ttsResponse struct {
	Success     bool         `json:"success"`
	AudioBase64 string       `json:"audio_base64"`
	Format      string       `json:"format"`
	Provider    tts.Provider `json:"provider"`
}

// proxyTTS synthesizes with one named provider or, in auto mode, with the
// first configured provider that succeeds.
func (s *Server) proxyTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	// Voice ids are provider specific, so auto mode uses each default.
	engines := s.deps.Engines
	opts := tts.Options{Speed: req.Speed}
	if req.Provider != "" && req.Provider != "auto" {
		engines = nil
		for _, e := range s.deps.Engines {
			if string(e.Provider()) == req.Provider {
				engines = append(engines, e)
			}
		}
		opts.Voice = req.Voice
	}

	audio, err := tts.NewChain(s.timeout, s.logger, engines...).Speak(r.Context(), req.Text, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ttsResponse{
		Success:     true,
		AudioBase64: audio.Base64(),
		Format:      audio.Format,
		Provider:    audio.Provider,
	})
}

type extractRequest struct {
	ImageData string `json:"imageData" validate:"required"`
}

type duplicateInfo struct {
	Record     model.StudyRecord `json:"record"`
	Similarity float64           `json:"similarity"`
}

type extractResponse struct {
	Success   bool               `json:"success"`
	Data      gemini.Recognition `json:"data"`
	Duplicate *duplicateInfo     `json:"duplicate,omitempty"`
}

// extractSpelling reads a worksheet photo. A signed-in caller also learns
// whether the words repeat one of their records.
func (s *Server) extractSpelling(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.deps.AI.ExtractSpelling(r.Context(), req.ImageData)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := extractResponse{Success: true, Data: rec}
	if uid := UserIDFromContext(r.Context()); uid != "" && s.deps.Records != nil {
		dup, err := s.deps.Records.CheckDuplicate(r.Context(), uid, rec.WordList())
		if err != nil {
			s.logger.Warn("duplicate check failed", "user", uid, "err", err)
		} else if dup != nil {
			resp.Duplicate = &duplicateInfo{Record: dup.Record, Similarity: dup.Similarity}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type generateImageRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	Width  int    `json:"width" validate:"omitempty,min=64,max=2048"`
	Height int    `json:"height" validate:"omitempty,min=64,max=2048"`
}

type generateImageResponse struct {
	Success bool `json:"success"`
	gemini.Image
}

func (s *Server) generateImage(w http.ResponseWriter, r *http.Request) {
	var req generateImageRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Width == 0 {
		req.Width = 1024
	}
	if req.Height == 0 {
		req.Height = 1024
	}

	img, err := s.deps.AI.GenerateImage(r.Context(), req.Prompt, req.Width, req.Height)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateImageResponse{Success: true, Image: img})
}

type enrichRequest struct {
	Word     string `json:"word" validate:"required"`
	Sentence string `json:"sentence" validate:"required"`
	Grade    string `json:"grade"`
}

type enrichResponse struct {
	Success bool              `json:"success"`
	Data    gemini.Enrichment `json:"data"`
}

func (s *Server) enrichWord(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Grade) == "" {
		req.Grade = model.DefaultGrade
	}

	e, err := s.deps.AI.EnrichWord(r.Context(), req.Word, req.Sentence, req.Grade)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrichResponse{Success: true, Data: e})
}

type healthResponse struct {
	Status                    string `json:"status"`
	TTSConfigured             bool   `json:"tts_configured"`
	OCRConfigured             bool   `json:"ocr_configured"`
	ImageGenerationConfigured bool   `json:"image_generation_configured"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	ttsReady := false
	for _, e := range s.deps.Engines {
		if e.Configured() {
			ttsReady = true
			break
		}
	}
	aiReady := s.deps.AI != nil && s.deps.AI.Configured()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:                    "ok",
		TTSConfigured:             ttsReady,
		OCRConfigured:             aiReady,
		ImageGenerationConfigured: aiReady,
	})
}
