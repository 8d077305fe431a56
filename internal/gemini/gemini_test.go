package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spelldeck/spelldeck/internal/model"
)

func textResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "test-key", BaseURL: srv.URL})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestBlank(t *testing.T) {
	assert.Equal(t, "The ________ sat on the mat.", Blank("The cat sat on the mat.", "cat"))
	assert.Equal(t, "________ and ________", Blank("Apple and APPLE", "apple"))
	assert.Equal(t, "unchanged", Blank("unchanged", ""))
	assert.Equal(t, "a ________ b", Blank("a c++ b", "c++"))
}

func TestGradeLevel(t *testing.T) {
	assert.Equal(t, "Primary 3", GradeLevel("P3"))
	assert.Equal(t, "Secondary 1", GradeLevel("S1"))
}

func TestNotConfigured(t *testing.T) {
	c := New(Config{})
	_, err := c.ExtractSpelling(context.Background(), "data:image/jpeg;base64,AAAA")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.GenerateImage(context.Background(), "cat", 1024, 1024)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, c.Configured())
}

func TestExtractSpelling(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents[0].Parts, 2)
		assert.Equal(t, "AAAA", req.Contents[0].Parts[1].InlineData.Data)
		assert.Equal(t, "image/jpeg", req.Contents[0].Parts[1].InlineData.MimeType)

		writeJSON(w, textResponse("Here you go:\n```json\n{\"grade\":\"P4\",\"words\":[{\"word\":\"souvenir\",\"sentence\":\"A souvenir.\"}]}\n```"))
	})

	rec, err := c.ExtractSpelling(context.Background(), "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "P4", rec.Grade)
	assert.Equal(t, model.DefaultTerm, rec.Term)
	assert.Equal(t, model.DefaultSpellingNumber, rec.SpellingNumber)
	assert.Equal(t, model.DefaultTitle, rec.Title)
	assert.Equal(t, []string{"souvenir"}, rec.WordList())
}

func TestExtractSpelling_NoJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, textResponse("sorry, I cannot read this"))
	})

	_, err := c.ExtractSpelling(context.Background(), "AAAA")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, textResponse(`{"meaning":"苹果"}`))
	})

	e, err := c.EnrichWord(context.Background(), "apple", "An apple a day.", "P3")
	require.NoError(t, err)
	assert.Equal(t, "苹果", e.Meaning)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusForbidden)
	})

	_, err := c.EnrichWord(context.Background(), "apple", "", "P3")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEnrichWord_Normalizes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "Primary 5")
		writeJSON(w, textResponse(`{
			"meaning": "勇敢的",
			"synonyms": ["bold", "daring", "fearless", "heroic"],
			"antonyms": ["timid"],
			"practiceSentences": ["The Brave knight won.", "She was brave.", "A third one."],
			"memoryTip": "brave = be strong"
		}`))
	})

	e, err := c.EnrichWord(context.Background(), "brave", "He is brave.", "P5")
	require.NoError(t, err)
	assert.Equal(t, "noun", e.WordType)
	assert.Equal(t, []string{"bold", "daring", "fearless"}, e.Synonyms)
	assert.Equal(t, []string{"timid"}, e.Antonyms)
	assert.Equal(t, []string{"The ________ knight won.", "She was ________."}, e.PracticeSentences)
}

func TestEnrichBatch_DefaultsOnFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `\"broken\"`) {
			http.Error(w, "nope", http.StatusBadRequest)
			return
		}
		writeJSON(w, textResponse(`{"meaning":"ok","wordType":"verb"}`))
	})

	items := []model.WordItem{
		{ID: 1, TargetWord: "run", Sentence: "I run."},
		{ID: 2, TargetWord: "broken", Sentence: "It is broken."},
		{ID: 3, TargetWord: "jump", Sentence: "We jump."},
		{ID: 4, TargetWord: "swim", Sentence: "They swim."},
	}
	out, err := c.EnrichBatch(context.Background(), items, "P3")
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.Equal(t, "verb", out[0].WordType)
	assert.Equal(t, "ok", out[3].Meaning)
	assert.Equal(t, "", out[1].Meaning)
	assert.Equal(t, "noun", out[1].WordType)
	assert.Equal(t, "broken", out[1].TargetWord)
	assert.Equal(t, 2, out[1].ID)
}

func TestGenerateImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash-image:generateContent", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, strings.HasSuffix(req.Contents[0].Parts[0].Text, imagePromptSuffix))
		assert.Equal(t, []string{"TEXT", "IMAGE"}, req.GenerationConfig.ResponseModalities)

		writeJSON(w, map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{
				map[string]any{"text": "A cat"},
				map[string]any{"inlineData": map[string]any{"data": "iVBOR"}},
			}}}},
		})
	})

	img, err := c.GenerateImage(context.Background(), FlashcardPrompt("cat", "The cat sleeps."), 1024, 1024)
	require.NoError(t, err)
	assert.Equal(t, "iVBOR", img.Base64)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, "A cat", img.Text)
	assert.Equal(t, "data:image/png;base64,iVBOR", img.DataURI())
}

func TestGenerateImage_NoImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, textResponse("I can only describe it"))
	})

	_, err := c.GenerateImage(context.Background(), "cat", 1024, 1024)
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestFlashcardPrompt(t *testing.T) {
	p := FlashcardPrompt("kangaroo", "We saw a kangaroo.")
	assert.Contains(t, p, `illustration of "kangaroo"`)
	assert.Contains(t, p, `CONTEXT: "We saw a kangaroo."`)
	assert.Contains(t, p, "65-75% of the image area")
}
