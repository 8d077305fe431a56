package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spelldeck/spelldeck/internal/model"
)

const (
	enrichConcurrency = 3
	enrichBatchDelay  = 100 * time.Millisecond
)

// Enrichment is the lexical detail generated for one word.
type Enrichment struct {
	Meaning           string   `json:"meaning"`
	WordType          string   `json:"wordType"`
	Synonyms          []string `json:"synonyms"`
	Antonyms          []string `json:"antonyms"`
	PracticeSentences []string `json:"practiceSentences"`
	MemoryTip         string   `json:"memoryTip"`
}

// DefaultEnrichment is used for words whose enrichment failed.
func DefaultEnrichment() Enrichment {
	return Enrichment{
		WordType:          model.DefaultWordType,
		Synonyms:          []string{},
		Antonyms:          []string{},
		PracticeSentences: []string{},
	}
}

// Apply copies the enrichment into item.
func (e Enrichment) Apply(item model.WordItem) model.WordItem {
	item.Meaning = e.Meaning
	item.WordType = e.WordType
	item.Synonyms = e.Synonyms
	item.Antonyms = e.Antonyms
	item.PracticeSentences = e.PracticeSentences
	item.MemoryTip = e.MemoryTip
	return item
}

// GradeLevel expands a grade code: P3 is "Primary 3", S1 is "Secondary 1".
func GradeLevel(grade string) string {
	if n, ok := strings.CutPrefix(grade, "P"); ok {
		return "Primary " + n
	}
	return "Secondary " + strings.TrimPrefix(grade, "S")
}

func enrichPrompt(word, sentence, level string) string {
	return fmt.Sprintf(`You are an English teacher creating vocabulary cards for Singapore %[3]s students.

Given the word "%[1]s" and its context: "%[2]s",
please generate the following information in JSON format:

{
  "meaning": "Chinese definition (concise and accurate)",
  "wordType": "part of speech (noun/verb/adjective/adverb etc.)",
  "synonyms": ["synonym1", "synonym2", "synonym3"],
  "antonyms": ["antonym1", "antonym2"],
  "practiceSentences": [
    "a complete sentence using %[1]s in a new context",
    "another complete sentence using %[1]s in a different context"
  ],
  "memoryTip": "a fun, short tip that helps students remember the word"
}

Requirements:
1. Synonyms: 2-3 words with increasing difficulty (easy to advanced)
2. Antonyms: 2-3 words if applicable (if no clear antonyms, provide fewer or skip)
3. Practice sentences: Must be complete sentences using "%[1]s", different contexts from the original
4. Difficulty: Appropriate for %[3]s students
5. Memory tip: Creative, memorable, can include wordplay or associations

Return ONLY the JSON object, no other text.`, word, sentence, level)
}

// EnrichWord generates meaning, synonyms and practice material for word.
func (c *Client) EnrichWord(ctx context.Context, word, sentence, grade string) (Enrichment, error) {
	if grade == "" {
		grade = model.DefaultGrade
	}
	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: enrichPrompt(word, sentence, GradeLevel(grade))}}}},
	}

	resp, err := c.generate(ctx, TextModel, req, c.config.EnrichTimeout)
	if err != nil {
		return Enrichment{}, err
	}
	text, err := resp.firstText()
	if err != nil {
		return Enrichment{}, err
	}
	raw, err := extractJSON(text)
	if err != nil {
		return Enrichment{}, err
	}

	var e Enrichment
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Enrichment{}, fmt.Errorf("parse enrichment: %w", err)
	}
	return normalizeEnrichment(e, word), nil
}

func normalizeEnrichment(e Enrichment, word string) Enrichment {
	if e.WordType == "" {
		e.WordType = model.DefaultWordType
	}
	e.Synonyms = truncate(e.Synonyms, 3)
	e.Antonyms = truncate(e.Antonyms, 3)

	practice := truncate(e.PracticeSentences, 2)
	for i, s := range practice {
		practice[i] = Blank(s, word)
	}
	e.PracticeSentences = practice
	return e
}

func truncate(s []string, n int) []string {
	out := make([]string, 0, min(len(s), n))
	for i := 0; i < len(s) && i < n; i++ {
		out = append(out, s[i])
	}
	return out
}

// EnrichBatch enriches items in groups of three with a short pause between
// groups. A word that fails gets DefaultEnrichment; only cancellation fails
// the batch.
func (c *Client) EnrichBatch(ctx context.Context, items []model.WordItem, grade string) ([]model.WordItem, error) {
	out := make([]model.WordItem, len(items))
	copy(out, items)

	for start := 0; start < len(items); start += enrichConcurrency {
		if start > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(enrichBatchDelay):
			}
		}

		end := min(start+enrichConcurrency, len(items))
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				e, err := c.EnrichWord(gctx, items[i].TargetWord, items[i].Sentence, grade)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					c.logger.Warn("enrichment failed, using defaults", "word", items[i].TargetWord, "err", err)
					e = DefaultEnrichment()
				}
				out[i] = e.Apply(items[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
