package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spelldeck/spelldeck/internal/model"
	"github.com/spelldeck/spelldeck/internal/storage"
)

const ocrPrompt = `This is a photo of an English spelling dictation worksheet. Read it carefully and extract:

1. Grade: such as P3, P4, P5
2. Term: such as Term 1, Term 2
3. Spelling number: such as Spelling(2), Spelling 3
4. Title or unit: the theme of the dictation
5. Word list: each word with its example sentence (used for fill-in-the-blank practice)

Return JSON in this shape:
{
  "grade": "P3",
  "term": "Term 2",
  "spellingNumber": "Spelling(2)",
  "title": "Unit 2 - The Lion and the Mouse",
  "words": [
    {"word": "souvenir", "sentence": "My parents bought me a kangaroo soft toy as a souvenir during our trip."},
    {"word": "thoroughly", "sentence": "Please check your work thoroughly before submitting."}
  ]
}

Notes:
- If a field cannot be read from the image, use a sensible default
- Make sure each sentence contains its target word
- Return only the JSON, with no other text`

// RecognizedWord is a word read off a worksheet.
type RecognizedWord struct {
	Word     string `json:"word"`
	Sentence string `json:"sentence"`
}

// Recognition is the structured result of worksheet OCR.
type Recognition struct {
	Grade          string           `json:"grade"`
	Term           string           `json:"term"`
	SpellingNumber string           `json:"spellingNumber"`
	Title          string           `json:"title"`
	Words          []RecognizedWord `json:"words"`
}

// WordList returns the recognized words in order.
func (r Recognition) WordList() []string {
	words := make([]string, 0, len(r.Words))
	for _, w := range r.Words {
		words = append(words, w.Word)
	}
	return words
}

// ExtractSpelling reads a worksheet photo given as a data URI or bare
// base64 JPEG.
func (c *Client) ExtractSpelling(ctx context.Context, image string) (Recognition, error) {
	req := generateRequest{
		Contents: []content{{Parts: []part{
			{Text: ocrPrompt},
			{InlineData: &inlineData{MimeType: "image/jpeg", Data: storage.StripDataURIPrefix(image)}},
		}}},
	}

	resp, err := c.generate(ctx, TextModel, req, c.config.OCRTimeout)
	if err != nil {
		return Recognition{}, err
	}
	text, err := resp.firstText()
	if err != nil {
		return Recognition{}, err
	}
	raw, err := extractJSON(text)
	if err != nil {
		return Recognition{}, err
	}

	var rec Recognition
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Recognition{}, fmt.Errorf("parse recognition: %w", err)
	}
	rec.applyDefaults()

	c.logger.Info("worksheet recognized", "words", len(rec.Words), "spelling", rec.SpellingNumber)
	return rec, nil
}

func (r *Recognition) applyDefaults() {
	if r.Grade == "" {
		r.Grade = model.DefaultGrade
	}
	if r.Term == "" {
		r.Term = model.DefaultTerm
	}
	if r.SpellingNumber == "" {
		r.SpellingNumber = model.DefaultSpellingNumber
	}
	if r.Title == "" {
		r.Title = model.DefaultTitle
	}
	if r.Words == nil {
		r.Words = []RecognizedWord{}
	}
}
