package gemini

import (
	"regexp"
	"strings"
)

// BlankMarker replaces the target word in practice sentences.
const BlankMarker = "________"

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// Blank replaces every case-insensitive occurrence of word in sentence.
func Blank(sentence, word string) string {
	word = strings.TrimSpace(word)
	if word == "" {
		return sentence
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(word))
	return re.ReplaceAllLiteralString(sentence, BlankMarker)
}

// extractJSON returns the outermost {...} block of text.
func extractJSON(text string) (string, error) {
	m := jsonObject.FindString(text)
	if m == "" {
		return "", ErrNoJSON
	}
	return m, nil
}
