// Package model contains the record types shared by the store, the study
// service, the resolver and the HTTP layer. It exists to break import
// cycles between those packages.
package model

import (
	"strings"
	"time"
)

// Defaults applied to drafts and word media.
const (
	DefaultGrade          = "P3"
	DefaultTerm           = "Term 1"
	DefaultSpellingNumber = "Spelling(1)"
	DefaultTitle          = "Untitled"
	DefaultWordType       = "noun"
	DefaultPhonetic       = "/fəˈnetɪk/"

	SubjectSpelling = "Spelling"
)

// Grades and Terms are the values offered when confirming a scan.
var (
	Grades = []string{"P1", "P2", "P3", "P4", "P5", "P6"}
	Terms  = []string{"Term 1", "Term 2", "Term 3", "Term 4"}
)

// WordItem is one word of a worksheet. Items are immutable once the record
// is created.
type WordItem struct {
	ID                int      `json:"id"`
	TargetWord        string   `json:"target_word"`
	Sentence          string   `json:"sentence"`
	BlankedSentence   string   `json:"blanked_sentence"`
	Phonetic          string   `json:"phonetic"`
	Meaning           string   `json:"meaning,omitempty"`
	WordType          string   `json:"word_type,omitempty"`
	Synonyms          []string `json:"synonyms,omitempty"`
	Antonyms          []string `json:"antonyms,omitempty"`
	PracticeSentences []string `json:"practice_sentences,omitempty"`
	MemoryTip         string   `json:"memory_tip,omitempty"`
}

// Content is the embedded word list of a record.
type Content struct {
	Title      string     `json:"title"`
	Subtitle   string     `json:"subtitle"`
	CreatedAt  time.Time  `json:"created_at"`
	TotalItems int        `json:"total_items"`
	Items      []WordItem `json:"items"`
}

// StudyRecord is one scanned worksheet.
type StudyRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Grade          string    `json:"grade"`
	Term           string    `json:"term"`
	SpellingNumber string    `json:"spelling_number"`
	Subject        string    `json:"subject"`
	Title          string    `json:"title"`
	SourceImageURL string    `json:"source_image_url,omitempty"`
	Content        Content   `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Words returns the record's target words in item order.
func (r StudyRecord) Words() []string {
	words := make([]string, 0, len(r.Content.Items))
	for _, it := range r.Content.Items {
		words = append(words, it.TargetWord)
	}
	return words
}

// Item looks up an item by target word, ignoring case.
func (r StudyRecord) Item(word string) (WordItem, bool) {
	for _, it := range r.Content.Items {
		if strings.EqualFold(it.TargetWord, strings.TrimSpace(word)) {
			return it, true
		}
	}
	return WordItem{}, false
}

// WordMedia is the illustration of one word within one record, with the
// word's lexical fields copied alongside.
type WordMedia struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	StudyRecordID     string    `json:"study_record_id"`
	Word              string    `json:"word"`
	ImageURL          string    `json:"image_url"`
	ImageGeneratedAt  time.Time `json:"image_generated_at"`
	Meaning           string    `json:"meaning"`
	WordType          string    `json:"word_type"`
	Phonetic          string    `json:"phonetic"`
	Synonyms          []string  `json:"synonyms"`
	Antonyms          []string  `json:"antonyms"`
	PracticeSentences []string  `json:"practice_sentences"`
	MemoryTip         string    `json:"memory_tip"`
	Sentence          string    `json:"sentence"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// MediaFromItem builds the media row for item with defaults applied.
func MediaFromItem(userID, recordID string, item WordItem, imageURL string, at time.Time) WordMedia {
	m := WordMedia{
		UserID:            userID,
		StudyRecordID:     recordID,
		Word:              item.TargetWord,
		ImageURL:          imageURL,
		ImageGeneratedAt:  at,
		Meaning:           item.Meaning,
		WordType:          item.WordType,
		Phonetic:          item.Phonetic,
		Synonyms:          item.Synonyms,
		Antonyms:          item.Antonyms,
		PracticeSentences: item.PracticeSentences,
		MemoryTip:         item.MemoryTip,
		Sentence:          item.Sentence,
	}
	if m.WordType == "" {
		m.WordType = DefaultWordType
	}
	if m.Phonetic == "" {
		m.Phonetic = DefaultPhonetic
	}
	return m
}
