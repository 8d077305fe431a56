// Package study creates and removes study records and their word media.
package study

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/spelldeck/spelldeck/internal/gemini"
	"github.com/spelldeck/spelldeck/internal/model"
	"github.com/spelldeck/spelldeck/internal/storage"
	"github.com/spelldeck/spelldeck/internal/store"
)

var (
	// ErrInvalidInput is returned for drafts that cannot become a record.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicate is returned when a draft repeats an existing record.
	ErrDuplicate = errors.New("duplicate record")

	// ErrNotFound is returned for records the user does not own.
	ErrNotFound = store.ErrNotFound
)

// DuplicateError carries the record a draft duplicates.
type DuplicateError struct {
	Record     model.StudyRecord
	Similarity float64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate of %s (%.0f%% similar)", e.Record.SpellingNumber, e.Similarity*100)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// RecordStore is the persistence the service needs.
type RecordStore interface {
	CreateRecord(ctx context.Context, r *model.StudyRecord) error
	GetRecord(ctx context.Context, userID, id string) (model.StudyRecord, error)
	ListRecords(ctx context.Context, userID string) ([]model.StudyRecord, error)
	DeleteRecord(ctx context.Context, userID, id string) error
	UpsertWordMedia(ctx context.Context, m model.WordMedia) (model.WordMedia, error)
	GetWordMedia(ctx context.Context, userID, recordID, word string) (model.WordMedia, error)
	ListWordMedia(ctx context.Context, userID, recordID string) ([]model.WordMedia, error)
}

// Draft is a confirmed scan ready to become a record.
type Draft struct {
	Grade          string
	Term           string
	SpellingNumber string
	Title          string
	SourceImage    string // data URI, optional
	Items          []model.WordItem
	// Force skips the duplicate check.
	Force bool
}

// Service implements record and media operations for one deployment.
type Service struct {
	records RecordStore
	buckets *storage.Buckets
	logger  *log.Logger
	now     func() time.Time
}

// NewService creates a study service.
func NewService(records RecordStore, buckets *storage.Buckets, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default().WithPrefix("study")
	}
	return &Service{records: records, buckets: buckets, logger: logger, now: time.Now}
}

// CreateRecord validates d, uploads its source image and stores the record.
// A failed image upload does not fail the record.
func (s *Service) CreateRecord(ctx context.Context, userID string, d Draft) (model.StudyRecord, error) {
	d = withDefaults(d)
	if err := validateDraft(d); err != nil {
		return model.StudyRecord{}, err
	}

	if !d.Force {
		existing, err := s.records.ListRecords(ctx, userID)
		if err != nil {
			return model.StudyRecord{}, fmt.Errorf("check duplicates: %w", err)
		}
		words := make([]string, 0, len(d.Items))
		for _, it := range d.Items {
			words = append(words, it.TargetWord)
		}
		if dup, ok := FindDuplicate(existing, words); ok {
			return model.StudyRecord{}, &DuplicateError{Record: *dup, Similarity: Similarity(dup.Words(), words)}
		}
	}

	now := s.now().UTC()
	sourceURL := ""
	if d.SourceImage != "" {
		url, err := s.uploadSource(ctx, userID, d.SourceImage, now)
		if err != nil {
			s.logger.Warn("source image upload failed, saving record without it", "user", userID, "err", err)
		} else {
			sourceURL = url
		}
	}

	items := make([]model.WordItem, 0, len(d.Items))
	for i, it := range d.Items {
		it.ID = i + 1
		it.TargetWord = strings.TrimSpace(it.TargetWord)
		if it.BlankedSentence == "" {
			it.BlankedSentence = gemini.Blank(it.Sentence, it.TargetWord)
		}
		if it.Phonetic == "" {
			it.Phonetic = model.DefaultPhonetic
		}
		items = append(items, it)
	}

	r := model.StudyRecord{
		UserID:         userID,
		Grade:          d.Grade,
		Term:           d.Term,
		SpellingNumber: d.SpellingNumber,
		Subject:        model.SubjectSpelling,
		Title:          fmt.Sprintf("%s %s %s", d.Grade, d.Term, d.SpellingNumber),
		SourceImageURL: sourceURL,
		Content: model.Content{
			Title:      d.SpellingNumber,
			Subtitle:   d.Title,
			CreatedAt:  now,
			TotalItems: len(items),
			Items:      items,
		},
		CreatedAt: now,
	}
	if err := s.records.CreateRecord(ctx, &r); err != nil {
		return model.StudyRecord{}, fmt.Errorf("save study record: %w", err)
	}

	s.logger.Info("created study record", "id", r.ID, "user", userID, "words", len(items))
	return r, nil
}

func (s *Service) uploadSource(ctx context.Context, userID, dataURI string, at time.Time) (string, error) {
	if err := checkScope(userID); err != nil {
		return "", err
	}
	data, mime, err := storage.DecodeDataURI(dataURI)
	if err != nil {
		return "", err
	}
	key := storage.SourceImagePath(userID, at)
	if err := s.buckets.Spelling.Put(ctx, key, data, mime); err != nil {
		return "", err
	}
	return s.buckets.Spelling.PublicURL(key), nil
}

// GetRecord returns one of the user's records.
func (s *Service) GetRecord(ctx context.Context, userID, id string) (model.StudyRecord, error) {
	return s.records.GetRecord(ctx, userID, id)
}

// ListRecords returns the user's records, newest first.
func (s *Service) ListRecords(ctx context.Context, userID string) ([]model.StudyRecord, error) {
	return s.records.ListRecords(ctx, userID)
}

// CheckDuplicate compares recognized words against the user's records.
func (s *Service) CheckDuplicate(ctx context.Context, userID string, words []string) (*DuplicateError, error) {
	existing, err := s.records.ListRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	dup, ok := FindDuplicate(existing, words)
	if !ok {
		return nil, nil
	}
	return &DuplicateError{Record: *dup, Similarity: Similarity(dup.Words(), words)}, nil
}

// DeleteRecord removes the record, its media rows and its stored objects.
// Object removal failures are logged.
func (s *Service) DeleteRecord(ctx context.Context, userID, id string) error {
	if err := s.records.DeleteRecord(ctx, userID, id); err != nil {
		return err
	}

	if err := checkScope(userID, id); err != nil {
		s.logger.Warn("not removing record objects", "user", userID, "record", id, "err", err)
		return nil
	}
	prefix := storage.RecordPrefix(userID, id)
	for _, b := range []storage.Bucket{s.buckets.Words, s.buckets.Audio} {
		if err := b.DeleteDir(ctx, prefix); err != nil {
			s.logger.Warn("failed to remove record objects", "bucket", b.Name(), "prefix", prefix, "err", err)
		}
	}
	return nil
}

// SaveWordImage uploads the image for item at its deterministic path and
// records it as the word's media.
func (s *Service) SaveWordImage(ctx context.Context, userID, recordID string, item model.WordItem, dataURI string) (model.WordMedia, error) {
	if err := checkScope(userID, recordID, item.TargetWord); err != nil {
		return model.WordMedia{}, err
	}
	data, mime, err := storage.DecodeDataURI(dataURI)
	if err != nil {
		return model.WordMedia{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	key := storage.WordImagePath(userID, recordID, item.TargetWord, storage.ExtForMIME(mime))
	if err := s.buckets.Words.Put(ctx, key, data, mime); err != nil {
		return model.WordMedia{}, fmt.Errorf("upload word image: %w", err)
	}

	m := model.MediaFromItem(userID, recordID, item, s.buckets.Words.PublicURL(key), s.now().UTC())
	saved, err := s.records.UpsertWordMedia(ctx, m)
	if err != nil {
		return model.WordMedia{}, fmt.Errorf("save word media: %w", err)
	}
	return saved, nil
}

// WordImageURL returns the public URL of the word's stored image.
func (s *Service) WordImageURL(ctx context.Context, userID, recordID, word string) (string, bool, error) {
	if err := checkScope(userID, recordID, word); err != nil {
		return "", false, err
	}
	for _, ext := range []string{"png", "jpg", "webp"} {
		key := storage.WordImagePath(userID, recordID, word, ext)
		ok, err := s.buckets.Words.Exists(ctx, key)
		if err != nil {
			return "", false, err
		}
		if ok {
			return s.buckets.Words.PublicURL(key), true, nil
		}
	}
	return "", false, nil
}

// RecordMedia lists the media rows of a record.
func (s *Service) RecordMedia(ctx context.Context, userID, recordID string) ([]model.WordMedia, error) {
	if _, err := s.records.GetRecord(ctx, userID, recordID); err != nil {
		return nil, err
	}
	return s.records.ListWordMedia(ctx, userID, recordID)
}

// Grades returns the sorted distinct grades of the user's records.
func (s *Service) Grades(ctx context.Context, userID string) ([]string, error) {
	records, err := s.records.ListRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	var grades []string
	for _, r := range records {
		if !slices.Contains(grades, r.Grade) {
			grades = append(grades, r.Grade)
		}
	}
	slices.Sort(grades)
	return grades, nil
}

// RecordsByGrade returns the user's records for grade, newest first.
func (s *Service) RecordsByGrade(ctx context.Context, userID, grade string) ([]model.StudyRecord, error) {
	return s.filter(ctx, userID, func(r model.StudyRecord) bool { return r.Grade == grade })
}

// RecordsByGradeTerm returns the user's records for grade and term.
func (s *Service) RecordsByGradeTerm(ctx context.Context, userID, grade, term string) ([]model.StudyRecord, error) {
	return s.filter(ctx, userID, func(r model.StudyRecord) bool { return r.Grade == grade && r.Term == term })
}

func (s *Service) filter(ctx context.Context, userID string, keep func(model.StudyRecord) bool) ([]model.StudyRecord, error) {
	records, err := s.records.ListRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []model.StudyRecord{}
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func withDefaults(d Draft) Draft {
	if d.Grade == "" {
		d.Grade = model.DefaultGrade
	}
	if d.Term == "" {
		d.Term = model.DefaultTerm
	}
	if d.SpellingNumber == "" {
		d.SpellingNumber = model.DefaultSpellingNumber
	}
	if d.Title == "" {
		d.Title = model.DefaultTitle
	}
	return d
}

// checkScope rejects key segments that would address another user's
// objects.
func checkScope(segments ...string) error {
	for _, seg := range segments {
		if err := storage.CheckSegment(seg); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	return nil
}

func validateDraft(d Draft) error {
	if len(d.Items) == 0 {
		return fmt.Errorf("%w: no words", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(d.Items))
	for i, it := range d.Items {
		w := strings.ToLower(strings.TrimSpace(it.TargetWord))
		if w == "" {
			return fmt.Errorf("%w: word %d is empty", ErrInvalidInput, i+1)
		}
		if err := storage.CheckSegment(w); err != nil {
			return fmt.Errorf("%w: word %d: %v", ErrInvalidInput, i+1, err)
		}
		if seen[w] {
			return fmt.Errorf("%w: duplicate word %q", ErrInvalidInput, it.TargetWord)
		}
		seen[w] = true
	}
	return nil
}
