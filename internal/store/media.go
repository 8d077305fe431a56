package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/spelldeck/spelldeck/internal/model"
)

const mediaColumns = `id, user_id, study_record_id, word, image_url, image_generated_at, meaning, word_type,
	phonetic, synonyms, antonyms, practice_sentences, memory_tip, sentence, created_at, updated_at`

// UpsertWordMedia inserts or updates the media row keyed by
// (user, record, word) and returns the stored row. Words are stored
// lowercased.
func (s *Store) UpsertWordMedia(ctx context.Context, m model.WordMedia) (model.WordMedia, error) {
	m.Word = strings.ToLower(strings.TrimSpace(m.Word))
	if m.Word == "" {
		return model.WordMedia{}, errors.New("word media: empty word")
	}

	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM study_records WHERE id = $1 AND user_id = $2`, m.StudyRecordID, m.UserID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WordMedia{}, ErrNotFound
	}
	if err != nil {
		return model.WordMedia{}, fmt.Errorf("check record: %w", err)
	}

	now := s.now().UTC()
	if m.ImageGeneratedAt.IsZero() {
		m.ImageGeneratedAt = now
	}
	synonyms, antonyms, practice, err := encodeLists(m)
	if err != nil {
		return model.WordMedia{}, err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO word_media (`+mediaColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (user_id, study_record_id, word) DO UPDATE SET
			image_url = excluded.image_url,
			image_generated_at = excluded.image_generated_at,
			meaning = excluded.meaning,
			word_type = excluded.word_type,
			phonetic = excluded.phonetic,
			synonyms = excluded.synonyms,
			antonyms = excluded.antonyms,
			practice_sentences = excluded.practice_sentences,
			memory_tip = excluded.memory_tip,
			sentence = excluded.sentence,
			updated_at = excluded.updated_at`,
		uuid.NewString(), m.UserID, m.StudyRecordID, m.Word, m.ImageURL, m.ImageGeneratedAt,
		m.Meaning, m.WordType, m.Phonetic, synonyms, antonyms, practice, m.MemoryTip, m.Sentence, now, now)
	if err != nil {
		if isPqErr(err, errForeignKeyViolation) {
			return model.WordMedia{}, ErrNotFound
		}
		return model.WordMedia{}, fmt.Errorf("upsert word media: %w", err)
	}

	return s.GetWordMedia(ctx, m.UserID, m.StudyRecordID, m.Word)
}

// GetWordMedia returns the media row for one word of a record.
func (s *Store) GetWordMedia(ctx context.Context, userID, recordID, word string) (model.WordMedia, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM word_media
		WHERE user_id = $1 AND study_record_id = $2 AND word = $3`,
		userID, recordID, strings.ToLower(strings.TrimSpace(word)))

	m, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WordMedia{}, ErrNotFound
	}
	if err != nil {
		return model.WordMedia{}, fmt.Errorf("get word media: %w", err)
	}
	return m, nil
}

// ListWordMedia returns every media row of a record ordered by word.
func (s *Store) ListWordMedia(ctx context.Context, userID, recordID string) ([]model.WordMedia, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+mediaColumns+` FROM word_media
		WHERE user_id = $1 AND study_record_id = $2 ORDER BY word`, userID, recordID)
	if err != nil {
		return nil, fmt.Errorf("list word media: %w", err)
	}
	defer rows.Close()

	media := []model.WordMedia{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("scan word media: %w", err)
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

func encodeLists(m model.WordMedia) (synonyms, antonyms, practice string, err error) {
	enc := func(v []string) (string, error) {
		if v == nil {
			v = []string{}
		}
		b, err := json.Marshal(v)
		return string(b), err
	}
	if synonyms, err = enc(m.Synonyms); err != nil {
		return
	}
	if antonyms, err = enc(m.Antonyms); err != nil {
		return
	}
	practice, err = enc(m.PracticeSentences)
	return
}

func scanMedia(sc scanner) (model.WordMedia, error) {
	var (
		m                            model.WordMedia
		generatedAt                  sql.NullTime
		synonyms, antonyms, practice string
	)
	err := sc.Scan(&m.ID, &m.UserID, &m.StudyRecordID, &m.Word, &m.ImageURL, &generatedAt,
		&m.Meaning, &m.WordType, &m.Phonetic, &synonyms, &antonyms, &practice,
		&m.MemoryTip, &m.Sentence, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return model.WordMedia{}, err
	}
	m.ImageGeneratedAt = generatedAt.Time

	for _, f := range []struct {
		raw string
		dst *[]string
	}{{synonyms, &m.Synonyms}, {antonyms, &m.Antonyms}, {practice, &m.PracticeSentences}} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return model.WordMedia{}, fmt.Errorf("decode word media lists: %w", err)
		}
	}
	return m, nil
}
