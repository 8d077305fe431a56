package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/spelldeck/spelldeck/internal/model"
)

const recordColumns = `id, user_id, grade, term, spelling_number, subject, title, source_image_url, content, created_at`

// CreateRecord inserts r, assigning its id and creation time when unset.
func (s *Store) CreateRecord(ctx context.Context, r *model.StudyRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}

	content, err := json.Marshal(r.Content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO study_records (`+recordColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.UserID, r.Grade, r.Term, r.SpellingNumber, r.Subject, r.Title, r.SourceImageURL, string(content), r.CreatedAt)
	if err != nil {
		if isPqErr(err, errUniqueViolation) {
			return ErrExists
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// GetRecord returns the user's record with the given id.
func (s *Store) GetRecord(ctx context.Context, userID, id string) (model.StudyRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM study_records WHERE id = $1 AND user_id = $2`, id, userID)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StudyRecord{}, ErrNotFound
	}
	if err != nil {
		return model.StudyRecord{}, fmt.Errorf("get record: %w", err)
	}
	return r, nil
}

// ListRecords returns the user's records, newest first.
func (s *Store) ListRecords(ctx context.Context, userID string) ([]model.StudyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM study_records WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := []model.StudyRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteRecord removes the record and its word media.
func (s *Store) DeleteRecord(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM word_media WHERE study_record_id = $1 AND user_id = $2`, id, userID); err != nil {
		return fmt.Errorf("delete word media: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM study_records WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (model.StudyRecord, error) {
	var (
		r       model.StudyRecord
		content string
	)
	err := sc.Scan(&r.ID, &r.UserID, &r.Grade, &r.Term, &r.SpellingNumber, &r.Subject,
		&r.Title, &r.SourceImageURL, &content, &r.CreatedAt)
	if err != nil {
		return model.StudyRecord{}, err
	}
	if err := json.Unmarshal([]byte(content), &r.Content); err != nil {
		return model.StudyRecord{}, fmt.Errorf("decode content: %w", err)
	}
	return r, nil
}
