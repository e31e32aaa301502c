package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaveDraft replaces the current draft.
func (s *Store) SaveDraft(ctx context.Context, text, source string) (Draft, error) {
	d := Draft{
		ID:        uuid.NewString(),
		Text:      text,
		Source:    source,
		UpdatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Draft{}, fmt.Errorf("beginning draft transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM drafts`); err != nil {
		return Draft{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO drafts (id, text, source, updated_at) VALUES (?, ?, ?, ?)`,
		d.ID, d.Text, d.Source, formatTime(d.UpdatedAt),
	); err != nil {
		return Draft{}, err
	}
	if err := tx.Commit(); err != nil {
		return Draft{}, fmt.Errorf("committing draft: %w", err)
	}
	return d, nil
}

// CurrentDraft returns the saved draft or ErrNotFound.
func (s *Store) CurrentDraft(ctx context.Context) (Draft, error) {
	var (
		d         Draft
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, text, source, updated_at FROM drafts ORDER BY updated_at DESC LIMIT 1`,
	).Scan(&d.ID, &d.Text, &d.Source, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, err
	}
	if d.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// DiscardDraft deletes the saved draft, if any.
func (s *Store) DiscardDraft(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drafts`)
	return err
}
