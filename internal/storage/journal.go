package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// AppendJournal records a transition. ID and CreatedAt are filled in when
// empty.
func (s *Store) AppendJournal(ctx context.Context, e JournalEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var total sql.NullInt64
	if e.TotalXP != nil {
		total = sql.NullInt64{Int64: int64(*e.TotalXP), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal (id, created_at, kind, quest_id, title, reward, total_xp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, formatTime(e.CreatedAt), e.Kind, e.QuestID, e.Title, e.Reward, total,
	)
	return err
}

// ListJournal returns up to limit entries, newest first. A limit <= 0
// returns everything.
func (s *Store) ListJournal(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, kind, quest_id, title, reward, total_xp
		FROM journal ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var (
			e         JournalEntry
			createdAt string
			total     sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &createdAt, &e.Kind, &e.QuestID, &e.Title, &e.Reward, &total); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		if total.Valid {
			n := int(total.Int64)
			e.TotalXP = &n
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
