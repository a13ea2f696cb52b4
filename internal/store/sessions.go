package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialised")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions
                (id, preset_id, purpose, background, instructions, themes, phase_profile, report_target, current_index, status)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.PresetID, sess.Purpose, sess.Background, sess.Instructions,
		orDefault(sess.Themes, "[]"), sess.PhaseProfile, sess.ReportTarget, sess.CurrentIndex,
		orDefault(sess.Status, SessionActive))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	var sess Session
	if err := s.db.GetContext(ctx, &sess, `SELECT * FROM sessions WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	return &sess, nil
}

// SessionUpdate carries the mutable session fields; nil members are left
// untouched.
type SessionUpdate struct {
	CurrentIndex *int
	Status       *string
}

// UpdateSession applies a partial update to a session row.
func (s *Store) UpdateSession(ctx context.Context, id string, upd SessionUpdate) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialised")
	}
	if upd.CurrentIndex == nil && upd.Status == nil {
		return nil
	}
	query := `UPDATE sessions SET updated_at = CURRENT_TIMESTAMP`
	args := []interface{}{}
	if upd.CurrentIndex != nil {
		query += `, current_index = ?`
		args = append(args, *upd.CurrentIndex)
	}
	if upd.Status != nil {
		query += `, status = ?`
		args = append(args, *upd.Status)
	}
	query += ` WHERE id = ?`
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListSessionsForPreset returns all sessions created under a preset, oldest
// first.
func (s *Store) ListSessionsForPreset(ctx context.Context, presetID string) ([]Session, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	sessions := []Session{}
	if err := s.db.SelectContext(ctx, &sessions,
		`SELECT * FROM sessions WHERE preset_id = ? ORDER BY created_at, id`, presetID); err != nil {
		return nil, fmt.Errorf("select sessions for preset: %w", err)
	}
	return sessions, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
