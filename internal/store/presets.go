package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreatePreset inserts a new preset row.
func (s *Store) CreatePreset(ctx context.Context, preset Preset) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialised")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO presets
                (id, share_token, title, purpose, background, instructions, themes, fixed_questions, report_target)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		preset.ID, preset.ShareToken, preset.Title, preset.Purpose, preset.Background,
		preset.Instructions, orDefault(preset.Themes, "[]"), orDefault(preset.FixedQuestions, "[]"),
		preset.ReportTarget)
	if err != nil {
		return fmt.Errorf("insert preset: %w", err)
	}
	return nil
}

// GetPreset retrieves a preset by id.
func (s *Store) GetPreset(ctx context.Context, id string) (*Preset, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	var preset Preset
	if err := s.db.GetContext(ctx, &preset, `SELECT * FROM presets WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("preset %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select preset: %w", err)
	}
	return &preset, nil
}

// GetPresetByToken retrieves a preset by its share token, the value
// respondents join with.
func (s *Store) GetPresetByToken(ctx context.Context, token string) (*Preset, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("share token required: %w", ErrNotFound)
	}
	var preset Preset
	if err := s.db.GetContext(ctx, &preset, `SELECT * FROM presets WHERE share_token = ?`, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("share token: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("select preset by token: %w", err)
	}
	return &preset, nil
}
