package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertAnalysis persists the interim analysis for one batch. The unique
// constraint on (session_id, batch_index) makes the first write win: a
// concurrent duplicate becomes a no-op and the stored row is returned either
// way.
func (s *Store) InsertAnalysis(ctx context.Context, sessionID string, batchIndex, startIndex, endIndex int, content string) (*Analysis, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO analyses
                        (session_id, batch_index, start_index, end_index, content)
                        VALUES (?, ?, ?, ?, ?)`,
		sessionID, batchIndex, startIndex, endIndex, content); err != nil {
		return nil, fmt.Errorf("insert analysis: %w", err)
	}
	var analysis Analysis
	if err := s.db.GetContext(ctx, &analysis,
		`SELECT * FROM analyses WHERE session_id = ? AND batch_index = ?`, sessionID, batchIndex); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("analysis batch %d: %w", batchIndex, ErrNotFound)
		}
		return nil, fmt.Errorf("select analysis: %w", err)
	}
	return &analysis, nil
}

// ListAnalyses returns a session's analyses ordered by batch index.
func (s *Store) ListAnalyses(ctx context.Context, sessionID string) ([]Analysis, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	analyses := []Analysis{}
	if err := s.db.SelectContext(ctx, &analyses,
		`SELECT * FROM analyses WHERE session_id = ? ORDER BY batch_index`, sessionID); err != nil {
		return nil, fmt.Errorf("select analyses: %w", err)
	}
	return analyses, nil
}
