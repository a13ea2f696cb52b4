package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertReport persists a new report version for a session.
func (s *Store) InsertReport(ctx context.Context, sessionID string, version int, content string) (*Report, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (session_id, version, content) VALUES (?, ?, ?)`,
		sessionID, version, content)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("report id: %w", err)
	}
	var report Report
	if err := s.db.GetContext(ctx, &report, `SELECT * FROM reports WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("select report: %w", err)
	}
	return &report, nil
}

// ListReportVersions returns a session's report versions, newest first.
func (s *Store) ListReportVersions(ctx context.Context, sessionID string) ([]int, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	versions := []int{}
	if err := s.db.SelectContext(ctx, &versions,
		`SELECT version FROM reports WHERE session_id = ? ORDER BY version DESC`, sessionID); err != nil {
		return nil, fmt.Errorf("select report versions: %w", err)
	}
	return versions, nil
}

// ListReports returns a session's reports, newest version first.
func (s *Store) ListReports(ctx context.Context, sessionID string) ([]Report, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	reports := []Report{}
	if err := s.db.SelectContext(ctx, &reports,
		`SELECT * FROM reports WHERE session_id = ? ORDER BY version DESC`, sessionID); err != nil {
		return nil, fmt.Errorf("select reports: %w", err)
	}
	return reports, nil
}

// InsertSurveyReport creates a new aggregate report row in the generating
// state, before any model call is made.
func (s *Store) InsertSurveyReport(ctx context.Context, presetID string, version int) (*SurveyReport, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO survey_reports (preset_id, version, status) VALUES (?, ?, ?)`,
		presetID, version, SurveyReportGenerating)
	if err != nil {
		return nil, fmt.Errorf("insert survey report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("survey report id: %w", err)
	}
	var report SurveyReport
	if err := s.db.GetContext(ctx, &report, `SELECT * FROM survey_reports WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("select survey report: %w", err)
	}
	return &report, nil
}

// UpdateSurveyReportStatus flips an aggregate report row to completed or
// failed, storing the report text on success.
func (s *Store) UpdateSurveyReportStatus(ctx context.Context, id int64, status, content string) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialised")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE survey_reports
                SET status = ?, content = ?, updated_at = CURRENT_TIMESTAMP
                WHERE id = ?`, status, content, id)
	if err != nil {
		return fmt.Errorf("update survey report: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("survey report %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListSurveyReportVersions returns a preset's aggregate report versions,
// newest first.
func (s *Store) ListSurveyReportVersions(ctx context.Context, presetID string) ([]int, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	versions := []int{}
	if err := s.db.SelectContext(ctx, &versions,
		`SELECT version FROM survey_reports WHERE preset_id = ? ORDER BY version DESC`, presetID); err != nil {
		return nil, fmt.Errorf("select survey report versions: %w", err)
	}
	return versions, nil
}

// ListSurveyReports returns a preset's aggregate reports, newest version
// first.
func (s *Store) ListSurveyReports(ctx context.Context, presetID string) ([]SurveyReport, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	reports := []SurveyReport{}
	if err := s.db.SelectContext(ctx, &reports,
		`SELECT * FROM survey_reports WHERE preset_id = ? ORDER BY version DESC`, presetID); err != nil {
		return nil, fmt.Errorf("select survey reports: %w", err)
	}
	return reports, nil
}

// GetSurveyReport retrieves one aggregate report row by id.
func (s *Store) GetSurveyReport(ctx context.Context, id int64) (*SurveyReport, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	var report SurveyReport
	if err := s.db.GetContext(ctx, &report, `SELECT * FROM survey_reports WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("survey report %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select survey report: %w", err)
	}
	return &report, nil
}
