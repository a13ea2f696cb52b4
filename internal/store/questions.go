package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertQuestions inserts question rows, silently skipping indices that
// already exist for the session. Returns the number of rows actually
// inserted, so retried generation calls are idempotent.
func (s *Store) UpsertQuestions(ctx context.Context, rows []Question) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("store not initialised")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin insert questions: %w", err)
	}
	inserted := 0
	for _, row := range rows {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO questions
                        (session_id, question_index, question_text, detail, options, question_type, phase, source)
                        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			row.SessionID, row.Index, row.Text, row.Detail, orDefault(row.Options, "[]"),
			orDefault(row.Type, "radio"), orDefault(row.Phase, "exploration"), orDefault(row.Source, SourceAI))
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert question %d: %w", row.Index, err)
		}
		if affected, err := res.RowsAffected(); err == nil {
			inserted += int(affected)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert questions: %w", err)
	}
	return inserted, nil
}

// ListQuestionsWithAnswers returns a session's questions ordered by index,
// each joined to its answer row when one exists.
func (s *Store) ListQuestionsWithAnswers(ctx context.Context, sessionID string) ([]QuestionWithAnswer, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	type joinedRow struct {
		Question
		AnswerID        *int64     `db:"answer_id"`
		SelectedOption  *int       `db:"selected_option"`
		SelectedOptions *string    `db:"selected_options"`
		AnswerText      *string    `db:"answer_text"`
		AnswerCreatedAt *time.Time `db:"answer_created_at"`
		AnswerUpdatedAt *time.Time `db:"answer_updated_at"`
	}
	rows := []joinedRow{}
	if err := s.db.SelectContext(ctx, &rows, `SELECT
                        q.id, q.session_id, q.question_index, q.question_text, q.detail, q.options,
                        q.question_type, q.phase, q.source, q.created_at,
                        a.id AS answer_id, a.selected_option, a.selected_options, a.answer_text,
                        a.created_at AS answer_created_at, a.updated_at AS answer_updated_at
                FROM questions q
                LEFT JOIN answers a ON a.question_id = q.id
                WHERE q.session_id = ?
                ORDER BY q.question_index`, sessionID); err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	out := make([]QuestionWithAnswer, 0, len(rows))
	for _, row := range rows {
		qa := QuestionWithAnswer{Question: row.Question}
		if row.AnswerID != nil {
			answer := &Answer{
				ID:              *row.AnswerID,
				QuestionID:      row.Question.ID,
				SelectedOption:  row.SelectedOption,
				SelectedOptions: row.SelectedOptions,
			}
			if row.AnswerText != nil {
				answer.AnswerText = *row.AnswerText
			}
			if row.AnswerCreatedAt != nil {
				answer.CreatedAt = *row.AnswerCreatedAt
			}
			if row.AnswerUpdatedAt != nil {
				answer.UpdatedAt = *row.AnswerUpdatedAt
			}
			qa.Answer = answer
		}
		out = append(out, qa)
	}
	return out, nil
}

// UpsertAnswer writes a respondent's answer for a question, replacing any
// earlier submission for the same question.
func (s *Store) UpsertAnswer(ctx context.Context, questionID int64, payload AnswerPayload) (*Answer, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	var selectedOptions *string
	if payload.SelectedOptions != nil {
		encoded := encodeJSON(payload.SelectedOptions)
		selectedOptions = &encoded
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO answers
                        (question_id, selected_option, selected_options, answer_text)
                        VALUES (?, ?, ?, ?)
                ON CONFLICT(question_id) DO UPDATE SET
                        selected_option = excluded.selected_option,
                        selected_options = excluded.selected_options,
                        answer_text = excluded.answer_text,
                        updated_at = CURRENT_TIMESTAMP`,
		questionID, payload.SelectedOption, selectedOptions, payload.AnswerText); err != nil {
		return nil, fmt.Errorf("upsert answer: %w", err)
	}
	var answer Answer
	if err := s.db.GetContext(ctx, &answer, `SELECT * FROM answers WHERE question_id = ?`, questionID); err != nil {
		return nil, fmt.Errorf("select answer: %w", err)
	}
	return &answer, nil
}
