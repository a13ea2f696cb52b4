package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound marks a lookup for a row that does not exist. Handlers surface
// it distinctly from validation failures.
var ErrNotFound = errors.New("not found")

// Store wraps a pooled sqlx.DB connection to the survey database.
type Store struct {
	db *sqlx.DB
}

// Open constructs a Store backed by the sqlite database at the provided
// path. The schema is migrated on first use. An empty path defers to the
// FATHOM_DB_* environment configuration.
func Open(path string) (*Store, error) {
	cfg := LoadConfig()
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg.Path = trimmed
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig constructs a Store using the provided configuration.
func OpenWithConfig(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("database path required")
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	var dsn string
	if cfg.Path == ":memory:" {
		dsn = fmt.Sprintf("file::memory:?cache=shared&_fk=1&_busy_timeout=%d", busy)
	} else {
		abs, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_fk=1&_busy_timeout=%d&_journal_mode=WAL", abs, busy)
	}
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BusyTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialised")
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS presets (
                id TEXT PRIMARY KEY,
                share_token TEXT NOT NULL UNIQUE,
                title TEXT NOT NULL,
                purpose TEXT NOT NULL,
                background TEXT NOT NULL DEFAULT '',
                instructions TEXT NOT NULL DEFAULT '',
                themes TEXT NOT NULL DEFAULT '[]',
                fixed_questions TEXT NOT NULL DEFAULT '[]',
                report_target INTEGER NOT NULL,
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS sessions (
                id TEXT PRIMARY KEY,
                preset_id TEXT,
                purpose TEXT NOT NULL,
                background TEXT NOT NULL DEFAULT '',
                instructions TEXT NOT NULL DEFAULT '',
                themes TEXT NOT NULL DEFAULT '[]',
                phase_profile TEXT NOT NULL,
                report_target INTEGER NOT NULL,
                current_index INTEGER NOT NULL DEFAULT 0,
                status TEXT NOT NULL DEFAULT 'active',
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                FOREIGN KEY(preset_id) REFERENCES presets(id) ON DELETE SET NULL
        );`,
	`CREATE TABLE IF NOT EXISTS questions (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                session_id TEXT NOT NULL,
                question_index INTEGER NOT NULL,
                question_text TEXT NOT NULL,
                detail TEXT NOT NULL DEFAULT '',
                options TEXT NOT NULL DEFAULT '[]',
                question_type TEXT NOT NULL DEFAULT 'radio',
                phase TEXT NOT NULL DEFAULT 'exploration',
                source TEXT NOT NULL DEFAULT 'ai',
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE,
                UNIQUE(session_id, question_index)
        );`,
	`CREATE TABLE IF NOT EXISTS answers (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                question_id INTEGER NOT NULL UNIQUE,
                selected_option INTEGER,
                selected_options TEXT,
                answer_text TEXT NOT NULL DEFAULT '',
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                FOREIGN KEY(question_id) REFERENCES questions(id) ON DELETE CASCADE
        );`,
	`CREATE TABLE IF NOT EXISTS analyses (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                session_id TEXT NOT NULL,
                batch_index INTEGER NOT NULL,
                start_index INTEGER NOT NULL,
                end_index INTEGER NOT NULL,
                content TEXT NOT NULL,
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE,
                UNIQUE(session_id, batch_index)
        );`,
	`CREATE TABLE IF NOT EXISTS reports (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                session_id TEXT NOT NULL,
                version INTEGER NOT NULL,
                content TEXT NOT NULL,
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE,
                UNIQUE(session_id, version)
        );`,
	`CREATE TABLE IF NOT EXISTS survey_reports (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                preset_id TEXT NOT NULL,
                version INTEGER NOT NULL,
                status TEXT NOT NULL DEFAULT 'generating',
                content TEXT NOT NULL DEFAULT '',
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                FOREIGN KEY(preset_id) REFERENCES presets(id) ON DELETE CASCADE,
                UNIQUE(preset_id, version)
        );`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_preset ON sessions(preset_id);`,
	`CREATE INDEX IF NOT EXISTS idx_questions_session ON questions(session_id, question_index);`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_session ON analyses(session_id, batch_index);`,
	`CREATE INDEX IF NOT EXISTS idx_reports_session ON reports(session_id, version);`,
	`CREATE INDEX IF NOT EXISTS idx_survey_reports_preset ON survey_reports(preset_id, version);`,
}
