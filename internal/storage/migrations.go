package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Reference tables: languages, categories, words",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS languages (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					code TEXT,
					priority INTEGER NOT NULL DEFAULT 100,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS words (
					id TEXT PRIMARY KEY,
					word TEXT NOT NULL,
					language_id INTEGER REFERENCES languages(id),
					english_translation TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE UNIQUE INDEX idx_words_word_language ON words(word, language_id)`,
				`CREATE INDEX idx_words_language ON words(language_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Processing sessions and append-only results",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS processing_sessions (
					id TEXT PRIMARY KEY,
					status TEXT NOT NULL,
					total_words INTEGER NOT NULL DEFAULT 0,
					processed_words INTEGER NOT NULL DEFAULT 0,
					successful_words INTEGER NOT NULL DEFAULT 0,
					failed_words INTEGER NOT NULL DEFAULT 0,
					current_chunk INTEGER NOT NULL DEFAULT 0,
					total_chunks INTEGER NOT NULL DEFAULT 0,
					total_tokens_used INTEGER NOT NULL DEFAULT 0,
					estimated_cost REAL NOT NULL DEFAULT 0,
					mode TEXT NOT NULL,
					model TEXT NOT NULL,
					chunk_size INTEGER NOT NULL,
					max_retries INTEGER NOT NULL DEFAULT 3,
					language_prompt TEXT NOT NULL DEFAULT '',
					category_prompt TEXT NOT NULL DEFAULT '',
					resume_data TEXT NOT NULL,
					last_processed_word_id TEXT,
					error TEXT,
					retry_count INTEGER NOT NULL DEFAULT 0,
					started_at DATETIME,
					completed_at DATETIME,
					last_processed_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_sessions_status ON processing_sessions(status)`,
				`CREATE TABLE IF NOT EXISTS processing_results (
					id TEXT PRIMARY KEY,
					session_id TEXT NOT NULL REFERENCES processing_sessions(id) ON DELETE CASCADE,
					word_id TEXT NOT NULL,
					original_word TEXT NOT NULL,
					detected_language TEXT,
					english_translation TEXT,
					assigned_category TEXT,
					success INTEGER NOT NULL DEFAULT 0,
					error TEXT,
					processing_time_ms INTEGER NOT NULL DEFAULT 0,
					tokens_used INTEGER NOT NULL DEFAULT 0,
					cost REAL NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_results_session ON processing_results(session_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Guard against duplicate results per word per session",
		Up: func(tx *sql.Tx) error {
			// Duplicate attempts are possible under at-least-once delivery;
			// the index keeps reads cheap when resolving them.
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_results_session_word ON processing_results(session_id, word_id)`)
			return err
		},
	},
}

// SchemaVersion returns the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
