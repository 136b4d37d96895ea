package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexward/wordflow/internal/model"
)

const sessionColumns = `id, status, total_words, processed_words, successful_words, failed_words,
	current_chunk, total_chunks, total_tokens_used, estimated_cost,
	mode, model, chunk_size, max_retries, language_prompt, category_prompt,
	resume_data, last_processed_word_id, error, retry_count,
	started_at, completed_at, last_processed_at, created_at, updated_at`

// CreateSession persists a new processing session. The session's ResumeData
// ordering is frozen here and is the only legal iteration order for the job.
func (s *SQLiteStorage) CreateSession(ctx context.Context, session *model.ProcessingSession) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSession(session); err != nil {
		return err
	}

	resumeData, err := json.Marshal(session.ResumeData)
	if err != nil {
		return fmt.Errorf("failed to marshal resume data: %w", err)
	}

	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	return s.retry(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO processing_sessions (
				id, status, total_words, processed_words, successful_words, failed_words,
				current_chunk, total_chunks, total_tokens_used, estimated_cost,
				mode, model, chunk_size, max_retries, language_prompt, category_prompt,
				resume_data, retry_count, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, session.Status, session.TotalWords, session.ProcessedWords,
			session.SuccessfulWords, session.FailedWords, session.CurrentChunk,
			session.TotalChunks, session.TotalTokensUsed, session.EstimatedCost,
			session.Config.Mode, session.Config.Model, session.Config.ChunkSize,
			session.Config.MaxRetries, session.Config.LanguagePrompt,
			session.Config.CategoryPrompt, string(resumeData), session.RetryCount,
			session.CreatedAt, session.UpdatedAt,
		)
		if execErr != nil {
			return fmt.Errorf("failed to insert session: %w", execErr)
		}
		return nil
	})
}

// GetSession loads a session by ID.
func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (*model.ProcessingSession, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM processing_sessions WHERE id = ?`, id)

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// ListSessions returns all sessions, newest first.
func (s *SQLiteStorage) ListSessions(ctx context.Context) ([]model.ProcessingSession, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM processing_sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []model.ProcessingSession
	for rows.Next() {
		session, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan session: %w", scanErr)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// UpdateSession persists the session's mutable fields. Counters, status, the
// resume cursor and timestamps all flow through here; the config snapshot and
// resume data are immutable after creation and deliberately not updated.
func (s *SQLiteStorage) UpdateSession(ctx context.Context, session *model.ProcessingSession) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSession(session); err != nil {
		return err
	}

	session.UpdatedAt = time.Now().UTC()

	return s.retry(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, `
			UPDATE processing_sessions SET
				status = ?, total_words = ?, processed_words = ?, successful_words = ?,
				failed_words = ?, current_chunk = ?, total_chunks = ?,
				total_tokens_used = ?, estimated_cost = ?, last_processed_word_id = ?,
				error = ?, retry_count = ?, started_at = ?, completed_at = ?,
				last_processed_at = ?, updated_at = ?
			WHERE id = ?`,
			session.Status, session.TotalWords, session.ProcessedWords,
			session.SuccessfulWords, session.FailedWords, session.CurrentChunk,
			session.TotalChunks, session.TotalTokensUsed, session.EstimatedCost,
			session.LastProcessedWordID, session.Error, session.RetryCount,
			session.StartedAt, session.CompletedAt, session.LastProcessedAt,
			session.UpdatedAt, session.ID,
		)
		if execErr != nil {
			return fmt.Errorf("failed to update session: %w", execErr)
		}

		affected, affErr := res.RowsAffected()
		if affErr != nil {
			return fmt.Errorf("failed to check update result: %w", affErr)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, session.ID)
		}
		return nil
	})
}

// DeleteSession removes a session and, by cascade, its results.
func (s *SQLiteStorage) DeleteSession(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.retry(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, `DELETE FROM processing_sessions WHERE id = ?`, id)
		if execErr != nil {
			return fmt.Errorf("failed to delete session: %w", execErr)
		}
		affected, affErr := res.RowsAffected()
		if affErr != nil {
			return fmt.Errorf("failed to check delete result: %w", affErr)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		slog.Debug("deleted session", "session_id", id)
		return nil
	})
}

// scanner abstracts sql.Row and sql.Rows for scanSession.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*model.ProcessingSession, error) {
	var (
		session       model.ProcessingSession
		resumeData    string
		lastWordID    sql.NullString
		errText       sql.NullString
		startedAt     sql.NullTime
		completedAt   sql.NullTime
		lastProcessed sql.NullTime
	)

	err := row.Scan(
		&session.ID, &session.Status, &session.TotalWords, &session.ProcessedWords,
		&session.SuccessfulWords, &session.FailedWords, &session.CurrentChunk,
		&session.TotalChunks, &session.TotalTokensUsed, &session.EstimatedCost,
		&session.Config.Mode, &session.Config.Model, &session.Config.ChunkSize,
		&session.Config.MaxRetries, &session.Config.LanguagePrompt,
		&session.Config.CategoryPrompt, &resumeData, &lastWordID, &errText,
		&session.RetryCount, &startedAt, &completedAt, &lastProcessed,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(resumeData), &session.ResumeData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resume data: %w", err)
	}

	if lastWordID.Valid {
		session.LastProcessedWordID = &lastWordID.String
	}
	if errText.Valid {
		session.Error = &errText.String
	}
	if startedAt.Valid {
		session.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}
	if lastProcessed.Valid {
		session.LastProcessedAt = &lastProcessed.Time
	}

	return &session, nil
}
