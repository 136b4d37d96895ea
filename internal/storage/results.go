package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lexward/wordflow/internal/model"
)

// AppendResult records one attempted classification. Results are an
// append-only ledger: rows are never updated, which is what makes the result
// history authoritative for resume accounting.
func (s *SQLiteStorage) AppendResult(ctx context.Context, result *model.ProcessingResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateResult(result); err != nil {
		return err
	}

	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	return s.retry(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO processing_results (
				id, session_id, word_id, original_word, detected_language,
				english_translation, assigned_category, success, error,
				processing_time_ms, tokens_used, cost, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.ID, result.SessionID, result.WordID, result.OriginalWord,
			result.DetectedLanguage, result.EnglishTranslation,
			result.AssignedCategory, result.Success, result.Error,
			result.ProcessingTimeMS, result.TokensUsed, result.Cost,
			result.CreatedAt,
		)
		if execErr != nil {
			return fmt.Errorf("failed to insert result: %w", execErr)
		}
		return nil
	})
}

// ListResults returns the most recent results for a session, newest first.
// A limit of 0 returns everything.
func (s *SQLiteStorage) ListResults(ctx context.Context, sessionID string, limit int) ([]model.ProcessingResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, session_id, word_id, original_word, detected_language,
			english_translation, assigned_category, success, error,
			processing_time_ms, tokens_used, cost, created_at
		FROM processing_results
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []model.ProcessingResult
	for rows.Next() {
		var (
			result      model.ProcessingResult
			language    sql.NullString
			translation sql.NullString
			category    sql.NullString
			errText     sql.NullString
		)
		if err := rows.Scan(
			&result.ID, &result.SessionID, &result.WordID, &result.OriginalWord,
			&language, &translation, &category, &result.Success, &errText,
			&result.ProcessingTimeMS, &result.TokensUsed, &result.Cost,
			&result.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		if language.Valid {
			result.DetectedLanguage = &language.String
		}
		if translation.Valid {
			result.EnglishTranslation = &translation.String
		}
		if category.Valid {
			result.AssignedCategory = &category.String
		}
		if errText.Valid {
			result.Error = &errText.String
		}

		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

// CountResults returns the number of results recorded for a session.
func (s *SQLiteStorage) CountResults(ctx context.Context, sessionID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processing_results WHERE session_id = ?`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return count, nil
}

// DeleteResults removes all results for a session. Used by reset, which is an
// explicit, irreversible restart of the job.
func (s *SQLiteStorage) DeleteResults(ctx context.Context, sessionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}

	return s.retry(ctx, func() error {
		if _, execErr := s.db.ExecContext(ctx,
			`DELETE FROM processing_results WHERE session_id = ?`, sessionID); execErr != nil {
			return fmt.Errorf("failed to delete results: %w", execErr)
		}
		return nil
	})
}
