package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lexward/wordflow/internal/model"
)

// SaveWord inserts a vocabulary word.
func (s *SQLiteStorage) SaveWord(ctx context.Context, word *model.Word) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if word == nil {
		return fmt.Errorf("%w: word", ErrNilParameter)
	}
	if err := validateString(word.Word, "word"); err != nil {
		return err
	}

	if word.ID == "" {
		word.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	word.CreatedAt = now
	word.UpdatedAt = now

	return s.retry(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO words (id, word, language_id, english_translation, category, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			word.ID, word.Word, word.LanguageID, word.EnglishTranslation,
			word.Category, word.CreatedAt, word.UpdatedAt,
		)
		if execErr != nil {
			return fmt.Errorf("failed to insert word: %w", execErr)
		}
		return nil
	})
}

// GetWord loads a word by ID.
func (s *SQLiteStorage) GetWord(ctx context.Context, id string) (*model.Word, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	word, err := s.scanWordRow(s.db.QueryRowContext(ctx, `
		SELECT id, word, language_id, english_translation, category, created_at, updated_at
		FROM words WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrWordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load word: %w", err)
	}
	return word, nil
}

// GetWordsByIDs loads the given words keyed by id. Missing IDs are skipped
// rather than failing the whole load; the engine treats a vanished word as a
// per-item failure.
func (s *SQLiteStorage) GetWordsByIDs(ctx context.Context, ids []string) (map[string]model.Word, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return map[string]model.Word{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, word, language_id, english_translation, category, created_at, updated_at
		FROM words WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query words: %w", err)
	}
	defer func() { _ = rows.Close() }()

	words := make(map[string]model.Word, len(ids))
	for rows.Next() {
		word, scanErr := s.scanWordRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan word: %w", scanErr)
		}
		words[word.ID] = *word
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating words: %w", err)
	}

	return words, nil
}

// UpsertClassifiedWord writes classification output onto the canonical word
// row for (word, languageID), creating it if absent. Concurrent callers
// racing to create the same pair are resolved by re-querying on a uniqueness
// violation and updating instead: last writer wins on the mutable fields and
// duplicate rows never persist.
func (s *SQLiteStorage) UpsertClassifiedWord(ctx context.Context, word string, languageID *int64, translation, category string) (*model.Word, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(word, "word"); err != nil {
		return nil, err
	}

	var result *model.Word
	err := s.retry(ctx, func() error {
		existing, findErr := s.findWordByPair(ctx, word, languageID)
		if findErr != nil && !errors.Is(findErr, sql.ErrNoRows) {
			return findErr
		}

		if existing != nil {
			updated, updateErr := s.updateClassifiedWord(ctx, existing.ID, languageID, translation, category)
			if updateErr != nil {
				return updateErr
			}
			result = updated
			return nil
		}

		created := &model.Word{
			ID:                 uuid.NewString(),
			Word:               word,
			LanguageID:         languageID,
			EnglishTranslation: translation,
			Category:           category,
			CreatedAt:          time.Now().UTC(),
			UpdatedAt:          time.Now().UTC(),
		}
		_, insertErr := s.db.ExecContext(ctx, `
			INSERT INTO words (id, word, language_id, english_translation, category, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			created.ID, created.Word, created.LanguageID,
			created.EnglishTranslation, created.Category,
			created.CreatedAt, created.UpdatedAt,
		)
		if insertErr == nil {
			result = created
			return nil
		}

		if !isUniqueViolation(insertErr) {
			return fmt.Errorf("failed to insert word: %w", insertErr)
		}

		// Lost the create race: the row exists now, update it instead.
		slog.Debug("upsert race resolved to update", "word", word)
		raced, racedErr := s.findWordByPair(ctx, word, languageID)
		if racedErr != nil {
			return fmt.Errorf("failed to re-query after unique violation: %w", racedErr)
		}
		updated, updateErr := s.updateClassifiedWord(ctx, raced.ID, languageID, translation, category)
		if updateErr != nil {
			return updateErr
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStorage) findWordByPair(ctx context.Context, word string, languageID *int64) (*model.Word, error) {
	return s.scanWordRow(s.db.QueryRowContext(ctx, `
		SELECT id, word, language_id, english_translation, category, created_at, updated_at
		FROM words WHERE word = ? AND language_id IS ?`, word, languageID))
}

func (s *SQLiteStorage) updateClassifiedWord(ctx context.Context, id string, languageID *int64, translation, category string) (*model.Word, error) {
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `
		UPDATE words SET language_id = ?, english_translation = ?, category = ?, updated_at = ?
		WHERE id = ?`,
		languageID, translation, category, now, id,
	); err != nil {
		return nil, fmt.Errorf("failed to update word: %w", err)
	}
	return s.scanWordRow(s.db.QueryRowContext(ctx, `
		SELECT id, word, language_id, english_translation, category, created_at, updated_at
		FROM words WHERE id = ?`, id))
}

func (s *SQLiteStorage) scanWordRow(row scanner) (*model.Word, error) {
	var (
		word       model.Word
		languageID sql.NullInt64
	)
	if err := row.Scan(
		&word.ID, &word.Word, &languageID, &word.EnglishTranslation,
		&word.Category, &word.CreatedAt, &word.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if languageID.Valid {
		word.LanguageID = &languageID.Int64
	}
	return &word, nil
}
