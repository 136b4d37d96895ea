package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lexward/wordflow/internal/model"
)

// GetLanguages returns all languages ordered by priority rank, lowest first.
func (s *SQLiteStorage) GetLanguages(ctx context.Context) ([]model.Language, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(code, ''), priority, created_at
		FROM languages
		ORDER BY priority, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query languages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var languages []model.Language
	for rows.Next() {
		var lang model.Language
		if err := rows.Scan(&lang.ID, &lang.Name, &lang.Code, &lang.Priority, &lang.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan language: %w", err)
		}
		languages = append(languages, lang)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating languages: %w", err)
	}

	return languages, nil
}

// GetLanguageByName returns a language by exact name.
func (s *SQLiteStorage) GetLanguageByName(ctx context.Context, name string) (*model.Language, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var lang model.Language
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(code, ''), priority, created_at
		FROM languages WHERE name = ?`, name,
	).Scan(&lang.ID, &lang.Name, &lang.Code, &lang.Priority, &lang.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrLanguageNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query language: %w", err)
	}
	return &lang, nil
}

// CreateLanguage inserts a language, ignoring duplicates by name.
func (s *SQLiteStorage) CreateLanguage(ctx context.Context, name, code string, priority int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	return s.retry(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO languages (name, code, priority) VALUES (?, ?, ?)
			ON CONFLICT(name) DO NOTHING`, name, code, priority)
		if execErr != nil {
			return fmt.Errorf("failed to insert language: %w", execErr)
		}
		return nil
	})
}

// GetCategories returns all categories in canonical (name) order.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// CreateCategory inserts a category, ignoring duplicates by name.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	return s.retry(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO categories (name) VALUES (?)
			ON CONFLICT(name) DO NOTHING`, name)
		if execErr != nil {
			return fmt.Errorf("failed to insert category: %w", execErr)
		}
		return nil
	})
}

// defaultLanguages seeds a fresh database with a usable reference set.
// Priority ranks reflect matching preference, lower wins.
var defaultLanguages = []struct {
	Name     string
	Code     string
	Priority int
}{
	{"English", "en", 1},
	{"Spanish", "es", 2},
	{"French", "fr", 3},
	{"German", "de", 4},
	{"Italian", "it", 5},
	{"Portuguese", "pt", 6},
	{"Dutch", "nl", 7},
	{"Russian", "ru", 8},
	{"Japanese", "ja", 9},
	{"Mandarin", "zh", 10},
}

var defaultCategories = []string{
	"Noun", "Verb", "Adjective", "Adverb", "Pronoun",
	"Preposition", "Conjunction", "Interjection", "Phrase",
}

// SeedReferenceData inserts the default language and category sets. The
// operation is idempotent; existing rows are left untouched.
func (s *SQLiteStorage) SeedReferenceData(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	for _, lang := range defaultLanguages {
		if err := s.CreateLanguage(ctx, lang.Name, lang.Code, lang.Priority); err != nil {
			return err
		}
	}
	for _, name := range defaultCategories {
		if err := s.CreateCategory(ctx, name); err != nil {
			return err
		}
	}

	slog.Info("seeded reference data",
		"languages", len(defaultLanguages),
		"categories", len(defaultCategories))
	return nil
}
