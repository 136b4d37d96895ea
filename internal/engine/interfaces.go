package engine

import (
	"context"

	"github.com/lexward/wordflow/internal/model"
)

// Store defines the persistence contract the engine depends on. It is
// implemented by storage.SQLiteStorage.
type Store interface {
	// Session lifecycle
	CreateSession(ctx context.Context, session *model.ProcessingSession) error
	GetSession(ctx context.Context, id string) (*model.ProcessingSession, error)
	UpdateSession(ctx context.Context, session *model.ProcessingSession) error

	// Result ledger
	AppendResult(ctx context.Context, result *model.ProcessingResult) error
	ListResults(ctx context.Context, sessionID string, limit int) ([]model.ProcessingResult, error)
	CountResults(ctx context.Context, sessionID string) (int, error)
	DeleteResults(ctx context.Context, sessionID string) error

	// Vocabulary
	GetWordsByIDs(ctx context.Context, ids []string) (map[string]model.Word, error)
	UpsertClassifiedWord(ctx context.Context, word string, languageID *int64, translation, category string) (*model.Word, error)

	// Reference data
	GetLanguages(ctx context.Context) ([]model.Language, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
}
