package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexward/wordflow/internal/model"
)

func newTestSession(wordIDs []string) *model.ProcessingSession {
	return &model.ProcessingSession{
		ID:         uuid.NewString(),
		Status:     model.StatusPending,
		ResumeData: wordIDs,
		TotalWords: len(wordIDs),
		Config: model.SessionConfig{
			Mode:       model.ModeSequential,
			Model:      "gpt-4o-mini",
			ChunkSize:  3,
			MaxRetries: 3,
		},
		TotalChunks: (len(wordIDs) + 2) / 3,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	session := newTestSession([]string{"w1", "w2", "w3", "w4", "w5"})
	session.Config.LanguagePrompt = "detect {word}"
	require.NoError(t, store.CreateSession(ctx, session))

	loaded, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)

	assert.Equal(t, session.ID, loaded.ID)
	assert.Equal(t, model.StatusPending, loaded.Status)
	assert.Equal(t, []string{"w1", "w2", "w3", "w4", "w5"}, loaded.ResumeData)
	assert.Equal(t, session.Config, loaded.Config)
	assert.Nil(t, loaded.StartedAt)
	assert.Nil(t, loaded.LastProcessedWordID)
}

func TestGetSession_NotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetSession(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUpdateSession_PersistsProgress(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	session := newTestSession([]string{"w1", "w2", "w3"})
	require.NoError(t, store.CreateSession(ctx, session))

	now := time.Now().UTC()
	cursor := "w2"
	errText := "oracle timeout"
	session.Status = model.StatusProcessing
	session.ProcessedWords = 2
	session.SuccessfulWords = 1
	session.FailedWords = 1
	session.CurrentChunk = 1
	session.StartedAt = &now
	session.LastProcessedWordID = &cursor
	session.Error = &errText
	require.NoError(t, store.UpdateSession(ctx, session))

	loaded, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, loaded.Status)
	assert.Equal(t, 2, loaded.ProcessedWords)
	assert.Equal(t, 1, loaded.SuccessfulWords)
	assert.Equal(t, 1, loaded.FailedWords)
	require.NotNil(t, loaded.LastProcessedWordID)
	assert.Equal(t, "w2", *loaded.LastProcessedWordID)
	require.NotNil(t, loaded.Error)
	assert.Equal(t, "oracle timeout", *loaded.Error)
	require.NotNil(t, loaded.StartedAt)
}

func TestUpdateSession_MissingSession(t *testing.T) {
	store := newTestStorage(t)

	session := newTestSession([]string{"w1"})
	err := store.UpdateSession(context.Background(), session)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeleteSession_CascadesToResults(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	session := newTestSession([]string{"w1"})
	require.NoError(t, store.CreateSession(ctx, session))

	result := &model.ProcessingResult{
		ID:           uuid.NewString(),
		SessionID:    session.ID,
		WordID:       "w1",
		OriginalWord: "casa",
		Success:      true,
	}
	require.NoError(t, store.AppendResult(ctx, result))

	count, err := store.CountResults(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.DeleteSession(ctx, session.ID))

	count, err = store.CountResults(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "results must be cascade-deleted with their session")
}

func TestListResults_NewestFirstWithLimit(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	session := newTestSession([]string{"w1", "w2", "w3"})
	require.NoError(t, store.CreateSession(ctx, session))

	base := time.Now().UTC()
	for i, word := range []string{"uno", "dos", "tres"} {
		require.NoError(t, store.AppendResult(ctx, &model.ProcessingResult{
			ID:           uuid.NewString(),
			SessionID:    session.ID,
			WordID:       session.ResumeData[i],
			OriginalWord: word,
			Success:      true,
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		}))
	}

	results, err := store.ListResults(ctx, session.ID, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "tres", results[0].OriginalWord)
	assert.Equal(t, "dos", results[1].OriginalWord)

	all, err := store.ListResults(ctx, session.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteResults_ClearsHistory(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	session := newTestSession([]string{"w1"})
	require.NoError(t, store.CreateSession(ctx, session))
	require.NoError(t, store.AppendResult(ctx, &model.ProcessingResult{
		ID:           uuid.NewString(),
		SessionID:    session.ID,
		WordID:       "w1",
		OriginalWord: "casa",
	}))

	require.NoError(t, store.DeleteResults(ctx, session.ID))
	count, err := store.CountResults(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// The session itself survives a reset of its history.
	_, err = store.GetSession(ctx, session.ID)
	require.NoError(t, err)
}

func TestListSessions_NewestFirst(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	s1 := newTestSession([]string{"w1"})
	s1.CreatedAt = time.Now().UTC()
	require.NoError(t, store.CreateSession(ctx, s1))
	s2 := newTestSession([]string{"w2"})
	require.NoError(t, store.CreateSession(ctx, s2))

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
}
