package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexward/wordflow/internal/model"
	"github.com/lexward/wordflow/internal/oracle"
	"github.com/lexward/wordflow/internal/storage"
)

func TestPause_RequiresProcessing(t *testing.T) {
	store := newTestStore(t)
	e := newTestEngine(store, oracle.NewMockClient())
	ctx := context.Background()

	ids := seedWords(t, store, "a")
	session, err := e.CreateSession(ctx, ids, model.SessionConfig{MaxRetries: 1})
	require.NoError(t, err)

	err = e.Pause(ctx, session.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition, "pending session cannot be paused")

	got, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status, "rejected transition must not change state")
}

func TestCancel_TransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		status  model.SessionStatus
		wantErr bool
	}{
		{"pending can be cancelled", model.StatusPending, false},
		{"paused can be cancelled", model.StatusPaused, false},
		{"processing can be cancelled", model.StatusProcessing, false},
		{"completed cannot be cancelled", model.StatusCompleted, true},
		{"failed cannot be cancelled", model.StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			e := newTestEngine(store, oracle.NewMockClient())
			ctx := context.Background()

			ids := seedWords(t, store, "a")
			session, err := e.CreateSession(ctx, ids, model.SessionConfig{MaxRetries: 1})
			require.NoError(t, err)

			session.Status = tt.status
			require.NoError(t, store.UpdateSession(ctx, session))

			err = e.Cancel(ctx, session.ID)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)

			got, getErr := store.GetSession(ctx, session.ID)
			require.NoError(t, getErr)
			assert.Equal(t, model.StatusFailed, got.Status)
			require.NotNil(t, got.Error)
			assert.Equal(t, "cancelled by user", *got.Error)
		})
	}
}

func TestReset_ClearsProgressAndResults(t *testing.T) {
	store := newTestStore(t)
	e := newTestEngine(store, oracle.NewMockClient())
	ctx := context.Background()

	ids := seedWords(t, store, "a", "b", "c")
	session, err := e.CreateSession(ctx, ids, model.SessionConfig{ChunkSize: 2, MaxRetries: 1})
	require.NoError(t, err)
	require.NoError(t, e.ProcessWords(ctx, session.ID, nil))

	count, err := store.CountResults(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	require.NoError(t, e.Reset(ctx, session.ID))

	got, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Zero(t, got.ProcessedWords)
	assert.Zero(t, got.SuccessfulWords)
	assert.Zero(t, got.FailedWords)
	assert.Zero(t, got.CurrentChunk)
	assert.Zero(t, got.TotalTokensUsed)
	assert.Zero(t, got.EstimatedCost)
	assert.Nil(t, got.LastProcessedWordID)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.Error)

	// Frozen ordering and config survive a reset.
	assert.Equal(t, ids, got.ResumeData)
	assert.Equal(t, 2, got.Config.ChunkSize)

	count, err = store.CountResults(ctx, session.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// A reset session processes from scratch.
	require.NoError(t, e.ProcessWords(ctx, session.ID, nil))
	final, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, 3, final.ProcessedWords)
}

func TestReset_RejectedWhileProcessing(t *testing.T) {
	store := newTestStore(t)
	e := newTestEngine(store, oracle.NewMockClient())
	ctx := context.Background()

	ids := seedWords(t, store, "a")
	session, err := e.CreateSession(ctx, ids, model.SessionConfig{MaxRetries: 1})
	require.NoError(t, err)

	session.Status = model.StatusProcessing
	require.NoError(t, store.UpdateSession(ctx, session))

	err = e.Reset(ctx, session.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSessionStatus(t *testing.T) {
	store := newTestStore(t)
	client := oracle.NewMockClient()
	client.Fail("b", assert.AnError)
	e := newTestEngine(store, client)
	ctx := context.Background()

	ids := seedWords(t, store, "a", "b", "c", "d")
	session, err := e.CreateSession(ctx, ids, model.SessionConfig{ChunkSize: 2, MaxRetries: 1})
	require.NoError(t, err)
	require.NoError(t, e.ProcessWords(ctx, session.ID, nil))

	summary, err := e.SessionStatus(ctx, session.ID, 2)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, summary.Session.Status)
	assert.Len(t, summary.RecentResults, 2, "recent results honor the limit")
	assert.InDelta(t, 0.75, summary.SuccessRate, 0.001)
	assert.InDelta(t, 1.0, summary.CompletionRate, 0.001)
	assert.Positive(t, summary.AvgCostPerWord)
	assert.Positive(t, summary.Duration)
}

func TestSessionStatus_NotFound(t *testing.T) {
	store := newTestStore(t)
	e := newTestEngine(store, oracle.NewMockClient())

	_, err := e.SessionStatus(context.Background(), "missing", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}
