package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexward/wordflow/internal/model"
	"github.com/lexward/wordflow/internal/oracle"
	"github.com/lexward/wordflow/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.SeedReferenceData(ctx))
	return store
}

func seedWords(t *testing.T, store *storage.SQLiteStorage, words ...string) []string {
	t.Helper()

	ids := make([]string, 0, len(words))
	for _, w := range words {
		word := &model.Word{Word: w}
		require.NoError(t, store.SaveWord(context.Background(), word))
		ids = append(ids, word.ID)
	}
	return ids
}

func newTestEngine(store *storage.SQLiteStorage, client oracle.Client) *Engine {
	return NewWithConfig(store, client, Config{
		ChunkDelay: time.Millisecond,
		MaxRetries: 1,
	})
}

// eventRecorder collects emitted events and verifies counter invariants on
// every stats-bearing event as it arrives.
type eventRecorder struct {
	t      *testing.T
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) sink() EventSink {
	return func(ev Event) {
		r.mu.Lock()
		defer r.mu.Unlock()

		switch e := ev.(type) {
		case ChunkCompleteEvent:
			r.checkStats(e.Stats)
		case CompleteEvent:
			r.checkStats(e.Stats)
		}
		r.events = append(r.events, ev)
	}
}

func (r *eventRecorder) checkStats(stats model.ProcessingStats) {
	assert.Equal(r.t, stats.ProcessedWords, stats.SuccessfulWords+stats.FailedWords,
		"successful + failed must equal processed at every observable boundary")
	assert.LessOrEqual(r.t, stats.ProcessedWords, stats.TotalWords)
	assert.GreaterOrEqual(r.t, stats.EstimatedTimeRemaining, 0.0)
}

func (r *eventRecorder) byType(eventType EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []Event
	for _, ev := range r.events {
		if ev.Type() == eventType {
			matched = append(matched, ev)
		}
	}
	return matched
}

func TestCreateSession(t *testing.T) {
	store := newTestStore(t)
	e := newTestEngine(store, oracle.NewMockClient())
	ctx := context.Background()

	ids := seedWords(t, store, "a", "b", "c", "d", "e")
	session, err := e.CreateSession(ctx, ids, model.SessionConfig{ChunkSize: 3})
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, session.Status)
	assert.Equal(t, 5, session.TotalWords)
	assert.Equal(t, 2, session.TotalChunks)
	assert.Equal(t, ids, session.ResumeData)
}

func TestCreateSession_RejectsEmptyWordSet(t *testing.T) {
	store := newTestStore(t)
	e := newTestEngine(store, oracle.NewMockClient())

	_, err := e.CreateSession(context.Background(), nil, model.SessionConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoWords)
}

func TestCreateSession_CapsChunkSize(t *testing.T) {
	store := newTestStore(t)
	e := newTestEngine(store, oracle.NewMockClient())

	ids := seedWords(t, store, "a")
	session, err := e.CreateSession(context.Background(), ids, model.SessionConfig{ChunkSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 50, session.Config.ChunkSize)
}

func TestProcessWords_SequentialExampleScenario(t *testing.T) {
	store := newTestStore(t)
	client := oracle.NewMockClient()
	for _, w := range []string{"a", "b", "c", "d", "e"} {
		client.Respond(w, oracle.Classification{Language: "English", Translation: w, Category: "Noun"})
	}
	e := newTestEngine(store, client)
	ctx := context.Background()

	ids := seedWords(t, store, "a", "b", "c", "d", "e")
	session, err := e.CreateSession(ctx, ids, model.SessionConfig{ChunkSize: 3, Mode: model.ModeSequential, MaxRetries: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, session.TotalChunks)

	rec := &eventRecorder{t: t}
	require.NoError(t, e.ProcessWords(ctx, session.ID, rec.sink()))

	final, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, 5, final.ProcessedWords)
	assert.Equal(t, 5, final.SuccessfulWords)
	assert.Equal(t, 0, final.FailedWords)
	require.NotNil(t, final.CompletedAt)

	assert.Len(t, rec.byType(EventStatus), 1)
	assert.Len(t, rec.byType(EventStarted), 1)
	assert.Len(t, rec.byType(EventResult), 5)
	assert.Len(t, rec.byType(EventChunkComplete), 2)

	completes := rec.byType(EventComplete)
	require.Len(t, completes, 1)
	complete := completes[0].(CompleteEvent)
	assert.Positive(t, complete.TotalCost)

	// Sequential mode preserves frozen word order in emitted events.
	var emitted []string
	for _, ev := range rec.byType(EventResult) {
		emitted = append(emitted, ev.(ResultEvent).Result.OriginalWord)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, emitted)

	// The classified words were upserted against the canonical vocabulary.
	count, err := store.CountResults(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestProcessWords_PerItemIsolationConcurrent(t *testing.T) {
	words := []string{"w0", "w1", "w2", "w3", "w4", "w5", "w6", "w7", "w8", "w9"}

	store := newTestStore(t)
	client := oracle.NewMockClient()
	client.Fail("w4", errors.New("oracle exploded"))
	e := newTestEngine(store, client)
	ctx := context.Background()

	ids := seedWords(t, store, words...)
	session, err := e.CreateSession(ctx, ids, model.SessionConfig{ChunkSize: 10, Mode: model.ModeConcurrent, MaxRetries: 1})
	require.NoError(t, err)

	rec := &eventRecorder{t: t}
	require.NoError(t, e.ProcessWords(ctx, session.ID, rec.sink()))

	final, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, final.Status, "one bad word must not fail the session")
	assert.Equal(t, 10, final.ProcessedWords)
	assert.Equal(t, 9, final.SuccessfulWords)
	assert.Equal(t, 1, final.FailedWords)

	results, err := store.ListResults(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, results, 10)

	var failed []model.ProcessingResult
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, "w4", failed[0].OriginalWord, "failed result echoes the original word")
	require.NotNil(t, failed[0].Error)
}

func TestProcessWords_ResumeDeterminism(t *testing.T) {
	words := []string{"a", "b", "c", "d", "e", "f"}

	store := newTestStore(t)
	client := oracle.NewMockClient()
	e := newTestEngine(store, client)
	ctx := context.Background()

	ids := seedWords(t, store, words...)
	session, err := e.CreateSession(ctx, ids, model.SessionConfig{ChunkSize: 2, MaxRetries: 1})
	require.NoError(t, err)

	// Pause out-of-band after the first chunk completes.
	var pauseOnce sync.Once
	firstRun := func(ev Event) {
		if ev.Type() == EventChunkComplete {
			pauseOnce.Do(func() {
				require.NoError(t, e.Pause(ctx, session.ID))
			})
		}
	}

	err = e.ProcessWords(ctx, session.ID, firstRun)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionPaused)

	paused, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaused, paused.Status)
	assert.Equal(t, 2, paused.ProcessedWords)

	// Resume and run to completion.
	rec := &eventRecorder{t: t}
	require.NoError(t, e.ProcessWords(ctx, session.ID, rec.sink()))

	final, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, len(words), final.ProcessedWords)

	results, err := store.ListResults(ctx, session.ID, 0)
	require.NoError(t, err)
	assert.Len(t, results, len(words), "resume must produce exactly one result per word")

	seen := make(map[string]int)
	for _, r := range results {
		seen[r.OriginalWord]++
	}
	for word, n := range seen {
		assert.Equal(t, 1, n, "duplicate result for %q", word)
	}
}

func TestProcessWords_LostCursorRestartsCleanly(t *testing.T) {
	words := []string{"a", "b", "c", "d"}

	store := newTestStore(t)
	e := newTestEngine(store, oracle.NewMockClient())
	ctx := context.Background()

	ids := seedWords(t, store, words...)
	session, err := e.CreateSession(ctx, ids, model.SessionConfig{ChunkSize: 2, MaxRetries: 1})
	require.NoError(t, err)

	// Park the session after the first chunk.
	var once sync.Once
	err = e.ProcessWords(ctx, session.ID, func(ev Event) {
		if ev.Type() == EventChunkComplete {
			once.Do(func() { require.NoError(t, e.Pause(ctx, session.ID)) })
		}
	})
	require.ErrorIs(t, err, ErrSessionPaused)

	// Point the cursor at an id outside the frozen ordering, as if the word
	// row it referenced had been replaced out from under the session.
	paused, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, 2, paused.ProcessedWords)
	ghost := "ghost-cursor"
	paused.LastProcessedWordID = &ghost
	require.NoError(t, store.UpdateSession(ctx, paused))

	rec := &eventRecorder{t: t}
	require.NoError(t, e.ProcessWords(ctx, session.ID, rec.sink()))

	final, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, len(words), final.ProcessedWords, "restart must not carry counters from the abandoned run")
	assert.Equal(t, len(words), final.SuccessfulWords)
	assert.Equal(t, 0, final.FailedWords)

	results, err := store.ListResults(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, results, len(words), "restart must clear the abandoned run's result rows")

	seen := make(map[string]int)
	for _, r := range results {
		seen[r.OriginalWord]++
	}
	for word, n := range seen {
		assert.Equal(t, 1, n, "duplicate result for %q", word)
	}
}

func TestProcessWords_CancelStopsBeforeNextChunk(t *testing.T) {
	words := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	store := newTestStore(t)
	client := oracle.NewMockClient()
	e := newTestEngine(store, client)
	ctx := context.Background()

	ids := seedWords(t, store, words...)
	session, err := e.CreateSession(ctx, ids, model.SessionConfig{ChunkSize: 2, MaxRetries: 1})
	require.NoError(t, err)
	require.Equal(t, 4, session.TotalChunks)

	rec := &eventRecorder{t: t}
	sink := rec.sink()
	var cancelOnce sync.Once
	err = e.ProcessWords(ctx, session.ID, func(ev Event) {
		sink(ev)
		if ev.Type() == EventChunkComplete {
			cancelOnce.Do(func() {
				require.NoError(t, e.Cancel(ctx, session.ID))
			})
		}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionCancelled)

	// No word beyond chunk 1 reached the oracle.
	assert.Len(t, client.Calls(), 2)

	final, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, final.Status)
	require.NotNil(t, final.Error)
	assert.Contains(t, *final.Error, "cancelled by user")

	// Chunk 1 results remain intact.
	count, err := store.CountResults(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// The stream's terminal event reports a non-resumable error.
	errEvents := rec.byType(EventError)
	require.Len(t, errEvents, 1)
	assert.False(t, errEvents[0].(ErrorEvent).CanResume)
}

func TestProcessWords_SessionNotFound(t *testing.T) {
	store := newTestStore(t)
	e := newTestEngine(store, oracle.NewMockClient())

	err := e.ProcessWords(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestProcessWords_AlreadyCompleted(t *testing.T) {
	store := newTestStore(t)
	e := newTestEngine(store, oracle.NewMockClient())
	ctx := context.Background()

	ids := seedWords(t, store, "a")
	session, err := e.CreateSession(ctx, ids, model.SessionConfig{ChunkSize: 1, MaxRetries: 1})
	require.NoError(t, err)
	require.NoError(t, e.ProcessWords(ctx, session.ID, nil))

	err = e.ProcessWords(ctx, session.ID, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionCompleted)
}

func TestProcessWords_ConcurrentStartRejected(t *testing.T) {
	store := newTestStore(t)
	client := oracle.NewMockClient().WithLatency(50 * time.Millisecond)
	e := newTestEngine(store, client)
	ctx := context.Background()

	ids := seedWords(t, store, "a", "b", "c", "d")
	session, err := e.CreateSession(ctx, ids, model.SessionConfig{ChunkSize: 2, MaxRetries: 1})
	require.NoError(t, err)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- e.ProcessWords(ctx, session.ID, func(ev Event) {
			if ev.Type() == EventStarted {
				close(started)
			}
		})
	}()

	<-started
	err = e.ProcessWords(ctx, session.ID, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionBusy)

	require.NoError(t, <-done)
}

func TestProcessWords_ClientDisconnectParksSessionPaused(t *testing.T) {
	store := newTestStore(t)
	client := oracle.NewMockClient()
	e := newTestEngine(store, client)
	ctx, cancel := context.WithCancel(context.Background())

	ids := seedWords(t, store, "a", "b", "c", "d")
	session, err := e.CreateSession(ctx, ids, model.SessionConfig{ChunkSize: 2, MaxRetries: 1})
	require.NoError(t, err)

	var once sync.Once
	err = e.ProcessWords(ctx, session.ID, func(ev Event) {
		if ev.Type() == EventChunkComplete {
			once.Do(cancel)
		}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionPaused)

	final, getErr := store.GetSession(context.Background(), session.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.StatusPaused, final.Status)
	assert.Equal(t, 2, final.ProcessedWords, "completed chunk survives the disconnect")
}

func TestProcessWords_VanishedWordBecomesFailedResult(t *testing.T) {
	store := newTestStore(t)
	e := newTestEngine(store, oracle.NewMockClient())
	ctx := context.Background()

	ids := seedWords(t, store, "a", "b")
	ids = append(ids, "ghost-word-id")

	session, err := e.CreateSession(ctx, ids, model.SessionConfig{ChunkSize: 3, MaxRetries: 1})
	require.NoError(t, err)
	require.NoError(t, e.ProcessWords(ctx, session.ID, nil))

	final, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, 3, final.ProcessedWords)
	assert.Equal(t, 2, final.SuccessfulWords)
	assert.Equal(t, 1, final.FailedWords)
}
