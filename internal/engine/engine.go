// Package engine implements the core job-processing pipeline: the session
// state machine, the chunking and resume algorithm, the sequential and
// concurrent execution strategies, and the live progress event stream.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lexward/wordflow/internal/common"
	"github.com/lexward/wordflow/internal/match"
	"github.com/lexward/wordflow/internal/model"
	"github.com/lexward/wordflow/internal/oracle"
)

// Engine errors.
var (
	ErrNoWords          = errors.New("no words to process")
	ErrSessionCompleted = errors.New("session already completed")
	ErrSessionBusy      = errors.New("session is already being processed")
	ErrSessionPaused    = errors.New("session paused")
	ErrSessionCancelled = errors.New("session cancelled by user")
)

// maxChunkSize hard-caps the per-chunk concurrency of the concurrent-batch
// strategy.
const maxChunkSize = 50

// userCancelMessage is the error text recorded on a user-cancelled session.
const userCancelMessage = "cancelled by user"

// Config holds configuration defaults applied to new sessions.
type Config struct {
	Mode       model.ProcessingMode
	Model      string
	ChunkSize  int
	MaxRetries int
	ChunkDelay time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Mode:       model.ModeSequential,
		Model:      "gpt-4o-mini",
		ChunkSize:  10,
		MaxRetries: 3,
		ChunkDelay: 250 * time.Millisecond,
	}
}

// Engine orchestrates word classification sessions.
type Engine struct {
	store  Store
	oracle oracle.Client
	cfg    Config

	// active enforces one logical job driver per session within this
	// process; the persisted status field covers cross-process starts.
	activeMu sync.Mutex
	active   map[string]bool
}

// New creates a new engine with default configuration.
func New(store Store, client oracle.Client) *Engine {
	return NewWithConfig(store, client, DefaultConfig())
}

// NewWithConfig creates a new engine with custom configuration.
func NewWithConfig(store Store, client oracle.Client, cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.Mode == "" {
		cfg.Mode = defaults.Mode
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaults.ChunkSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.ChunkDelay <= 0 {
		cfg.ChunkDelay = defaults.ChunkDelay
	}

	return &Engine{
		store:  store,
		oracle: client,
		cfg:    cfg,
		active: make(map[string]bool),
	}
}

// CreateSession validates the word set, freezes its ordering and persists a
// pending session. The frozen ordering is the only legal iteration order for
// this job, forever; resume never re-derives it from a live query.
func (e *Engine) CreateSession(ctx context.Context, wordIDs []string, cfg model.SessionConfig) (*model.ProcessingSession, error) {
	if len(wordIDs) == 0 {
		return nil, ErrNoWords
	}

	if cfg.Mode == "" {
		cfg.Mode = e.cfg.Mode
	}
	if cfg.Model == "" {
		cfg.Model = e.cfg.Model
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = e.cfg.ChunkSize
	}
	if cfg.ChunkSize > maxChunkSize {
		cfg.ChunkSize = maxChunkSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = e.cfg.MaxRetries
	}

	frozen := append([]string(nil), wordIDs...)
	session := &model.ProcessingSession{
		ID:          uuid.NewString(),
		Status:      model.StatusPending,
		ResumeData:  frozen,
		Config:      cfg,
		TotalWords:  len(frozen),
		TotalChunks: totalChunks(len(frozen), cfg.ChunkSize),
	}

	if err := e.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("created processing session",
		"session_id", session.ID,
		"total_words", session.TotalWords,
		"total_chunks", session.TotalChunks,
		"mode", cfg.Mode)

	return session, nil
}

// ProcessWords runs (or resumes) a session to a terminal state, emitting
// progress events to sink. The caller owns ctx; cancelling it stops the run
// at the next chunk boundary and leaves the session resumable.
func (e *Engine) ProcessWords(ctx context.Context, sessionID string, sink EventSink) error {
	if sink == nil {
		sink = nopSink
	}

	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == model.StatusCompleted {
		return fmt.Errorf("%w: %s", ErrSessionCompleted, sessionID)
	}
	if session.Status == model.StatusProcessing {
		return fmt.Errorf("%w: %s", ErrSessionBusy, sessionID)
	}
	if !e.acquire(sessionID) {
		return fmt.Errorf("%w: %s", ErrSessionBusy, sessionID)
	}
	defer e.release(sessionID)

	languages, err := e.store.GetLanguages(ctx)
	if err != nil {
		return fmt.Errorf("failed to load languages: %w", err)
	}
	categories, err := e.store.GetCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	now := time.Now().UTC()
	session.Status = model.StatusProcessing
	session.Error = nil
	if session.StartedAt == nil {
		session.StartedAt = &now
	}
	if err := e.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to mark session processing: %w", err)
	}
	sink(StatusEvent{Status: model.StatusProcessing})

	runErr := e.run(ctx, session, languages, categories, sink)
	if runErr == nil {
		return nil
	}

	switch {
	case errors.Is(runErr, ErrSessionPaused):
		sink(ErrorEvent{Message: "session paused", CanResume: true})
	case errors.Is(runErr, ErrSessionCancelled):
		sink(ErrorEvent{Message: userCancelMessage, CanResume: false})
	default:
		e.markFailed(session, runErr)
		sink(ErrorEvent{Message: runErr.Error(), CanResume: true})
	}
	return runErr
}

// run drives the chunk loop for a session that is already in processing
// state.
func (e *Engine) run(ctx context.Context, session *model.ProcessingSession, languages []model.Language, categories []model.Category, sink EventSink) error {
	// Resolve the working set from the frozen ordering and the resume
	// cursor. An unknown cursor falls back to the full set: reprocessing is
	// tolerable under at-least-once semantics, dropping work is not. The
	// stale progress that went with the lost cursor is discarded so the
	// rerun's counters and result ledger cover each word exactly once.
	startIdx, ok := resumeIndex(session.ResumeData, session.LastProcessedWordID)
	if !ok {
		slog.Warn("resume cursor not in session ordering, restarting from beginning",
			"session_id", session.ID,
			"cursor", *session.LastProcessedWordID)
		if err := e.restartProgress(ctx, session); err != nil {
			return err
		}
	}
	remaining := session.ResumeData[startIdx:]
	chunks := chunkIDs(remaining, session.Config.ChunkSize)
	baseChunk := startIdx / session.Config.ChunkSize

	sink(StartedEvent{
		Mode:        session.Config.Mode,
		TotalWords:  session.TotalWords,
		TotalChunks: session.TotalChunks,
		StartChunk:  baseChunk,
	})

	m := newMetrics()

	for i, chunk := range chunks {
		if err := e.checkInterrupt(ctx, session); err != nil {
			return err
		}

		chunkNumber := baseChunk + i + 1

		// Checkpoint before dispatch: a crash mid-chunk loses at most one
		// chunk's progress accounting, not the whole job.
		session.CurrentChunk = chunkNumber
		if err := e.store.UpdateSession(ctx, session); err != nil {
			return fmt.Errorf("failed to checkpoint chunk %d: %w", chunkNumber, err)
		}

		words, err := e.store.GetWordsByIDs(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to load chunk words: %w", err)
		}

		results, err := e.processChunk(ctx, session, chunk, words, languages, categories, m, sink)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, result := range results {
			session.ProcessedWords++
			if result.Success {
				session.SuccessfulWords++
			} else {
				session.FailedWords++
			}
			session.TotalTokensUsed += result.TokensUsed
			session.EstimatedCost += result.Cost
		}
		if len(chunk) > 0 {
			last := chunk[len(chunk)-1]
			session.LastProcessedWordID = &last
		}
		session.LastProcessedAt = &now

		if err := e.store.UpdateSession(ctx, session); err != nil {
			return fmt.Errorf("failed to persist chunk %d progress: %w", chunkNumber, err)
		}

		sink(ChunkCompleteEvent{
			Chunk:       chunkNumber,
			TotalChunks: session.TotalChunks,
			Stats:       m.snapshot(session, now),
		})

		slog.Debug("chunk complete",
			"session_id", session.ID,
			"chunk", chunkNumber,
			"processed", session.ProcessedWords,
			"total", session.TotalWords)

		// Throttle between chunks to stay under the oracle's rate limit.
		// Not a correctness requirement.
		if i < len(chunks)-1 && e.cfg.ChunkDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(e.cfg.ChunkDelay):
			}
		}
	}

	now := time.Now().UTC()
	session.Status = model.StatusCompleted
	session.CompletedAt = &now
	if err := e.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to mark session completed: %w", err)
	}

	var duration time.Duration
	if session.StartedAt != nil {
		duration = now.Sub(*session.StartedAt)
	}
	sink(CompleteEvent{
		Stats:     m.snapshot(session, now),
		TotalCost: session.EstimatedCost,
		Duration:  duration,
	})

	slog.Info("session complete",
		"session_id", session.ID,
		"processed", session.ProcessedWords,
		"successful", session.SuccessfulWords,
		"failed", session.FailedWords,
		"cost", session.EstimatedCost)

	return nil
}

// checkInterrupt observes, between chunks, both context cancellation and
// out-of-band control operations that changed the persisted status.
func (e *Engine) checkInterrupt(ctx context.Context, session *model.ProcessingSession) error {
	select {
	case <-ctx.Done():
		// Consumer went away. Park the session as paused so it stays
		// resumable; persist with a fresh context since ours is dead.
		session.Status = model.StatusPaused
		persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.store.UpdateSession(persistCtx, session); err != nil {
			slog.Error("failed to park session on disconnect", "session_id", session.ID, "error", err)
		}
		return fmt.Errorf("%w: %v", ErrSessionPaused, ctx.Err())
	default:
	}

	fresh, err := e.store.GetSession(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to reload session state: %w", err)
	}

	switch fresh.Status {
	case model.StatusPaused:
		session.Status = model.StatusPaused
		return ErrSessionPaused
	case model.StatusFailed:
		// Cancel marks the session failed out-of-band and records the
		// cancellation text; nothing left to persist here.
		session.Status = model.StatusFailed
		return ErrSessionCancelled
	default:
		return nil
	}
}

// restartProgress zeroes a session's counters and deletes its result history
// before a from-scratch rerun, keeping the status and timestamps of the run
// already in flight.
func (e *Engine) restartProgress(ctx context.Context, session *model.ProcessingSession) error {
	session.ProcessedWords = 0
	session.SuccessfulWords = 0
	session.FailedWords = 0
	session.CurrentChunk = 0
	session.TotalTokensUsed = 0
	session.EstimatedCost = 0
	session.LastProcessedWordID = nil
	session.LastProcessedAt = nil

	if err := e.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to reset session progress: %w", err)
	}
	if err := e.store.DeleteResults(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to clear stale session results: %w", err)
	}
	return nil
}

// markFailed records an unrecoverable engine failure. Progress made so far is
// preserved and the session is reported resumable.
func (e *Engine) markFailed(session *model.ProcessingSession, cause error) {
	msg := cause.Error()
	session.Status = model.StatusFailed
	session.Error = &msg
	session.RetryCount++

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.store.UpdateSession(ctx, session); err != nil {
		slog.Error("failed to mark session failed", "session_id", session.ID, "error", err)
	}
}

// processChunk dispatches one chunk using the session's execution strategy
// and appends every outcome to the result ledger. Per-item failures never
// escape: they come back as success:false results.
func (e *Engine) processChunk(ctx context.Context, session *model.ProcessingSession, chunk []string, words map[string]model.Word, languages []model.Language, categories []model.Category, m *metrics, sink EventSink) ([]model.ProcessingResult, error) {
	var results []model.ProcessingResult

	switch session.Config.Mode {
	case model.ModeConcurrent:
		results = e.classifyConcurrent(ctx, session, chunk, words, languages, categories)
	default:
		results = e.classifySequential(ctx, session, chunk, words, languages, categories, m, sink)
	}

	for i := range results {
		if err := e.store.AppendResult(ctx, &results[i]); err != nil {
			return nil, fmt.Errorf("failed to record result for %q: %w", results[i].OriginalWord, err)
		}
	}

	if session.Config.Mode == model.ModeConcurrent {
		// Concurrent mode collects all outcomes first, then emits; ordering
		// within the chunk is not guaranteed to match classification order.
		for i := range results {
			m.record(time.Duration(results[i].ProcessingTimeMS) * time.Millisecond)
			sink(e.resultEvent(results[i], languages, categories))
		}
	}

	return results, nil
}

// classifySequential processes chunk items one at a time in frozen order,
// emitting a result event after each.
func (e *Engine) classifySequential(ctx context.Context, session *model.ProcessingSession, chunk []string, words map[string]model.Word, languages []model.Language, categories []model.Category, m *metrics, sink EventSink) []model.ProcessingResult {
	results := make([]model.ProcessingResult, 0, len(chunk))
	for _, wordID := range chunk {
		result := e.classifyWord(ctx, session, wordID, words, languages, categories)
		results = append(results, result)
		m.record(time.Duration(result.ProcessingTimeMS) * time.Millisecond)
		sink(e.resultEvent(result, languages, categories))
	}
	return results
}

// classifyConcurrent processes all chunk items in parallel, bounded by the
// chunk size. One item's failure must not cancel its siblings, so item
// errors are converted to failed results inside classifyWord and the group
// never sees an error.
func (e *Engine) classifyConcurrent(ctx context.Context, session *model.ProcessingSession, chunk []string, words map[string]model.Word, languages []model.Language, categories []model.Category) []model.ProcessingResult {
	results := make([]model.ProcessingResult, len(chunk))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxChunkSize)
	for i, wordID := range chunk {
		g.Go(func() error {
			results[i] = e.classifyWord(gctx, session, wordID, words, languages, categories)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// classifyWord runs the per-item pipeline: oracle call, reference matching,
// canonical word upsert. Any failure is recorded as a success:false result
// with the original word echoed back; an in-flight oracle call is allowed to
// finish even if cancellation arrives mid-call so no partial write is
// orphaned.
func (e *Engine) classifyWord(ctx context.Context, session *model.ProcessingSession, wordID string, words map[string]model.Word, languages []model.Language, categories []model.Category) model.ProcessingResult {
	start := time.Now()
	result := model.ProcessingResult{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		WordID:    wordID,
		CreatedAt: start.UTC(),
	}

	fail := func(err error) model.ProcessingResult {
		msg := err.Error()
		result.Error = &msg
		result.Success = false
		result.ProcessingTimeMS = time.Since(start).Milliseconds()
		return result
	}

	word, ok := words[wordID]
	if !ok {
		result.OriginalWord = wordID
		return fail(fmt.Errorf("word %s no longer exists", wordID))
	}
	result.OriginalWord = word.Word

	req := oracle.ClassifyRequest{
		Word:           word.Word,
		Model:          session.Config.Model,
		LanguagePrompt: session.Config.LanguagePrompt,
		CategoryPrompt: session.Config.CategoryPrompt,
		Languages:      languageNames(languages),
		Categories:     categoryNames(categories),
	}

	var classification oracle.Classification
	err := common.WithRetry(ctx, func() error {
		var classifyErr error
		classification, classifyErr = e.oracle.Classify(ctx, req)
		if classifyErr != nil {
			return &common.RetryableError{Err: classifyErr, Retryable: true}
		}
		return nil
	}, common.RetryOptions{
		MaxAttempts:  session.Config.MaxRetries,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	})

	tokens, cost := oracle.EstimateUsage(session.Config.Model, req)
	result.TokensUsed = tokens
	result.Cost = cost
	if err != nil {
		return fail(fmt.Errorf("classification failed: %w", err))
	}

	var languageID *int64
	if lang, matched := match.MatchLanguage(classification.Language, languages); matched {
		languageID = &lang.ID
		result.DetectedLanguage = &lang.Name
	} else if classification.Language != "" {
		result.DetectedLanguage = &classification.Language
	}
	if classification.Translation != "" {
		result.EnglishTranslation = &classification.Translation
	}
	if category, matched := match.MatchCategory(classification.Category, categories); matched {
		result.AssignedCategory = &category
	} else if classification.Category != "" {
		result.AssignedCategory = &classification.Category
	}

	category := ""
	if result.AssignedCategory != nil {
		category = *result.AssignedCategory
	}
	if _, err := e.store.UpsertClassifiedWord(ctx, word.Word, languageID, classification.Translation, category); err != nil {
		return fail(fmt.Errorf("failed to persist classification: %w", err))
	}

	result.Success = true
	result.ProcessingTimeMS = time.Since(start).Milliseconds()
	return result
}

func (e *Engine) resultEvent(result model.ProcessingResult, languages []model.Language, categories []model.Category) ResultEvent {
	ev := ResultEvent{Result: result}
	if result.DetectedLanguage != nil {
		_, ev.LanguageMatched = match.MatchLanguage(*result.DetectedLanguage, languages)
	}
	if result.AssignedCategory != nil {
		_, ev.CategoryMatched = match.MatchCategory(*result.AssignedCategory, categories)
	}
	return ev
}

func (e *Engine) acquire(sessionID string) bool {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	if e.active[sessionID] {
		return false
	}
	e.active[sessionID] = true
	return true
}

func (e *Engine) release(sessionID string) {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	delete(e.active, sessionID)
}

func languageNames(languages []model.Language) []string {
	names := make([]string, len(languages))
	for i, l := range languages {
		names[i] = l.Name
	}
	return names
}

func categoryNames(categories []model.Category) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return names
}
