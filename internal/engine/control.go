package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexward/wordflow/internal/model"
)

// ErrInvalidTransition is returned for control operations that are illegal in
// the session's current state. These are synchronous rejections: no state
// changes.
var ErrInvalidTransition = errors.New("invalid session state for operation")

// Pause requests suspension of a running session. Legal only while the
// session is processing; the active run observes the new status at the next
// chunk boundary.
func (e *Engine) Pause(ctx context.Context, sessionID string) error {
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != model.StatusProcessing {
		return fmt.Errorf("%w: cannot pause %s session", ErrInvalidTransition, session.Status)
	}

	session.Status = model.StatusPaused
	if err := e.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to pause session: %w", err)
	}

	slog.Info("session paused", "session_id", sessionID)
	return nil
}

// Cancel terminally fails a session at the user's request. Legal from
// processing, paused or pending. Results accumulated so far are preserved;
// the session is not resumable afterwards.
func (e *Engine) Cancel(ctx context.Context, sessionID string) error {
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	switch session.Status {
	case model.StatusProcessing, model.StatusPaused, model.StatusPending:
	default:
		return fmt.Errorf("%w: cannot cancel %s session", ErrInvalidTransition, session.Status)
	}

	msg := userCancelMessage
	session.Status = model.StatusFailed
	session.Error = &msg
	if err := e.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to cancel session: %w", err)
	}

	slog.Info("session cancelled", "session_id", sessionID)
	return nil
}

// Reset zeroes all progress and deletes the session's result history: an
// explicit, irreversible restart. Legal whenever the session is not actively
// processing.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == model.StatusProcessing {
		return fmt.Errorf("%w: cannot reset a processing session", ErrInvalidTransition)
	}

	session.Status = model.StatusPending
	session.ProcessedWords = 0
	session.SuccessfulWords = 0
	session.FailedWords = 0
	session.CurrentChunk = 0
	session.TotalTokensUsed = 0
	session.EstimatedCost = 0
	session.RetryCount = 0
	session.LastProcessedWordID = nil
	session.Error = nil
	session.StartedAt = nil
	session.CompletedAt = nil
	session.LastProcessedAt = nil

	if err := e.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	if err := e.store.DeleteResults(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear session results: %w", err)
	}

	slog.Info("session reset", "session_id", sessionID)
	return nil
}

// SessionStatus returns the session, its most recent results and derived
// aggregate statistics.
func (e *Engine) SessionStatus(ctx context.Context, sessionID string, recentLimit int) (*model.SessionSummary, error) {
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if recentLimit <= 0 {
		recentLimit = 10
	}
	recent, err := e.store.ListResults(ctx, sessionID, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent results: %w", err)
	}

	summary := &model.SessionSummary{
		Session:       *session,
		RecentResults: recent,
	}

	if session.ProcessedWords > 0 {
		summary.SuccessRate = float64(session.SuccessfulWords) / float64(session.ProcessedWords)
		summary.AvgCostPerWord = session.EstimatedCost / float64(session.ProcessedWords)
	}
	if session.TotalWords > 0 {
		summary.CompletionRate = float64(session.ProcessedWords) / float64(session.TotalWords)
	}
	if session.StartedAt != nil {
		end := time.Now().UTC()
		if session.CompletedAt != nil {
			end = *session.CompletedAt
		}
		summary.Duration = end.Sub(*session.StartedAt)
	}

	return summary, nil
}
