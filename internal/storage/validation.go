package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lexward/wordflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrEmptySlice     = errors.New("slice cannot be empty")
	ErrInvalidSession = errors.New("invalid session")
	ErrInvalidResult  = errors.New("invalid result")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSession validates a processing session.
func validateSession(session *model.ProcessingSession) error {
	if session == nil {
		return fmt.Errorf("%w: session", ErrNilParameter)
	}
	if session.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidSession)
	}
	if session.Status == "" {
		return fmt.Errorf("%w: missing status", ErrInvalidSession)
	}
	if len(session.ResumeData) == 0 {
		return fmt.Errorf("%w: empty resume data", ErrInvalidSession)
	}
	if session.Config.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidSession)
	}
	if session.ProcessedWords != session.SuccessfulWords+session.FailedWords {
		return fmt.Errorf("%w: counter mismatch", ErrInvalidSession)
	}
	return nil
}

// validateResult validates a processing result.
func validateResult(result *model.ProcessingResult) error {
	if result == nil {
		return fmt.Errorf("%w: result", ErrNilParameter)
	}
	if result.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidResult)
	}
	if result.SessionID == "" {
		return fmt.Errorf("%w: missing session ID", ErrInvalidResult)
	}
	if result.OriginalWord == "" {
		return fmt.Errorf("%w: missing original word", ErrInvalidResult)
	}
	return nil
}
