package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/lexward/wordflow/internal/common"
)

// Storage errors.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrWordNotFound     = errors.New("word not found")
	ErrLanguageNotFound = errors.New("language not found")
)

// retryableCodes is the closed allow-list of SQLite primary result codes that
// indicate a transient condition worth retrying. Everything else (constraint
// violations, misuse, not-found) propagates on first occurrence.
var retryableCodes = map[sqlite3.ErrNo]bool{
	sqlite3.ErrBusy:     true,
	sqlite3.ErrLocked:   true,
	sqlite3.ErrIoErr:    true,
	sqlite3.ErrProtocol: true,
	sqlite3.ErrCantOpen: true,
}

// classifyError wraps err in a common.RetryableError carrying the retry
// decision. nil, sql.ErrNoRows and context errors pass through untouched so
// callers can match them directly.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return &common.RetryableError{Err: err, Retryable: retryableCodes[sqliteErr.Code]}
	}

	// The driver reports some transient conditions as plain errors before a
	// result code exists (lost connection, driver-closed handle).
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "bad connection") {
		return &common.RetryableError{Err: err, Retryable: true}
	}

	return &common.RetryableError{Err: err, Retryable: false}
}

// needsReconnect reports whether a failed attempt should cycle the
// connection before the next one.
func needsReconnect(err error) bool {
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrCantOpen || sqliteErr.Code == sqlite3.ErrProtocol
	}

	return err != nil && strings.Contains(err.Error(), "bad connection")
}

// isUniqueViolation reports whether err is a uniqueness constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
