// Package storage provides the data persistence layer for the wordflow application.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/lexward/wordflow/internal/common"
)

// SQLiteStorage implements the persistence gateway using SQLite. It owns the
// connection lifecycle: the pool is opened lazily on first use, concurrent
// callers share a single open attempt, and Close releases everything.
type SQLiteStorage struct {
	db        *sql.DB
	dbPath    string
	retryOpts common.RetryOptions
	connMu    sync.Mutex
}

// Option configures a SQLiteStorage.
type Option func(*SQLiteStorage)

// WithRetryOptions overrides the backoff policy for retried operations.
func WithRetryOptions(opts common.RetryOptions) Option {
	return func(s *SQLiteStorage) {
		s.retryOpts = opts
	}
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	s := &SQLiteStorage{
		dbPath: dbPath,
		retryOpts: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.connect(); err != nil {
		return nil, err
	}

	return s, nil
}

// connect opens the database, creating the parent directory when needed.
func (s *SQLiteStorage) connect() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.db != nil {
		return nil
	}

	if s.dbPath != ":memory:" {
		dir := filepath.Dir(s.dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", s.dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections, and a single writer
	// keeps concurrent-batch workers from holding connections across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// reconnect forces a disconnect/reconnect cycle. It is invoked between retry
// attempts that followed a connection-level failure.
func (s *SQLiteStorage) reconnect() error {
	s.connMu.Lock()
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
	s.connMu.Unlock()

	return s.connect()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// retry runs op with the gateway's backoff policy. Only errors classified as
// retryable by classifyError trigger another attempt; connection-exhaustion
// errors additionally force a reconnect before the next attempt.
func (s *SQLiteStorage) retry(ctx context.Context, op func() error) error {
	return common.WithRetry(ctx, func() error {
		return classifyError(op())
	}, s.retryOpts, func(_ int, err error) {
		if needsReconnect(err) {
			if reconnectErr := s.reconnect(); reconnectErr != nil {
				common.LogError(reconnectErr, "reconnect before retry failed", nil)
			}
		}
	})
}
