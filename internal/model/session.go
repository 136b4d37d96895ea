// Package model defines the core domain models used throughout the application.
package model

import "time"

// SessionStatus tracks a processing session through its lifecycle.
type SessionStatus string

// Session status constants.
const (
	StatusPending    SessionStatus = "pending"
	StatusProcessing SessionStatus = "processing"
	StatusPaused     SessionStatus = "paused"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
)

// ProcessingMode selects the execution strategy for a session.
type ProcessingMode string

// Processing mode constants.
const (
	ModeSequential ProcessingMode = "sequential"
	ModeConcurrent ProcessingMode = "concurrent"
)

// SessionConfig is the configuration snapshot captured when a session is
// created. It never changes for the lifetime of the session; in particular
// ChunkSize is authoritative on resume even if the caller supplies a
// different value.
type SessionConfig struct {
	Mode           ProcessingMode `json:"mode"`
	Model          string         `json:"model"`
	ChunkSize      int            `json:"chunkSize"`
	MaxRetries     int            `json:"maxRetries"`
	LanguagePrompt string         `json:"languagePrompt,omitempty"`
	CategoryPrompt string         `json:"categoryPrompt,omitempty"`
}

// ProcessingSession is the durable aggregate representing one job run.
type ProcessingSession struct {
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
	StartedAt           *time.Time    `json:"startedAt,omitempty"`
	CompletedAt         *time.Time    `json:"completedAt,omitempty"`
	LastProcessedAt     *time.Time    `json:"lastProcessedAt,omitempty"`
	LastProcessedWordID *string       `json:"lastProcessedWordId,omitempty"`
	Error               *string       `json:"error,omitempty"`
	ID                  string        `json:"id"`
	Status              SessionStatus `json:"status"`
	ResumeData          []string      `json:"resumeData"`
	Config              SessionConfig `json:"config"`
	TotalWords          int           `json:"totalWords"`
	ProcessedWords      int           `json:"processedWords"`
	SuccessfulWords     int           `json:"successfulWords"`
	FailedWords         int           `json:"failedWords"`
	CurrentChunk        int           `json:"currentChunk"`
	TotalChunks         int           `json:"totalChunks"`
	TotalTokensUsed     int           `json:"totalTokensUsed"`
	EstimatedCost       float64       `json:"estimatedCost"`
	RetryCount          int           `json:"retryCount"`
}

// IsTerminal reports whether the session has reached a final state.
// A failed session is terminal for the current run but may still be resumed.
func (s *ProcessingSession) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// CanResume reports whether the session is eligible for another processing
// run. Completed sessions are never resumable.
func (s *ProcessingSession) CanResume() bool {
	return s.Status != StatusCompleted && s.Status != StatusProcessing
}
