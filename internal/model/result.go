package model

import "time"

// ProcessingResult records one attempted classification of one word within a
// session. Results are append-only: a row is created exactly once per attempt
// and never mutated, which makes the result history authoritative for resume.
type ProcessingResult struct {
	CreatedAt          time.Time `json:"createdAt"`
	DetectedLanguage   *string   `json:"detectedLanguage,omitempty"`
	EnglishTranslation *string   `json:"englishTranslation,omitempty"`
	AssignedCategory   *string   `json:"assignedCategory,omitempty"`
	Error              *string   `json:"error,omitempty"`
	ID                 string    `json:"id"`
	SessionID          string    `json:"sessionId"`
	WordID             string    `json:"wordId"`
	OriginalWord       string    `json:"originalWord"`
	ProcessingTimeMS   int64     `json:"processingTime"`
	TokensUsed         int       `json:"tokensUsed"`
	Cost               float64   `json:"cost"`
	Success            bool      `json:"success"`
}
