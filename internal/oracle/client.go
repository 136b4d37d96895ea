// Package oracle provides access to the external classification oracle that
// detects a word's language, translates it to English and assigns a category.
//
// The oracle is slow, rate-limited and fallible; callers are expected to treat
// every Classify call as a per-item operation whose failure is isolated.
package oracle

import (
	"context"
)

// ClassifyRequest carries one word plus the candidate reference sets.
type ClassifyRequest struct {
	Word           string
	Model          string
	LanguagePrompt string
	CategoryPrompt string
	Languages      []string
	Categories     []string
}

// Classification is the oracle's raw answer for a single word. The strings
// are unmatched oracle output; resolving them against the canonical reference
// sets is the caller's job.
type Classification struct {
	Language    string
	Translation string
	Category    string
}

// Client defines the contract for classification oracle providers.
type Client interface {
	Classify(ctx context.Context, req ClassifyRequest) (Classification, error)
}
