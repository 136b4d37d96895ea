package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockClient is a deterministic oracle implementation for tests and dry runs.
// Responses can be scripted per word; unscripted words echo back an English
// identity classification.
type MockClient struct {
	responses map[string]Classification
	failures  map[string]error
	calls     []string
	latency   time.Duration
	mu        sync.Mutex
}

// NewMockClient creates a mock oracle with no scripted responses.
func NewMockClient() *MockClient {
	return &MockClient{
		responses: make(map[string]Classification),
		failures:  make(map[string]error),
	}
}

// Respond scripts the classification returned for a word.
func (m *MockClient) Respond(word string, c Classification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[word] = c
}

// Fail scripts a failure for a word.
func (m *MockClient) Fail(word string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[word] = err
}

// WithLatency makes every call sleep for d, for timing-sensitive tests.
func (m *MockClient) WithLatency(d time.Duration) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
	return m
}

// Calls returns the words classified so far, in call order.
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Classify implements Client.
func (m *MockClient) Classify(ctx context.Context, req ClassifyRequest) (Classification, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req.Word)
	latency := m.latency
	response, hasResponse := m.responses[req.Word]
	failure, hasFailure := m.failures[req.Word]
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-ctx.Done():
			return Classification{}, ctx.Err()
		case <-time.After(latency):
		}
	}

	if hasFailure {
		return Classification{}, fmt.Errorf("mock oracle: %w", failure)
	}
	if hasResponse {
		return response, nil
	}

	return Classification{
		Language:    "English",
		Translation: req.Word,
		Category:    firstOr(req.Categories, "Uncategorized"),
	}, nil
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}
