package engine

import (
	"time"

	"github.com/lexward/wordflow/internal/model"
)

// EventType identifies one variant of the engine's event stream.
type EventType string

// Event type constants.
const (
	EventStarted       EventType = "started"
	EventStatus        EventType = "status"
	EventResult        EventType = "result"
	EventChunkComplete EventType = "chunk_complete"
	EventComplete      EventType = "complete"
	EventError         EventType = "error"
)

// Event is the closed union of everything the engine emits. Each variant
// carries a concrete payload shape so transports and clients can share a
// single exhaustive-match contract.
type Event interface {
	Type() EventType
}

// StartedEvent is emitted exactly once per processing run, before the first
// chunk is dispatched.
type StartedEvent struct {
	Mode        model.ProcessingMode `json:"mode"`
	TotalWords  int                  `json:"totalWords"`
	TotalChunks int                  `json:"totalChunks"`
	StartChunk  int                  `json:"startChunk"`
}

// Type implements Event.
func (StartedEvent) Type() EventType { return EventStarted }

// StatusEvent reports a session status transition observed mid-run.
type StatusEvent struct {
	Status  model.SessionStatus `json:"status"`
	Message string              `json:"message,omitempty"`
}

// Type implements Event.
func (StatusEvent) Type() EventType { return EventStatus }

// ResultEvent carries one classified word together with its match outcome.
type ResultEvent struct {
	Result          model.ProcessingResult `json:"result"`
	LanguageMatched bool                   `json:"languageMatched"`
	CategoryMatched bool                   `json:"categoryMatched"`
}

// Type implements Event.
func (ResultEvent) Type() EventType { return EventResult }

// ChunkCompleteEvent is emitted after each chunk with recomputed statistics.
type ChunkCompleteEvent struct {
	Stats       model.ProcessingStats `json:"stats"`
	Chunk       int                   `json:"chunk"`
	TotalChunks int                   `json:"totalChunks"`
}

// Type implements Event.
func (ChunkCompleteEvent) Type() EventType { return EventChunkComplete }

// CompleteEvent is the successful terminal event for a stream.
type CompleteEvent struct {
	Stats     model.ProcessingStats `json:"stats"`
	TotalCost float64               `json:"totalCost"`
	Duration  time.Duration         `json:"duration"`
}

// Type implements Event.
func (CompleteEvent) Type() EventType { return EventComplete }

// ErrorEvent is the failing terminal event for a stream. CanResume is false
// only for explicit user cancellation.
type ErrorEvent struct {
	Message   string `json:"message"`
	CanResume bool   `json:"canResume"`
}

// Type implements Event.
func (ErrorEvent) Type() EventType { return EventError }

// EventSink receives engine events in emission order. Sinks must not block
// for long; the engine calls them synchronously between units of work.
type EventSink func(Event)

func nopSink(Event) {}
