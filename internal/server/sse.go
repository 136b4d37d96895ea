package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexward/wordflow/internal/engine"
)

// envelope is the SSE wire frame carried in each data: line.
type envelope struct {
	Type      engine.EventType `json:"type"`
	SessionID string           `json:"sessionId"`
	Data      any              `json:"data"`
	Timestamp time.Time        `json:"timestamp"`
}

// streamSession runs a session to a terminal state, relaying engine events as
// SSE frames. The request context doubles as the engine context, so a client
// disconnect is observed at the next chunk boundary and parks the session
// paused.
func (s *Server) streamSession(c *gin.Context, sessionID string) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	reqCtx := c.Request.Context()
	events := make(chan engine.Event, 64)
	done := make(chan error, 1)

	go func() {
		err := s.engine.ProcessWords(reqCtx, sessionID, func(ev engine.Event) {
			// Drop events once the client is gone so a full channel can
			// never wedge the engine.
			select {
			case events <- ev:
			case <-reqCtx.Done():
			}
		})
		close(events)
		done <- err
	}()

	terminal := false
	for ev := range events {
		if err := writeFrame(c, flusher, sessionID, ev); err != nil {
			// Client went away mid-write. Keep draining so the engine's
			// sink never blocks; it will park the session shortly.
			continue
		}
		if ev.Type() == engine.EventComplete || ev.Type() == engine.EventError {
			terminal = true
		}
	}

	// Gating failures (busy, completed, missing) return without emitting
	// anything; the stream contract still owes exactly one terminal event.
	if err := <-done; err != nil && !terminal {
		_ = writeFrame(c, flusher, sessionID, engine.ErrorEvent{
			Message:   err.Error(),
			CanResume: errors.Is(err, engine.ErrSessionPaused),
		})
	}
}

func writeFrame(c *gin.Context, flusher http.Flusher, sessionID string, ev engine.Event) error {
	payload, err := json.Marshal(envelope{
		Type:      ev.Type(),
		SessionID: sessionID,
		Data:      ev,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
