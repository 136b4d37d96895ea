package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lexward/wordflow/internal/engine"
	"github.com/lexward/wordflow/internal/model"
	"github.com/lexward/wordflow/internal/storage"
)

// processRequest is the body of POST /api/v1/process.
type processRequest struct {
	WordIDs []string            `json:"wordIds" binding:"required,min=1"`
	Config  model.SessionConfig `json:"config"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleProcess creates a session for the requested word set and immediately
// streams its processing run as SSE.
func (s *Server) handleProcess(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	session, err := s.engine.CreateSession(c.Request.Context(), req.WordIDs, req.Config)
	if err != nil {
		if errors.Is(err, engine.ErrNoWords) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.streamSession(c, session.ID)
}

// handleResume continues a paused or failed-but-resumable session, streaming
// the remainder of the run as SSE.
func (s *Server) handleResume(c *gin.Context) {
	sessionID := c.Param("id")

	summary, err := s.engine.SessionStatus(c.Request.Context(), sessionID, 1)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	switch summary.Session.Status {
	case model.StatusCompleted:
		c.JSON(http.StatusConflict, gin.H{"error": "session already completed"})
		return
	case model.StatusProcessing:
		c.JSON(http.StatusConflict, gin.H{"error": "session is already being processed"})
		return
	}

	s.streamSession(c, sessionID)
}

func (s *Server) handlePause(c *gin.Context) {
	if err := s.engine.Pause(c.Request.Context(), c.Param("id")); err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(model.StatusPaused)})
}

func (s *Server) handleCancel(c *gin.Context) {
	if err := s.engine.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(model.StatusFailed)})
}

func (s *Server) handleReset(c *gin.Context) {
	if err := s.engine.Reset(c.Request.Context(), c.Param("id")); err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(model.StatusPending)})
}

func (s *Server) handleSessionStatus(c *gin.Context) {
	recent := 0
	if raw := c.Query("recent"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "recent must be a non-negative integer"})
			return
		}
		recent = parsed
	}

	summary, err := s.engine.SessionStatus(c.Request.Context(), c.Param("id"), recent)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleListSessions(c *gin.Context) {
	if s.sessions == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "session listing not available"})
		return
	}

	sessions, err := s.sessions.ListSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// writeEngineError maps engine and storage errors to HTTP statuses.
func writeEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, engine.ErrInvalidTransition),
		errors.Is(err, engine.ErrSessionCompleted),
		errors.Is(err, engine.ErrSessionBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
