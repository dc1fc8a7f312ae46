package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentsmonitor/backend/internal/domain/session"
	"github.com/agentsmonitor/backend/internal/shared/id"
	"github.com/agentsmonitor/backend/internal/shared/validate"
)

// ListSessions returns every stored session record, newest first
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions, err := h.store.LoadAll()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// SessionSummaries returns lightweight session metadata for list views
func (h *Handlers) SessionSummaries(c *gin.Context) {
	summaries, err := h.store.LoadAllSummaries()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summaries": summaries,
		"count":     len(summaries),
	})
}

// SessionStats aggregates statistics over all stored sessions
func (h *Handlers) SessionStats(c *gin.Context) {
	summaries, err := h.store.LoadAllSummaries()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.ComputeStats(summaries))
}

// GetSession returns one full session record
func (h *Handlers) GetSession(c *gin.Context) {
	s, err := h.store.Load(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// CreateSession creates and persists a new session record
func (h *Handlers) CreateSession(c *gin.Context) {
	var req struct {
		Name             string `json:"name" binding:"required"`
		AgentType        string `json:"agentType" binding:"required"`
		WorkingDirectory string `json:"workingDirectory"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := validate.SessionName(req.Name); err != nil {
		badRequest(c, err)
		return
	}
	agentType, err := h.table.Parse(req.AgentType)
	if err != nil {
		badRequest(c, err)
		return
	}
	if req.WorkingDirectory != "" {
		if err := validate.WorkingDirectory(req.WorkingDirectory); err != nil {
			badRequest(c, err)
			return
		}
	}

	s := session.New(req.Name, agentType)
	s.WorkingDirectory = req.WorkingDirectory
	if err := h.store.Save(s); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s})
}

// UpdateSession applies a partial update to a stored record. Moving to a
// terminal status stamps endedAt if the record has none yet.
func (h *Handlers) UpdateSession(c *gin.Context) {
	var req struct {
		Status       *session.Status `json:"status"`
		ErrorMessage *string         `json:"errorMessage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, err := h.store.Load(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if req.Status != nil {
		status := *req.Status
		if !status.Valid() {
			badRequest(c, errInvalidStatus(status))
			return
		}
		if status.IsTerminal() && s.EndedAt == nil {
			s.End(status)
		} else {
			s.Status = status
		}
	}
	if req.ErrorMessage != nil {
		s.ErrorMessage = *req.ErrorMessage
	}

	if err := h.store.Save(s); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s})
}

// SaveSession persists a full session record supplied by the client
func (h *Handlers) SaveSession(c *gin.Context) {
	sid, err := id.ParseSessionID(c.Param("id"))
	if err != nil {
		invalidID(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, validate.MaxSessionRecord)
	var s session.Session
	if err := c.ShouldBindJSON(&s); err != nil {
		badRequest(c, err)
		return
	}

	if s.ID != "" {
		if normalized, err := id.ParseSessionID(s.ID); err != nil || normalized != sid {
			badRequest(c, errIDMismatch(s.ID, sid.String()))
			return
		}
	}
	s.ID = sid.String()

	if err := h.store.Save(&s); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": sid.String(),
	})
}

// DeleteSession terminates the session's PTY if one is live, then removes
// the stored record. Idempotent.
func (h *Handlers) DeleteSession(c *gin.Context) {
	sid, err := id.ParseSessionID(c.Param("id"))
	if err != nil {
		invalidID(c, err)
		return
	}

	live := false
	if _, err := h.manager.Get(sid.String()); err == nil {
		live = true
	}
	if err := h.manager.Terminate(c.Request.Context(), sid.String()); err != nil {
		respondError(c, err)
		return
	}
	if live {
		h.notifier.SessionEnded(sid.String(), "terminated")
	}

	if err := h.store.Delete(sid.String()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": sid.String(),
	})
}
