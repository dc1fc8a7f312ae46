package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentsmonitor/backend/internal/shared/id"
	"github.com/agentsmonitor/backend/internal/shared/validate"
)

// SpawnTerminal launches an agent CLI attached to a fresh PTY
func (h *Handlers) SpawnTerminal(c *gin.Context) {
	var req struct {
		SessionID        string `json:"sessionId" binding:"required"`
		AgentType        string `json:"agentType" binding:"required"`
		WorkingDirectory string `json:"workingDirectory" binding:"required"`
		Executable       string `json:"executable"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sid, err := id.ParseSessionID(req.SessionID)
	if err != nil {
		invalidID(c, err)
		return
	}
	agentType, err := h.table.Parse(req.AgentType)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := validate.WorkingDirectory(req.WorkingDirectory); err != nil {
		badRequest(c, err)
		return
	}
	if err := validate.ExecutableOverride(req.Executable); err != nil {
		badRequest(c, err)
		return
	}

	pid, err := h.manager.Spawn(sid.String(), agentType, req.WorkingDirectory, req.Executable)
	if err != nil {
		respondError(c, err)
		return
	}
	h.notifier.SessionStarted(sid.String(), string(agentType), pid)

	c.JSON(http.StatusOK, gin.H{
		"sessionId": sid.String(),
		"agentType": agentType,
		"pid":       pid,
	})
}

// TerminalInput forwards input bytes to a session's PTY. Text arrives in
// "data"; raw byte sequences (control characters, paste payloads) arrive
// base64 encoded in "bytes".
func (h *Handlers) TerminalInput(c *gin.Context) {
	sid, err := id.ParseSessionID(c.Param("id"))
	if err != nil {
		invalidID(c, err)
		return
	}

	var req struct {
		Data  string `json:"data"`
		Bytes []byte `json:"bytes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	payload := req.Bytes
	if len(payload) == 0 {
		payload = []byte(req.Data)
	}
	if err := validate.InputSize(payload); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.manager.Write(sid.String(), payload); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResizeTerminal applies new PTY geometry
func (h *Handlers) ResizeTerminal(c *gin.Context) {
	sid, err := id.ParseSessionID(c.Param("id"))
	if err != nil {
		invalidID(c, err)
		return
	}

	var req struct {
		Rows uint16 `json:"rows"`
		Cols uint16 `json:"cols"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := validate.PtyGeometry(req.Rows, req.Cols); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.manager.Resize(sid.String(), req.Rows, req.Cols); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// TerminalRunning reports whether a session's child process is alive
func (h *Handlers) TerminalRunning(c *gin.Context) {
	sid, err := id.ParseSessionID(c.Param("id"))
	if err != nil {
		invalidID(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessionId": sid.String(),
		"running":   h.manager.IsRunning(sid.String()),
	})
}

// TerminateTerminal shuts a session down with the escalating signal
// protocol. Terminating an unknown session succeeds.
func (h *Handlers) TerminateTerminal(c *gin.Context) {
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
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": sid.String(),
	})
}

// ListTerminals lists all live PTY sessions
func (h *Handlers) ListTerminals(c *gin.Context) {
	terminals := h.manager.List()
	c.JSON(http.StatusOK, gin.H{
		"terminals": terminals,
		"count":     len(terminals),
	})
}

// CleanupTerminals sweeps sessions whose child already exited
func (h *Handlers) CleanupTerminals(c *gin.Context) {
	reaped := h.Sweep()
	if reaped == nil {
		reaped = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"reaped": reaped,
		"count":  len(reaped),
	})
}
