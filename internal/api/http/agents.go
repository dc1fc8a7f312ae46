package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentsmonitor/backend/internal/shared/validate"
)

// ListAgents returns the agent table
func (h *Handlers) ListAgents(c *gin.Context) {
	defs := h.table.Definitions()
	c.JSON(http.StatusOK, gin.H{
		"agents": defs,
		"count":  len(defs),
	})
}

// ResolveAgentExecutable locates the executable that would be launched for
// an agent type, honoring an optional ?override= path. Lets the UI show
// which binary a spawn would run before spawning.
func (h *Handlers) ResolveAgentExecutable(c *gin.Context) {
	agentType, err := h.table.Parse(c.Param("type"))
	if err != nil {
		badRequest(c, err)
		return
	}
	def, _ := h.table.Lookup(agentType)

	override := c.Query("override")
	if err := validate.ExecutableOverride(override); err != nil {
		badRequest(c, err)
		return
	}

	path, err := h.resolver.Resolve(def, override)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"agentType":  agentType,
		"executable": path,
	})
}
