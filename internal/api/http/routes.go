package http

import "github.com/gin-gonic/gin"

// Register mounts the REST surface on router. The WebSocket stream and the
// Prometheus exposition are mounted by the server, which owns their
// dependencies.
func (h *Handlers) Register(router gin.IRouter) {
	// Service
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/metrics/json", h.MetricsSnapshot)

	// Terminal lifecycle
	router.GET("/api/terminals", h.ListTerminals)
	router.POST("/api/terminals", h.SpawnTerminal)
	router.POST("/api/terminals/cleanup", h.CleanupTerminals)
	router.POST("/api/terminals/:id/input", h.TerminalInput)
	router.POST("/api/terminals/:id/resize", h.ResizeTerminal)
	router.GET("/api/terminals/:id/running", h.TerminalRunning)
	router.DELETE("/api/terminals/:id", h.TerminateTerminal)

	// Agent table
	router.GET("/api/agents", h.ListAgents)
	router.GET("/api/agents/:type/executable", h.ResolveAgentExecutable)

	// Session records
	router.GET("/api/sessions", h.ListSessions)
	router.POST("/api/sessions", h.CreateSession)
	router.GET("/api/sessions/summaries", h.SessionSummaries)
	router.GET("/api/sessions/stats", h.SessionStats)
	router.GET("/api/sessions/:id", h.GetSession)
	router.PATCH("/api/sessions/:id", h.UpdateSession)
	router.PUT("/api/sessions/:id", h.SaveSession)
	router.DELETE("/api/sessions/:id", h.DeleteSession)

	// Frontend log ingestion
	router.POST("/api/logs/ui", h.StreamUILogs)
}
