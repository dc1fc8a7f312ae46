package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agentsmonitor/backend/internal/api/ws"
	"github.com/agentsmonitor/backend/internal/domain/agent"
	"github.com/agentsmonitor/backend/internal/domain/session"
	"github.com/agentsmonitor/backend/internal/domain/terminal"
	"github.com/agentsmonitor/backend/internal/infrastructure/monitoring"
	"github.com/agentsmonitor/backend/internal/infrastructure/webhook"
	"github.com/agentsmonitor/backend/internal/logging"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	manager  *terminal.Manager
	store    *session.Store
	table    *agent.Table
	resolver *agent.Resolver
	hub      *ws.Hub
	notifier *webhook.Notifier
	metrics  *monitoring.Metrics
	log      *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(
	manager *terminal.Manager,
	store *session.Store,
	table *agent.Table,
	resolver *agent.Resolver,
	hub *ws.Hub,
	notifier *webhook.Notifier,
	metrics *monitoring.Metrics,
	log *logging.Logger,
) *Handlers {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handlers{
		manager:  manager,
		store:    store,
		table:    table,
		resolver: resolver,
		hub:      hub,
		notifier: notifier,
		metrics:  metrics,
		log:      log.Named("http"),
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "AgentsMonitor Backend",
		"version": "1.0.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	clients := 0
	if h.hub != nil {
		clients = h.hub.ClientCount()
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"terminals": gin.H{
			"active": len(h.manager.List()),
		},
		"stream": gin.H{
			"clients": clients,
		},
		"store": gin.H{
			"dir": h.store.Dir(),
		},
		"webhook": gin.H{
			"enabled": h.notifier != nil,
		},
	})
}

// MetricsSnapshot serves the lightweight JSON counters for debug tooling.
// The full Prometheus exposition lives on /metrics.
func (h *Handlers) MetricsSnapshot(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics not enabled"})
		return
	}
	snap := h.metrics.GetSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"uptimeSeconds":     h.metrics.GetUptimeSeconds(),
		"totalRequests":     snap.TotalRequests,
		"totalErrors":       snap.TotalErrors,
		"activeSessions":    snap.ActiveSessions,
		"activeConnections": snap.ActiveConnections,
		"avgRequestMs":      snap.AverageRequestMS(),
		"timestamp":         time.Now().Unix(),
	})
}

// Sweep reaps exited sessions, reconciles their stored records, and fans the
// reap events out. Shared by the periodic reaper loop and the cleanup
// endpoint.
func (h *Handlers) Sweep() []string {
	reaped := h.manager.CleanupFinished()
	for _, sid := range reaped {
		h.reconcileReaped(sid)
		if h.hub != nil {
			h.hub.SessionReaped(sid)
		}
		h.notifier.SessionEnded(sid, "reaped")
	}
	return reaped
}

// reconcileReaped marks a reaped session's stored record completed. A session
// whose child exited on its own finished its run; explicit failure states are
// set by the UI before the process goes away.
func (h *Handlers) reconcileReaped(sessionID string) {
	s, err := h.store.Load(sessionID)
	if err != nil {
		// Nothing persisted for this terminal. Fine, not every PTY
		// session has a session record.
		return
	}
	if s.Status.IsTerminal() {
		return
	}
	s.End(session.StatusCompleted)
	if err := h.store.Save(s); err != nil {
		h.log.Warn("reap reconcile failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}
