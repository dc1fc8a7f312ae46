package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UILogEntry is one log record forwarded by the desktop frontend.
type UILogEntry struct {
	ID        string         `json:"id"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context"`
	Timestamp string         `json:"timestamp"`
}

// maxUILogBatch bounds one ingestion request.
const maxUILogBatch = 500

// StreamUILogs ingests frontend log batches into the backend's structured
// log stream, so desktop UI problems show up next to the PTY and store
// events they relate to.
func (h *Handlers) StreamUILogs(c *gin.Context) {
	var req struct {
		Source  string       `json:"source"`
		Entries []UILogEntry `json:"entries"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if req.Source != "ui" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown log source", "code": "validation"})
		return
	}
	if len(req.Entries) == 0 || len(req.Entries) > maxUILogBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entry count out of range", "code": "validation"})
		return
	}

	logger := h.log.Named("ui")
	for _, entry := range req.Entries {
		fields := make([]zap.Field, 0, len(entry.Context)+2)
		fields = append(fields,
			zap.String("ui_log_id", entry.ID),
			zap.String("ui_timestamp", entry.Timestamp),
		)
		for key, value := range entry.Context {
			fields = append(fields, zap.Any(key, value))
		}

		switch entry.Level {
		case "error":
			logger.Error(entry.Message, fields...)
		case "warn":
			logger.Warn(entry.Message, fields...)
		case "debug":
			logger.Debug(entry.Message, fields...)
		default:
			logger.Info(entry.Message, fields...)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"received": len(req.Entries),
		"ts":       time.Now().Unix(),
	})
}
