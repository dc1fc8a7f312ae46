package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentsmonitor/backend/internal/domain/agent"
	"github.com/agentsmonitor/backend/internal/domain/session"
	"github.com/agentsmonitor/backend/internal/domain/terminal"
)

// respondError maps domain errors onto HTTP status codes and a stable error
// code clients can branch on without parsing messages.
func respondError(c *gin.Context, err error) {
	status, code := classify(err)
	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  code,
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, terminal.ErrNotFound), errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, terminal.ErrExecutableNotFound), errors.Is(err, agent.ErrExecutableNotFound):
		return http.StatusNotFound, "executable_not_found"
	case errors.Is(err, terminal.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, session.ErrInvalidID):
		return http.StatusBadRequest, "invalid_id"
	case errors.Is(err, session.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "record_too_large"
	case errors.Is(err, terminal.ErrSpawnFailed):
		return http.StatusInternalServerError, "spawn_failed"
	case errors.Is(err, terminal.ErrPty):
		return http.StatusInternalServerError, "pty_error"
	case errors.Is(err, terminal.ErrIO):
		return http.StatusInternalServerError, "io_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// badRequest reports a validation or binding failure.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
		"code":  "validation",
	})
}

// invalidID reports a malformed session identifier.
func invalidID(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
		"code":  "invalid_id",
	})
}

func errInvalidStatus(s session.Status) error {
	return fmt.Errorf("unknown session status %q", s)
}

func errIDMismatch(body, path string) error {
	return fmt.Errorf("record id %q does not match path id %q", body, path)
}
