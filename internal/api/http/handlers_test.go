package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentsmonitor/backend/internal/domain/agent"
	"github.com/agentsmonitor/backend/internal/domain/session"
	"github.com/agentsmonitor/backend/internal/domain/terminal"
	"github.com/agentsmonitor/backend/internal/logging"
	"github.com/agentsmonitor/backend/internal/shared/id"
)

type testEnv struct {
	router  *gin.Engine
	store   *session.Store
	manager *terminal.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logging.NewNop()

	store, err := session.NewStore(t.TempDir(), log, nil)
	require.NoError(t, err)

	table := agent.Builtin()
	resolver := agent.NewResolverWithHome(t.TempDir())
	manager := terminal.NewManager(table, resolver, nil, log)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		manager.Shutdown(ctx)
	})

	h := NewHandlers(manager, store, table, resolver, nil, nil, nil, log)
	router := gin.New()
	h.Register(router)

	return &testEnv{router: router, store: store, manager: manager}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func spawnCat(t *testing.T, env *testEnv) string {
	t.Helper()
	sid := string(id.NewSessionID())
	w := env.do(t, "POST", "/api/terminals", gin.H{
		"sessionId":        sid,
		"agentType":        "Custom",
		"workingDirectory": t.TempDir(),
		"executable":       "/bin/cat",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return sid
}

func TestSpawnInputResizeTerminate(t *testing.T) {
	env := newTestEnv(t)
	sid := spawnCat(t, env)

	// Lowercase ids normalize to the same session.
	w := env.do(t, "GET", "/api/terminals/"+strings.ToLower(sid)+"/running", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"running":true`)

	w = env.do(t, "POST", "/api/terminals/"+sid+"/input", gin.H{"data": "hello\n"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, "POST", "/api/terminals/"+sid+"/input", gin.H{"bytes": []byte{0x1b, '[', 'A'}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, "POST", "/api/terminals/"+sid+"/resize", gin.H{"rows": 50, "cols": 120})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, "GET", "/api/terminals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), sid)

	w = env.do(t, "DELETE", "/api/terminals/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "GET", "/api/terminals/"+sid+"/running", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"running":false`)

	// Terminate is idempotent.
	w = env.do(t, "DELETE", "/api/terminals/"+sid, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSpawnValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/terminals", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/terminals", gin.H{
		"sessionId":        "not-a-uuid",
		"agentType":        "Custom",
		"workingDirectory": t.TempDir(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_id")

	w = env.do(t, "POST", "/api/terminals", gin.H{
		"sessionId":        string(id.NewSessionID()),
		"agentType":        "NotAnAgent",
		"workingDirectory": t.TempDir(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/terminals", gin.H{
		"sessionId":        string(id.NewSessionID()),
		"agentType":        "Custom",
		"workingDirectory": "/definitely/not/a/dir",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSpawnDuplicateConflicts(t *testing.T) {
	env := newTestEnv(t)
	sid := spawnCat(t, env)

	w := env.do(t, "POST", "/api/terminals", gin.H{
		"sessionId":        sid,
		"agentType":        "Custom",
		"workingDirectory": t.TempDir(),
		"executable":       "/bin/cat",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already_exists")
}

func TestInputUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/terminals/"+string(id.NewSessionID())+"/input", gin.H{"data": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")

	// Empty payload is rejected before touching the manager.
	w = env.do(t, "POST", "/api/terminals/"+string(id.NewSessionID())+"/input", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCleanupReconcilesStore(t *testing.T) {
	env := newTestEnv(t)

	// Persist a running record under the same id the PTY will use.
	sid := string(id.NewSessionID())
	rec := session.New("Short run", agent.Custom)
	rec.ID = sid
	require.NoError(t, env.store.Save(rec))

	w := env.do(t, "POST", "/api/terminals", gin.H{
		"sessionId":        sid,
		"agentType":        "Custom",
		"workingDirectory": t.TempDir(),
		"executable":       "/bin/echo",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Eventually(t, func() bool { return !env.manager.IsRunning(sid) },
		5*time.Second, 20*time.Millisecond)

	w = env.do(t, "POST", "/api/terminals/cleanup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), sid)

	loaded, err := env.store.Load(sid)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, loaded.Status)
	assert.NotNil(t, loaded.EndedAt)

	// Nothing left to reap.
	w = env.do(t, "POST", "/api/terminals/cleanup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestSessionCRUD(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/sessions", gin.H{
		"name":             "Refactor auth",
		"agentType":        "claude-code",
		"workingDirectory": t.TempDir(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created struct {
		Session session.Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	sid := created.Session.ID
	assert.Equal(t, session.StatusRunning, created.Session.Status)
	assert.Equal(t, agent.ClaudeCode, created.Session.AgentType)

	w = env.do(t, "GET", "/api/sessions/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Moving to a terminal status stamps endedAt.
	w = env.do(t, "PATCH", "/api/sessions/"+sid, gin.H{"status": "Completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated struct {
		Session session.Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, session.StatusCompleted, updated.Session.Status)
	assert.NotNil(t, updated.Session.EndedAt)

	w = env.do(t, "GET", "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = env.do(t, "GET", "/api/sessions/summaries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), sid)

	w = env.do(t, "DELETE", "/api/sessions/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, "DELETE", "/api/sessions/"+sid, nil)
	assert.Equal(t, http.StatusOK, w.Code, "delete is idempotent")

	w = env.do(t, "GET", "/api/sessions/"+sid, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionUpdateValidation(t *testing.T) {
	env := newTestEnv(t)

	s := session.New("Victim", agent.Codex)
	require.NoError(t, env.store.Save(s))

	w := env.do(t, "PATCH", "/api/sessions/"+s.ID, gin.H{"status": "Exploded"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "PATCH", "/api/sessions/"+string(id.NewSessionID()), gin.H{"status": "Completed"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "PATCH", "/api/sessions/"+s.ID, gin.H{"errorMessage": "agent crashed"})
	require.Equal(t, http.StatusOK, w.Code)
	loaded, err := env.store.Load(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "agent crashed", loaded.ErrorMessage)
}

func TestSaveSessionFullRecord(t *testing.T) {
	env := newTestEnv(t)

	s := session.New("Imported", agent.Codex)
	s.Messages = append(s.Messages, session.NewMessage(session.RoleUser, "hello"))

	w := env.do(t, "PUT", "/api/sessions/"+s.ID, s)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	loaded, err := env.store.Load(s.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 1)
	assert.Equal(t, "hello", loaded.Messages[0].Content)

	// A record whose id disagrees with the path is rejected.
	other := session.New("Other", agent.Codex)
	w = env.do(t, "PUT", "/api/sessions/"+s.ID, other)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	done := session.New("Done", agent.ClaudeCode)
	done.End(session.StatusCompleted)
	require.NoError(t, env.store.Save(done))
	require.NoError(t, env.store.Save(session.New("Live", agent.Codex)))

	w := env.do(t, "GET", "/api/sessions/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats session.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Running)
	assert.Len(t, stats.ByAgent, 2)
}

func TestAgentEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/agents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ClaudeCode")
	assert.Contains(t, w.Body.String(), `"count":3`)

	bin := filepath.Join(t.TempDir(), "fake-agent")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	w = env.do(t, "GET", "/api/agents/custom/executable?override="+bin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), bin)

	w = env.do(t, "GET", "/api/agents/toaster/executable", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamUILogs(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/logs/ui", gin.H{
		"source": "ui",
		"entries": []gin.H{
			{"id": "1", "level": "info", "message": "window ready"},
			{"id": "2", "level": "error", "message": "render failed", "context": gin.H{"view": "terminal"}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"received":2`)

	w = env.do(t, "POST", "/api/logs/ui", gin.H{
		"source":  "backend",
		"entries": []gin.H{{"id": "1"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndRoot(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "online")

	w = env.do(t, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	// Metrics are not wired in this harness.
	w = env.do(t, "GET", "/metrics/json", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{terminal.ErrNotFound, http.StatusNotFound, "not_found"},
		{session.ErrNotFound, http.StatusNotFound, "not_found"},
		{terminal.ErrExecutableNotFound, http.StatusNotFound, "executable_not_found"},
		{agent.ErrExecutableNotFound, http.StatusNotFound, "executable_not_found"},
		{terminal.ErrAlreadyExists, http.StatusConflict, "already_exists"},
		{session.ErrInvalidID, http.StatusBadRequest, "invalid_id"},
		{session.ErrTooLarge, http.StatusRequestEntityTooLarge, "record_too_large"},
		{terminal.ErrSpawnFailed, http.StatusInternalServerError, "spawn_failed"},
		{terminal.ErrPty, http.StatusInternalServerError, "pty_error"},
		{terminal.ErrIO, http.StatusInternalServerError, "io_error"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		status, code := classify(fmt.Errorf("wrapped: %w", tc.err))
		assert.Equal(t, tc.status, status, tc.code)
		assert.Equal(t, tc.code, code)
	}
}
