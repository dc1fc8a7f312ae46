package session

import (
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentsmonitor/backend/internal/domain/agent"
)

func TestNewSessionDefaults(t *testing.T) {
	s := New("refactor auth", agent.ClaudeCode)

	assert.Equal(t, strings.ToUpper(s.ID), s.ID)
	assert.Equal(t, StatusRunning, s.Status)
	assert.Equal(t, agent.ClaudeCode, s.AgentType)
	assert.NotNil(t, s.Messages)
	assert.NotNil(t, s.ToolCalls)
	assert.True(t, s.IsFullyLoaded)
	assert.Nil(t, s.EndedAt)
}

func TestStatusClassification(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.False(t, StatusPaused.IsTerminal())
	assert.False(t, StatusWaiting.IsTerminal())

	assert.True(t, StatusRunning.Valid())
	assert.False(t, Status("Exploded").Valid())
}

func TestSessionEnd(t *testing.T) {
	s := New("run", agent.Codex)
	s.End(StatusCompleted)

	assert.Equal(t, StatusCompleted, s.Status)
	require.NotNil(t, s.EndedAt)
	assert.False(t, s.EndedAt.Before(s.StartedAt))
}

func TestFormattedDuration(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		elapsed  time.Duration
		expected string
	}{
		{"seconds", 42 * time.Second, "42s"},
		{"minutes", 5*time.Minute + 3*time.Second, "5m 3s"},
		{"hours", 2*time.Hour + 45*time.Minute, "2h 45m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end := base.Add(tt.elapsed)
			s := Session{StartedAt: base, EndedAt: &end}
			assert.Equal(t, tt.expected, s.FormattedDuration())
		})
	}
}

func TestUnmarshalDefaults(t *testing.T) {
	// Older records omit isFullyLoaded and the collections entirely
	raw := `{
		"id": "3E4B6A7C-90AD-4070-A2E5-6D7D03BBBF95",
		"name": "legacy",
		"status": "Completed",
		"agentType": "ClaudeCode",
		"startedAt": "2025-06-01T12:00:00Z"
	}`

	var s Session
	require.NoError(t, sonic.Unmarshal([]byte(raw), &s))

	assert.True(t, s.IsFullyLoaded)
	assert.NotNil(t, s.Messages)
	assert.NotNil(t, s.ToolCalls)
	assert.Empty(t, s.Messages)

	// An explicit false must survive the default
	rawPartial := `{"id":"X","name":"p","status":"Running","agentType":"Codex","startedAt":"2025-06-01T12:00:00Z","isFullyLoaded":false}`
	var p Session
	require.NoError(t, sonic.Unmarshal([]byte(rawPartial), &p))
	assert.False(t, p.IsFullyLoaded)
}

func TestTerminalOutputEncodesAsBase64(t *testing.T) {
	s := New("with output", agent.Custom)
	s.TerminalOutput = []byte("hello, world")

	data, err := sonic.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"terminalOutput":"aGVsbG8sIHdvcmxk"`)

	var back Session
	require.NoError(t, sonic.Unmarshal(data, &back))
	assert.Equal(t, []byte("hello, world"), back.TerminalOutput)
}

func TestToolCallLifecycle(t *testing.T) {
	tc := NewToolCall("Bash", `{"command":"ls"}`)
	assert.Equal(t, ToolCallRunning, tc.Status)
	assert.Equal(t, "...", tc.FormattedDuration())

	tc.Complete("README.md")
	assert.Equal(t, ToolCallCompleted, tc.Status)
	assert.Equal(t, "README.md", tc.Output)
	require.NotNil(t, tc.CompletedAt)

	ms, done := tc.DurationMS()
	assert.True(t, done)
	assert.GreaterOrEqual(t, ms, int64(0))

	failed := NewToolCall("WebFetch", "{}")
	failed.Fail("connection refused")
	assert.Equal(t, ToolCallFailed, failed.Status)
	assert.Equal(t, "connection refused", failed.Error)
}

func TestToolIcon(t *testing.T) {
	tests := []struct {
		tool string
		icon string
	}{
		{"ReadFile", "file-text"},
		{"Bash", "terminal"},
		{"GrepSearch", "search"},
		{"WebFetch", "globe"},
		{"git_commit", "git-branch"},
		{"Mystery", "tool"},
	}
	for _, tt := range tests {
		tc := ToolCall{Name: tt.tool}
		assert.Equal(t, tt.icon, tc.ToolIcon(), tt.tool)
	}
}

func TestFormattedTokens(t *testing.T) {
	assert.Equal(t, "512", Metrics{TotalTokens: 512}.FormattedTokens())
	assert.Equal(t, "1.5K", Metrics{TotalTokens: 1500}.FormattedTokens())
	assert.Equal(t, "2.0M", Metrics{TotalTokens: 2_000_000}.FormattedTokens())
}

func TestSummaryDropsTranscript(t *testing.T) {
	s := New("full", agent.ClaudeCode)
	s.Messages = append(s.Messages, NewMessage(RoleUser, "hi"))
	s.TerminalOutput = []byte("noise")
	s.Metrics.TotalTokens = 99

	sum := s.Summary()
	assert.Equal(t, s.ID, sum.ID)
	assert.Equal(t, int64(99), sum.Metrics.TotalTokens)

	data, err := sonic.Marshal(sum)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "terminalOutput")
	assert.NotContains(t, string(data), "messages")
}
