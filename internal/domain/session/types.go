package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/agentsmonitor/backend/internal/domain/agent"
	"github.com/agentsmonitor/backend/internal/shared/id"
)

// Status describes where a session is in its lifecycle
type Status string

const (
	StatusRunning   Status = "Running"
	StatusPaused    Status = "Paused"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusWaiting   Status = "Waiting"
	StatusCancelled Status = "Cancelled"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusRunning, StatusPaused, StatusCompleted, StatusFailed, StatusWaiting, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends a session
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Color returns the UI color for the status
func (s Status) Color() string {
	switch s {
	case StatusRunning:
		return "green"
	case StatusPaused:
		return "yellow"
	case StatusCompleted:
		return "blue"
	case StatusFailed:
		return "red"
	case StatusWaiting:
		return "orange"
	case StatusCancelled:
		return "gray"
	default:
		return "gray"
	}
}

// Icon returns the UI icon for the status
func (s Status) Icon() string {
	switch s {
	case StatusRunning:
		return "play-circle"
	case StatusPaused:
		return "pause-circle"
	case StatusCompleted:
		return "check-circle"
	case StatusFailed:
		return "x-circle"
	case StatusWaiting:
		return "clock"
	case StatusCancelled:
		return "stop-circle"
	default:
		return "clock"
	}
}

// Session is a recorded agent run, persisted as one JSON document
type Session struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Status            Status     `json:"status"`
	AgentType         agent.Type `json:"agentType"`
	StartedAt         time.Time  `json:"startedAt"`
	EndedAt           *time.Time `json:"endedAt,omitempty"`
	Messages          []Message  `json:"messages"`
	ToolCalls         []ToolCall `json:"toolCalls"`
	Metrics           Metrics    `json:"metrics"`
	WorkingDirectory  string     `json:"workingDirectory,omitempty"`
	ProcessID         *int       `json:"processId,omitempty"`
	ErrorMessage      string     `json:"errorMessage,omitempty"`
	IsExternalProcess bool       `json:"isExternalProcess"`
	IsFullyLoaded     bool       `json:"isFullyLoaded"`
	TerminalOutput    []byte     `json:"terminalOutput,omitempty"`
}

// New creates a running session with a fresh identifier
func New(name string, agentType agent.Type) *Session {
	return &Session{
		ID:            id.NewSessionID().String(),
		Name:          name,
		Status:        StatusRunning,
		AgentType:     agentType,
		StartedAt:     time.Now().UTC(),
		Messages:      []Message{},
		ToolCalls:     []ToolCall{},
		IsFullyLoaded: true,
	}
}

// UnmarshalJSON fills defaults that older records omit: missing
// isFullyLoaded means fully loaded, missing collections mean empty.
func (s *Session) UnmarshalJSON(data []byte) error {
	type alias Session
	aux := struct {
		IsFullyLoaded *bool `json:"isFullyLoaded"`
		*alias
	}{alias: (*alias)(s)}

	if err := sonic.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.IsFullyLoaded == nil {
		s.IsFullyLoaded = true
	} else {
		s.IsFullyLoaded = *aux.IsFullyLoaded
	}
	if s.Messages == nil {
		s.Messages = []Message{}
	}
	if s.ToolCalls == nil {
		s.ToolCalls = []ToolCall{}
	}
	return nil
}

// Duration returns elapsed time, using now for sessions still running
func (s *Session) Duration() time.Duration {
	end := time.Now().UTC()
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	return end.Sub(s.StartedAt)
}

// FormattedDuration renders the duration for display
func (s *Session) FormattedDuration() string {
	secs := s.Duration().Seconds()
	switch {
	case secs < 60:
		return fmt.Sprintf("%.0fs", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %ds", int(secs/60), int(secs)%60)
	default:
		return fmt.Sprintf("%dh %dm", int(secs/3600), int(secs)%3600/60)
	}
}

// End marks the session finished with the given status
func (s *Session) End(status Status) {
	now := time.Now().UTC()
	s.Status = status
	s.EndedAt = &now
}

// Summary returns the list view of the session
func (s *Session) Summary() Summary {
	return Summary{
		ID:                s.ID,
		Name:              s.Name,
		Status:            s.Status,
		AgentType:         s.AgentType,
		StartedAt:         s.StartedAt,
		EndedAt:           s.EndedAt,
		Metrics:           s.Metrics,
		WorkingDirectory:  s.WorkingDirectory,
		ProcessID:         s.ProcessID,
		ErrorMessage:      s.ErrorMessage,
		IsExternalProcess: s.IsExternalProcess,
	}
}

// Summary is the session without messages, tool calls, or captured output.
// It decodes from the same document, so listings never pay for transcripts.
type Summary struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Status            Status     `json:"status"`
	AgentType         agent.Type `json:"agentType"`
	StartedAt         time.Time  `json:"startedAt"`
	EndedAt           *time.Time `json:"endedAt,omitempty"`
	Metrics           Metrics    `json:"metrics"`
	WorkingDirectory  string     `json:"workingDirectory,omitempty"`
	ProcessID         *int       `json:"processId,omitempty"`
	ErrorMessage      string     `json:"errorMessage,omitempty"`
	IsExternalProcess bool       `json:"isExternalProcess"`
}

// Role identifies who produced a message
type Role string

const (
	RoleUser      Role = "User"
	RoleAssistant Role = "Assistant"
	RoleSystem    Role = "System"
	RoleTool      Role = "Tool"
)

// Icon returns the UI icon for the role
func (r Role) Icon() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "brain"
	case RoleSystem:
		return "settings"
	case RoleTool:
		return "wrench"
	default:
		return "user"
	}
}

// Color returns the UI color for the role
func (r Role) Color() string {
	switch r {
	case RoleUser:
		return "blue"
	case RoleAssistant:
		return "purple"
	case RoleSystem:
		return "gray"
	case RoleTool:
		return "orange"
	default:
		return "gray"
	}
}

// Message is a single conversation entry
type Message struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	IsStreaming bool      `json:"isStreaming"`
	ToolUseID   string    `json:"toolUseId,omitempty"`
}

// NewMessage creates a message with a fresh identifier
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        strings.ToUpper(uuid.NewString()),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// ToolCallStatus tracks a tool invocation's progress
type ToolCallStatus string

const (
	ToolCallPending   ToolCallStatus = "Pending"
	ToolCallRunning   ToolCallStatus = "Running"
	ToolCallCompleted ToolCallStatus = "Completed"
	ToolCallFailed    ToolCallStatus = "Failed"
)

// ToolCall is one tool invocation made by the agent
type ToolCall struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Input       string         `json:"input"`
	Output      string         `json:"output,omitempty"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	Status      ToolCallStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
}

// NewToolCall creates a running tool call
func NewToolCall(name, input string) ToolCall {
	return ToolCall{
		ID:        strings.ToUpper(uuid.NewString()),
		Name:      name,
		Input:     input,
		StartedAt: time.Now().UTC(),
		Status:    ToolCallRunning,
	}
}

// Complete marks the call successful with its output
func (t *ToolCall) Complete(output string) {
	now := time.Now().UTC()
	t.Output = output
	t.CompletedAt = &now
	t.Status = ToolCallCompleted
}

// Fail marks the call failed with an error
func (t *ToolCall) Fail(errMsg string) {
	now := time.Now().UTC()
	t.Error = errMsg
	t.CompletedAt = &now
	t.Status = ToolCallFailed
}

// DurationMS returns elapsed milliseconds, or false while still running
func (t *ToolCall) DurationMS() (int64, bool) {
	if t.CompletedAt == nil {
		return 0, false
	}
	return t.CompletedAt.Sub(t.StartedAt).Milliseconds(), true
}

// FormattedDuration renders the elapsed time for display
func (t *ToolCall) FormattedDuration() string {
	ms, done := t.DurationMS()
	switch {
	case !done:
		return "..."
	case ms < 1000:
		return fmt.Sprintf("%dms", ms)
	default:
		return fmt.Sprintf("%.2fs", float64(ms)/1000.0)
	}
}

// ToolIcon guesses a display icon from the tool name
func (t *ToolCall) ToolIcon() string {
	name := strings.ToLower(t.Name)
	switch {
	case strings.Contains(name, "read"):
		return "file-text"
	case strings.Contains(name, "write"):
		return "pencil"
	case strings.Contains(name, "edit"):
		return "edit"
	case strings.Contains(name, "bash"), strings.Contains(name, "shell"):
		return "terminal"
	case strings.Contains(name, "search"), strings.Contains(name, "grep"):
		return "search"
	case strings.Contains(name, "web"), strings.Contains(name, "fetch"):
		return "globe"
	case strings.Contains(name, "git"):
		return "git-branch"
	case strings.Contains(name, "task"), strings.Contains(name, "agent"):
		return "cpu"
	default:
		return "tool"
	}
}

// Metrics aggregates token and tool usage for a session
type Metrics struct {
	TotalTokens      int64 `json:"totalTokens"`
	InputTokens      int64 `json:"inputTokens"`
	OutputTokens     int64 `json:"outputTokens"`
	ToolCallCount    int32 `json:"toolCallCount"`
	ErrorCount       int32 `json:"errorCount"`
	APICalls         int32 `json:"apiCalls"`
	CacheReadTokens  int64 `json:"cacheReadTokens"`
	CacheWriteTokens int64 `json:"cacheWriteTokens"`
}

// FormattedTokens renders the total token count for display
func (m Metrics) FormattedTokens() string {
	total := m.TotalTokens
	switch {
	case total >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(total)/1_000_000.0)
	case total >= 1_000:
		return fmt.Sprintf("%.1fK", float64(total)/1_000.0)
	default:
		return fmt.Sprintf("%d", total)
	}
}
