package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/agentsmonitor/backend/internal/domain/agent"
	"github.com/agentsmonitor/backend/internal/infrastructure/monitoring"
	"github.com/agentsmonitor/backend/internal/logging"
)

const (
	// initialRows and initialCols are the fixed spawn geometry. The caller
	// is expected to resize immediately after if its viewport differs.
	initialRows = 24
	initialCols = 80

	// gracePeriod separates SIGTERM from SIGKILL during terminate. Long
	// enough for well-behaved agent CLIs to flush and exit, short enough
	// to bound terminate latency for a UI closing a tab.
	gracePeriod = 2 * time.Second

	// cursorReportDelay and cursorReport implement the startup workaround
	// for CLIs that query the cursor position and stall until the terminal
	// answers. The reply claims row 1, column 1.
	cursorReportDelay = 100 * time.Millisecond
	cursorReport      = "\x1b[1;1R"
)

// baseline environment every agent process receives on top of the parent
// environment. Per-agent overrides from the agent table are layered after.
var baselineEnv = []string{
	"TERM=xterm-256color",
	"COLORTERM=truecolor",
	"LANG=en_US.UTF-8",
	"TERM_PROGRAM=AgentsMonitor",
	"TERM_PROGRAM_VERSION=1.0.0",
}

// ExecutableResolver locates the executable for an agent definition.
type ExecutableResolver interface {
	Resolve(def agent.Definition, override string) (string, error)
}

// Manager owns all live terminal sessions. The registry is a concurrent
// map so operations on different sessions never serialize against each
// other; per-session state is guarded by each session's own lock.
type Manager struct {
	sessions sync.Map // map[string]*Session

	table    *agent.Table
	resolver ExecutableResolver
	sink     EventSink
	log      *logging.Logger

	metrics       *monitoring.Metrics
	transcriptDir string
}

// NewManager creates a session manager. Events flow to sink; pass nil for
// no event delivery.
func NewManager(table *agent.Table, resolver ExecutableResolver, sink EventSink, log *logging.Logger) *Manager {
	if sink == nil {
		sink = NopSink{}
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Manager{
		table:    table,
		resolver: resolver,
		sink:     sink,
		log:      log.Named("terminal"),
	}
}

// WithMetrics attaches metrics collection.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// WithTranscripts enables gzip'd transcript recording under dir.
func (m *Manager) WithTranscripts(dir string) *Manager {
	m.transcriptDir = dir
	return m
}

// Spawn resolves the agent executable, allocates a PTY at 24x80, launches
// the child attached to it, starts the output batcher, and registers the
// session. Returns the child PID (0 if unavailable). A live session under
// the same id is a caller contract violation and is rejected.
func (m *Manager) Spawn(sessionID string, agentType agent.Type, workDir, overrideExec string) (int, error) {
	def, ok := m.table.Lookup(agentType)
	if !ok {
		return 0, fmt.Errorf("%w: no definition for agent type %q", ErrExecutableNotFound, agentType)
	}

	if _, exists := m.sessions.Load(sessionID); exists {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyExists, sessionID)
	}

	exe, err := m.resolver.Resolve(def, overrideExec)
	if err != nil {
		m.recordSpawn(agentType, false)
		return 0, fmt.Errorf("%w: agent %s: %w", ErrExecutableNotFound, agentType, err)
	}

	cmd := exec.Command(exe, def.DefaultArgs...)
	cmd.Dir = workDir
	cmd.Env = buildEnv(def)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: initialRows, Cols: initialCols})
	if err != nil {
		m.recordSpawn(agentType, false)
		return 0, classifyStartError(err, exe)
	}

	pid := 0
	if cmd.Process != nil {
		pid = cmd.Process.Pid
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:         sessionID,
		AgentType:  agentType,
		Executable: exe,
		WorkingDir: workDir,
		PID:        pid,
		StartedAt:  time.Now(),
		cmd:        cmd,
		ptmx:       ptmx,
		cancel:     cancel,
		done:       make(chan struct{}),
		exited:     make(chan struct{}),
		rows:       initialRows,
		cols:       initialCols,
	}
	go s.monitor()

	b := &batcher{
		sessionID: sessionID,
		reader:    ptmx,
		sink:      m.sink,
		recorder:  m.newRecorder(sessionID),
		metrics:   m.metrics,
		log:       m.log.WithSession(sessionID),
	}

	if _, loaded := m.sessions.LoadOrStore(sessionID, s); loaded {
		// Lost a race on the same id. Tear the fresh child down; the
		// registered session wins.
		cancel()
		s.kill()
		s.closePty()
		m.recordSpawn(agentType, false)
		return 0, fmt.Errorf("%w: %s", ErrAlreadyExists, sessionID)
	}

	go func() {
		b.run(ctx)
		close(s.done)
	}()

	if def.SendCursorReport {
		go m.sendCursorReport(s)
	}

	m.recordSpawn(agentType, true)
	if m.metrics != nil {
		m.metrics.SessionStarted()
	}
	m.log.Info("session spawned",
		zap.String("session_id", sessionID),
		zap.String("agent", string(agentType)),
		zap.String("executable", exe),
		zap.String("workdir", workDir),
		zap.Int("pid", pid))

	return pid, nil
}

// Write sends bytes verbatim to the session's input stream. The session is
// not removed on write failure; removal only happens via Terminate or
// CleanupFinished.
func (m *Manager) Write(sessionID string, data []byte) error {
	s, ok := m.load(sessionID)
	if !ok {
		return notFoundErr(sessionID)
	}
	if _, err := s.write(data); err != nil {
		if m.metrics != nil {
			m.metrics.RecordWriteError()
		}
		return fmt.Errorf("%w: write to session %s: %w", ErrIO, sessionID, err)
	}
	return nil
}

// WriteString sends text input to the session.
func (m *Manager) WriteString(sessionID, text string) error {
	return m.Write(sessionID, []byte(text))
}

// Resize applies new PTY geometry. Zero dimensions are forwarded verbatim;
// the PTY layer owns that contract.
func (m *Manager) Resize(sessionID string, rows, cols uint16) error {
	s, ok := m.load(sessionID)
	if !ok {
		return notFoundErr(sessionID)
	}
	if err := pty.Setsize(s.ptmx, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		return fmt.Errorf("%w: resize session %s: %w", ErrPty, sessionID, err)
	}
	s.setGeometry(rows, cols)
	return nil
}

// IsRunning is a non-blocking liveness probe. False both for unknown ids
// and for exited children; callers cannot distinguish the two here.
func (m *Manager) IsRunning(sessionID string) bool {
	s, ok := m.load(sessionID)
	return ok && s.running()
}

// Terminate gracefully shuts a session down: the registry entry is removed
// first so no write or resize can race with teardown, then SIGTERM, a 2s
// grace wait, and SIGKILL if the child is still alive. Finally the batcher
// is aborted and the PTY released. Unknown ids succeed; Terminate is
// idempotent.
func (m *Manager) Terminate(ctx context.Context, sessionID string) error {
	value, ok := m.sessions.LoadAndDelete(sessionID)
	if !ok {
		return nil
	}
	s := value.(*Session)

	outcome := "graceful"
	if s.running() {
		if err := s.signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			m.log.Debug("sigterm failed", zap.String("session_id", sessionID), zap.Error(err))
		}

		select {
		case <-s.exited:
		case <-time.After(gracePeriod):
			if s.running() {
				s.kill()
				outcome = "forced"
			}
		case <-ctx.Done():
			s.kill()
			outcome = "forced"
		}
	}

	s.cancel()
	s.closePty()

	if m.metrics != nil {
		m.metrics.RecordTermination(outcome)
		m.metrics.SessionEnded()
	}
	m.log.Info("session terminated",
		zap.String("session_id", sessionID),
		zap.String("outcome", outcome))
	return nil
}

// CleanupFinished sweeps the registry and removes sessions whose child has
// already exited on its own, aborting their batchers and releasing their
// PTYs. Returns the reaped ids so the caller can reconcile persisted
// session state. Caller-driven; the manager never schedules this itself.
func (m *Manager) CleanupFinished() []string {
	var reaped []string
	m.sessions.Range(func(key, value any) bool {
		s := value.(*Session)
		if s.running() {
			return true
		}
		// LoadAndDelete guards against racing a concurrent Terminate.
		if _, ok := m.sessions.LoadAndDelete(s.ID); !ok {
			return true
		}
		s.cancel()
		s.closePty()
		reaped = append(reaped, s.ID)
		if m.metrics != nil {
			m.metrics.SessionEnded()
		}
		return true
	})

	if len(reaped) > 0 {
		if m.metrics != nil {
			m.metrics.RecordReaped(len(reaped))
		}
		m.log.Info("reaped finished sessions", zap.Strings("session_ids", reaped))
	}
	return reaped
}

// Get returns a snapshot of one live session.
func (m *Manager) Get(sessionID string) (SessionInfo, error) {
	s, ok := m.load(sessionID)
	if !ok {
		return SessionInfo{}, notFoundErr(sessionID)
	}
	return s.info(), nil
}

// List returns snapshots of all live sessions, oldest first.
func (m *Manager) List() []SessionInfo {
	var infos []SessionInfo
	m.sessions.Range(func(key, value any) bool {
		infos = append(infos, value.(*Session).info())
		return true
	})
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

// Shutdown terminates every live session. Used on server stop.
func (m *Manager) Shutdown(ctx context.Context) {
	var ids []string
	m.sessions.Range(func(key, value any) bool {
		ids = append(ids, key.(string))
		return true
	})
	if len(ids) == 0 {
		return
	}

	m.log.Info("terminating all sessions", zap.Int("count", len(ids)))
	var wg sync.WaitGroup
	for _, sid := range ids {
		wg.Add(1)
		go func(sid string) {
			defer wg.Done()
			_ = m.Terminate(ctx, sid)
		}(sid)
	}
	wg.Wait()
}

func (m *Manager) load(sessionID string) (*Session, bool) {
	value, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, false
	}
	return value.(*Session), true
}

// sendCursorReport writes a synthetic cursor-position reply shortly after
// spawn. Best-effort: if the process already exited in the window the
// write simply fails and is swallowed.
func (m *Manager) sendCursorReport(s *Session) {
	time.Sleep(cursorReportDelay)
	if _, err := s.write([]byte(cursorReport)); err != nil {
		m.log.Debug("cursor report write failed",
			zap.String("session_id", s.ID),
			zap.Error(err))
	}
}

// newRecorder opens a transcript recorder when recording is enabled.
// Returns nil (recording off) on failure; a broken transcript must not
// fail the spawn.
func (m *Manager) newRecorder(sessionID string) *Recorder {
	if m.transcriptDir == "" {
		return nil
	}
	rec, err := NewRecorder(m.transcriptDir, sessionID)
	if err != nil {
		m.log.Warn("transcript recorder unavailable",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil
	}
	return rec
}

func (m *Manager) recordSpawn(agentType agent.Type, success bool) {
	if m.metrics != nil {
		m.metrics.RecordSpawn(string(agentType), success)
	}
}

// buildEnv layers the baseline terminal environment and the agent's own
// overrides on top of the parent environment. Later entries win.
func buildEnv(def agent.Definition) []string {
	env := append(os.Environ(), baselineEnv...)
	if len(def.Env) == 0 {
		return env
	}
	keys := make([]string, 0, len(def.Env))
	for k := range def.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+def.Env[k])
	}
	return env
}

// classifyStartError maps a PTY start failure onto the error taxonomy:
// failures pointing at the executable or the fork/exec step are launch
// failures, anything else is the PTY device.
func classifyStartError(err error, exe string) error {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && (pathErr.Path == exe || pathErr.Op == "fork/exec" || pathErr.Op == "chdir") {
		return fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}
	return fmt.Errorf("%w: %w", ErrPty, err)
}
