package terminal

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/agentsmonitor/backend/internal/domain/agent"
)

// Session is a live PTY-backed agent process. It exclusively owns four
// handles that are torn down together: the PTY master, the child process,
// the input writer, and the batcher goroutine. Registered under exactly one
// session id; never resurrected after removal.
type Session struct {
	ID         string
	AgentType  agent.Type
	Executable string
	WorkingDir string
	PID        int
	StartedAt  time.Time

	cmd  *exec.Cmd
	ptmx *os.File

	cancel context.CancelFunc // hard-aborts the batcher
	done   chan struct{}      // closed when the batcher exits
	exited chan struct{}      // closed once the child has been reaped

	// writeMu serializes PTY writes and guards the geometry fields. PTY IO
	// happens under this per-session lock, never under the registry's.
	writeMu sync.Mutex
	rows    uint16
	cols    uint16

	closeOnce sync.Once
}

// monitor reaps the child and records its exit. Runs for the session's
// lifetime; Wait is the only consumer of the child's exit status.
func (s *Session) monitor() {
	s.cmd.Wait()
	close(s.exited)
}

// running reports whether the child is still alive. Non-blocking.
func (s *Session) running() bool {
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

// write sends bytes verbatim to the PTY input stream.
func (s *Session) write(data []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ptmx.Write(data)
}

// signal delivers sig to the child, best-effort.
func (s *Session) signal(sig os.Signal) error {
	if s.cmd.Process == nil {
		return os.ErrProcessDone
	}
	return s.cmd.Process.Signal(sig)
}

// kill force-terminates the child, best-effort.
func (s *Session) kill() {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}

// closePty releases the PTY master exactly once. Unblocks any reader.
func (s *Session) closePty() {
	s.closeOnce.Do(func() {
		_ = s.ptmx.Close()
	})
}

func (s *Session) geometry() (rows, cols uint16) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.rows, s.cols
}

func (s *Session) setGeometry(rows, cols uint16) {
	s.writeMu.Lock()
	s.rows = rows
	s.cols = cols
	s.writeMu.Unlock()
}

// SessionInfo is the public snapshot of a live session.
type SessionInfo struct {
	ID         string     `json:"id"`
	AgentType  agent.Type `json:"agentType"`
	Executable string     `json:"executable"`
	WorkingDir string     `json:"workingDirectory"`
	PID        int        `json:"pid"`
	Rows       uint16     `json:"rows"`
	Cols       uint16     `json:"cols"`
	StartedAt  time.Time  `json:"startedAt"`
	Running    bool       `json:"running"`
}

func (s *Session) info() SessionInfo {
	rows, cols := s.geometry()
	return SessionInfo{
		ID:         s.ID,
		AgentType:  s.AgentType,
		Executable: s.Executable,
		WorkingDir: s.WorkingDir,
		PID:        s.PID,
		Rows:       rows,
		Cols:       cols,
		StartedAt:  s.StartedAt,
		Running:    s.running(),
	}
}
