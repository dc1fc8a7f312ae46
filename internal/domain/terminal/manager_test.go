package terminal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentsmonitor/backend/internal/domain/agent"
	"github.com/agentsmonitor/backend/internal/logging"
)

func newTestManager(t *testing.T, sink EventSink) *Manager {
	t.Helper()
	m := NewManager(agent.Builtin(), agent.NewResolverWithHome(t.TempDir()), sink, logging.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		m.Shutdown(ctx)
	})
	return m
}

func spawnWith(t *testing.T, m *Manager, sid, exe string) int {
	t.Helper()
	pid, err := m.Spawn(sid, agent.Custom, t.TempDir(), exe)
	require.NoError(t, err)
	return pid
}

func TestSpawnWriteOutput(t *testing.T) {
	sink := &captureSink{}
	m := newTestManager(t, sink)

	pid := spawnWith(t, m, "cat-session", "/bin/cat")
	assert.Greater(t, pid, 0)
	assert.True(t, m.IsRunning("cat-session"))

	require.NoError(t, m.WriteString("cat-session", "hello terminal\n"))
	require.Eventually(t, func() bool {
		return bytes.Contains(sink.total(), []byte("hello terminal"))
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Terminate(context.Background(), "cat-session"))
	assert.False(t, m.IsRunning("cat-session"))
	_, err := m.Get("cat-session")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSpawnUnknownAgent(t *testing.T) {
	m := newTestManager(t, nil)
	_, err := m.Spawn("s1", agent.Type("Bogus"), t.TempDir(), "")
	assert.ErrorIs(t, err, ErrExecutableNotFound)
}

func TestSpawnUnresolvableExecutable(t *testing.T) {
	// An overlay type whose executable name is guaranteed absent, so
	// resolution fails regardless of what the host has on PATH.
	file := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(file, []byte(
		"agents:\n  - type: Phantom\n    executables: [zz-phantom-agent]\n"), 0o644))
	table, err := agent.LoadTable(file)
	require.NoError(t, err)

	m := NewManager(table, agent.NewResolverWithHome(t.TempDir()), nil, logging.NewNop())

	_, err = m.Spawn("s1", agent.Type("Phantom"), t.TempDir(), "/definitely/not/here")
	assert.ErrorIs(t, err, ErrExecutableNotFound)
	assert.False(t, m.IsRunning("s1"))
}

func TestSpawnLaunchFailure(t *testing.T) {
	m := newTestManager(t, nil)

	// Executable bit set but the interpreter does not exist, so fork/exec
	// fails after resolution succeeds.
	exe := filepath.Join(t.TempDir(), "broken")
	require.NoError(t, os.WriteFile(exe, []byte("#!/no/such/interpreter\n"), 0o755))

	_, err := m.Spawn("s1", agent.Custom, t.TempDir(), exe)
	assert.ErrorIs(t, err, ErrSpawnFailed)
	assert.False(t, m.IsRunning("s1"))

	// The failed id is free for reuse.
	spawnWith(t, m, "s1", "/bin/cat")
	assert.True(t, m.IsRunning("s1"))
}

func TestSpawnDuplicateID(t *testing.T) {
	m := newTestManager(t, nil)
	spawnWith(t, m, "dup", "/bin/cat")

	_, err := m.Spawn("dup", agent.Custom, t.TempDir(), "/bin/cat")
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.True(t, m.IsRunning("dup"), "original session survives the rejected spawn")
}

func TestTerminateIdempotent(t *testing.T) {
	m := newTestManager(t, nil)

	require.NoError(t, m.Terminate(context.Background(), "never-existed"))

	spawnWith(t, m, "once", "/bin/cat")
	require.NoError(t, m.Terminate(context.Background(), "once"))
	require.NoError(t, m.Terminate(context.Background(), "once"))
}

func TestWriteUnknownAndExited(t *testing.T) {
	m := newTestManager(t, nil)

	err := m.WriteString("ghost", "x")
	assert.ErrorIs(t, err, ErrNotFound)

	spawnWith(t, m, "gone", "/bin/echo")
	require.Eventually(t, func() bool { return !m.IsRunning("gone") },
		5*time.Second, 10*time.Millisecond)

	// The child is gone but the session is still registered until a
	// terminate or cleanup removes it. Writes surface as IO errors.
	err = m.WriteString("gone", "x")
	assert.ErrorIs(t, err, ErrIO)
}

func TestResize(t *testing.T) {
	m := newTestManager(t, nil)
	spawnWith(t, m, "rs", "/bin/cat")

	info, err := m.Get("rs")
	require.NoError(t, err)
	assert.Equal(t, uint16(24), info.Rows)
	assert.Equal(t, uint16(80), info.Cols)

	require.NoError(t, m.Resize("rs", 50, 120))
	info, err = m.Get("rs")
	require.NoError(t, err)
	assert.Equal(t, uint16(50), info.Rows)
	assert.Equal(t, uint16(120), info.Cols)

	assert.ErrorIs(t, m.Resize("ghost", 10, 10), ErrNotFound)
}

func TestCleanupFinished(t *testing.T) {
	sink := &captureSink{}
	m := newTestManager(t, sink)

	spawnWith(t, m, "short", "/bin/echo")
	spawnWith(t, m, "long", "/bin/cat")

	require.Eventually(t, func() bool { return !m.IsRunning("short") },
		5*time.Second, 10*time.Millisecond)
	// The exited child's end of stream reaches the sink without any cleanup.
	require.Eventually(t, sink.isEnded, 5*time.Second, 10*time.Millisecond)

	reaped := m.CleanupFinished()
	require.Equal(t, []string{"short"}, reaped)
	assert.True(t, m.IsRunning("long"), "live sessions survive the sweep")

	assert.Empty(t, m.CleanupFinished(), "nothing left to reap")
}

func TestListOrderedByStart(t *testing.T) {
	m := newTestManager(t, nil)

	spawnWith(t, m, "first", "/bin/cat")
	time.Sleep(10 * time.Millisecond)
	spawnWith(t, m, "second", "/bin/cat")

	infos := m.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "first", infos[0].ID)
	assert.Equal(t, "second", infos[1].ID)
	assert.Equal(t, "/bin/cat", infos[0].Executable)
	assert.True(t, infos[0].Running)
}

func TestShutdownTerminatesAll(t *testing.T) {
	m := NewManager(agent.Builtin(), agent.NewResolverWithHome(t.TempDir()), nil, logging.NewNop())

	spawnWith(t, m, "a", "/bin/cat")
	spawnWith(t, m, "b", "/bin/cat")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.Shutdown(ctx)

	assert.Empty(t, m.List())
	assert.False(t, m.IsRunning("a"))
	assert.False(t, m.IsRunning("b"))
}

func TestBuildEnv(t *testing.T) {
	def, ok := agent.Builtin().Lookup(agent.Codex)
	require.True(t, ok)

	env := buildEnv(def)
	assert.Contains(t, env, "TERM=xterm-256color")
	assert.Contains(t, env, "TERM_PROGRAM=AgentsMonitor")
	assert.Contains(t, env, "CODEX_DISABLE_CURSOR_QUERY=1")
	assert.Contains(t, env, "NO_COLOR=0")
}
