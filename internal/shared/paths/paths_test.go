package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENTSMONITOR_DATA_DIR", dir)

	got, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	root, err := AppData()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, AppDirName), root)
}

func TestLayoutPaths(t *testing.T) {
	root := "/data/AgentsMonitor"
	assert.Equal(t, "/data/AgentsMonitor/Sessions", SessionsDir(root))
	assert.Equal(t, "/data/AgentsMonitor/Transcripts", TranscriptsDir(root))
	assert.Equal(t, "/data/AgentsMonitor/agents.yaml", AgentsFile(root))
}

func TestEnsureLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), AppDirName)
	require.NoError(t, EnsureLayout(root))

	for _, dir := range StandardDirectories(root) {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent
	require.NoError(t, EnsureLayout(root))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, filepath.Join(home, "data"), ExpandHome("~/data"))
	assert.Equal(t, "/absolute/path", ExpandHome("/absolute/path"))
	assert.Equal(t, "relative", ExpandHome("relative"))
}
