package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// AppDirName is the application directory created inside the platform data dir.
const AppDirName = "AgentsMonitor"

// Subdirectories of the application directory.
const (
	SessionsDirName    = "Sessions"
	TranscriptsDirName = "Transcripts"
)

// AgentsFileName is the optional custom agent definitions file.
const AgentsFileName = "agents.yaml"

// DataDir returns the platform per-user data directory.
func DataDir() (string, error) {
	if dir := os.Getenv("AGENTSMONITOR_DATA_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return appData, nil
		}
		return filepath.Join(home, "AppData", "Roaming"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return xdg, nil
		}
		return filepath.Join(home, ".local", "share"), nil
	}
}

// AppData returns the application's root data directory.
func AppData() (string, error) {
	base, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppDirName), nil
}

// SessionsDir returns the session record directory under root.
func SessionsDir(root string) string {
	return filepath.Join(root, SessionsDirName)
}

// TranscriptsDir returns the transcript directory under root.
func TranscriptsDir(root string) string {
	return filepath.Join(root, TranscriptsDirName)
}

// AgentsFile returns the custom agent definitions path under root.
func AgentsFile(root string) string {
	return filepath.Join(root, AgentsFileName)
}

// EnsureDir creates dir (and parents) if missing.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// StandardDirectories returns all directories that should exist under root.
func StandardDirectories(root string) []string {
	return []string{
		root,
		SessionsDir(root),
		TranscriptsDir(root),
	}
}

// EnsureLayout creates the full application directory layout.
func EnsureLayout(root string) error {
	for _, dir := range StandardDirectories(root) {
		if err := EnsureDir(dir); err != nil {
			return err
		}
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || len(path) >= 2 && path[0] == '~' && os.IsPathSeparator(path[1]) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
