package agent

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrExecutableNotFound reports that no executable could be resolved for an
// agent. Configuration/environment error, not retried.
var ErrExecutableNotFound = errors.New("agent executable not found")

// Resolver locates agent executables on the local machine. Resolution is a
// pure function of filesystem state; nothing is cached.
type Resolver struct {
	home string
}

// NewResolver creates a resolver rooted at the user's home directory.
func NewResolver() *Resolver {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return &Resolver{home: home}
}

// NewResolverWithHome creates a resolver with an explicit home directory.
// Used by tests.
func NewResolverWithHome(home string) *Resolver {
	return &Resolver{home: home}
}

// Resolve returns the executable path for def. Priority: the explicit
// override if it points at an executable file, then the common install
// directories and version-manager trees for each acceptable name, then a
// PATH lookup. A non-executable override falls through rather than failing
// so a stale setting does not block launch.
func (r *Resolver) Resolve(def Definition, override string) (string, error) {
	if override != "" {
		path := expandHome(r.home, override)
		if isExecutable(path) {
			return path, nil
		}
	}

	for _, dir := range r.candidateDirs() {
		for _, name := range def.Executables {
			path := filepath.Join(dir, name)
			if isExecutable(path) {
				return path, nil
			}
		}
	}

	for _, binDir := range r.versionManagerDirs() {
		for _, name := range def.Executables {
			path := filepath.Join(binDir, name)
			if isExecutable(path) {
				return path, nil
			}
		}
	}

	for _, name := range def.Executables {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	return "", ErrExecutableNotFound
}

// candidateDirs lists the common install locations, in priority order.
// GUI-launched apps inherit a minimal PATH, so npm/volta/homebrew dirs are
// checked explicitly.
func (r *Resolver) candidateDirs() []string {
	return []string{
		filepath.Join(r.home, ".local", "bin"),
		filepath.Join(r.home, "bin"),
		filepath.Join(r.home, ".npm-global", "bin"),
		filepath.Join(r.home, ".npm", "bin"),
		filepath.Join(r.home, ".volta", "bin"),
		"/opt/homebrew/bin",
		"/usr/local/bin",
		"/usr/bin",
		"/bin",
		"/opt/local/bin",
	}
}

// versionManagerDirs expands the nvm/fnm install trees, where node CLIs
// land under a per-version bin directory.
func (r *Resolver) versionManagerDirs() []string {
	patterns := []string{
		filepath.Join(r.home, ".nvm", "versions", "node", "*", "bin"),
		filepath.Join(r.home, ".fnm", "node-versions", "*", "installation", "bin"),
		filepath.Join(r.home, ".local", "share", "fnm", "node-versions", "*", "installation", "bin"),
		filepath.Join(r.home, "Library", "Application Support", "fnm", "node-versions", "*", "installation", "bin"),
	}

	var dirs []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			continue
		}
		dirs = append(dirs, matches...)
	}
	return dirs
}

// isExecutable reports whether path is an existing file with an execute bit.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// expandHome replaces a leading ~ with home.
func expandHome(home, path string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if len(path) >= 2 && path[0] == '~' && os.IsPathSeparator(path[1]) {
		return filepath.Join(home, path[2:])
	}
	return path
}
