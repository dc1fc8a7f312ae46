// Package paths provides standardized filesystem paths.
//
// This package defines the on-disk layout shared by the backend and the
// desktop shell. All persistence components resolve their directories
// through it so the two sides never disagree about where records live.
//
// # Directory Structure
//
//	<platform data dir>/AgentsMonitor/
//	  ├── Sessions/      (one JSON record per session)
//	  ├── Transcripts/   (gzip'd raw terminal output)
//	  └── agents.yaml    (optional custom agent definitions)
//
// The platform data dir follows OS conventions: $XDG_DATA_HOME (or
// ~/.local/share) on Linux, ~/Library/Application Support on macOS,
// %APPDATA% on Windows.
//
// # Usage
//
//	import "github.com/agentsmonitor/backend/internal/shared/paths"
//
//	root, err := paths.AppData()
//	sessions := paths.SessionsDir(root)  // <root>/Sessions
package paths
