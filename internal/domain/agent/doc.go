// Package agent defines the coding-agent CLI variants the backend can run
// and resolves their executables on the local machine.
//
// The agent table is static configuration: each entry names the CLI's
// display metadata, acceptable executable names, default arguments, the
// environment overrides layered on top of the terminal baseline, and the
// terminal quirks it needs (Codex blocks on startup until it sees a cursor
// position report, so its entry both disables the probe via env and flags
// the synthetic reply). An optional agents.yaml overlay lets operators
// adjust entries or add custom CLIs without rebuilding.
//
// Resolution is a pure function of filesystem state: explicit override
// first, then the common install directories and version-manager trees
// (nvm, fnm, volta installs land outside PATH for GUI-launched apps), then
// a PATH lookup.
package agent
