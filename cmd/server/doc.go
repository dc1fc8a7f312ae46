// Package main is the entry point for the AgentsMonitor backend server.
//
// The server hosts interactive coding-agent CLIs (Claude Code, Codex,
// custom agents) in PTY-backed terminal sessions and exposes them to the
// desktop shell over a local HTTP API plus a WebSocket output stream.
//
// Architecture:
//
//	Desktop shell (UI) → HTTP API  → terminal manager → agent CLI (PTY)
//	                   → WebSocket ← output batcher  ←
//
// The server provides:
//   - REST API for spawning, feeding, resizing, and terminating terminals
//   - WebSocket fan-out of batched terminal output
//   - Durable session records with aggregate statistics
//   - Optional webhook delivery of session lifecycle events
//   - Prometheus metrics and rate limiting
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional TOML file via -config
//   - CLI flags (override both)
//
// Usage:
//
//	# Default: listens on 127.0.0.1:9600
//	./server
//
//	# Explicit bind and config file
//	./server -host 0.0.0.0 -port 9700 -config /etc/agentsmonitor.toml
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown (drains HTTP, terminates sessions)
package main
