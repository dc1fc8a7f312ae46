// Package terminal implements the multiplexed pseudo-terminal session
// manager at the heart of the backend.
//
// It spawns coding-agent CLIs attached to PTYs, streams their raw output to
// an event sink with bounded-latency batching, accepts input and resize
// commands, and tears processes down with an escalating-signal shutdown.
//
// Features:
//   - PTY-backed sessions for interactive agent CLIs (creack/pty)
//   - Per-session output batcher: flush at 4096 bytes or 16ms, whichever
//     comes first, capping event frequency near 60/s under load without
//     delaying interactive echo
//   - Graceful-then-forced termination: SIGTERM, 2s grace, SIGKILL
//   - Caller-driven reaping of sessions whose child exited on its own
//   - Optional gzip'd transcript recording of raw output
//
// Architecture:
//   - A concurrent registry maps session IDs to live sessions; each session
//     exclusively owns its PTY master, child process handle, writer, and
//     batcher goroutine, and all four are torn down together
//   - The batcher is handed its own reader before the session is registered
//     and never touches the registry, so streaming contends with nothing
//   - Writes to one session's PTY never block operations on another; the
//     registry lock covers only map access
//
// Event flow:
//
//	spawn → registry insert → batcher (background) → sink.Output(id, chunk)...
//	     → EOF/error → flush remainder → sink.Ended(id)
//
// Session state: Spawning → Running → {Terminating → Terminated} | {Exited}.
// Terminated and Exited both remove the registry entry; identifiers are
// never reused, a relaunch needs a fresh one.
package terminal
