package terminal

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the manager. Callers branch with errors.Is; the
// wrapped chain preserves the underlying OS error text.
var (
	// ErrNotFound reports an unknown session id. Caller error.
	ErrNotFound = errors.New("session not found")

	// ErrExecutableNotFound reports that resolution produced no executable.
	// Configuration/environment error; never retried here.
	ErrExecutableNotFound = errors.New("agent executable not found")

	// ErrSpawnFailed reports that the OS could not launch the child.
	ErrSpawnFailed = errors.New("spawn failed")

	// ErrPty reports a PTY allocation or control failure.
	ErrPty = errors.New("pty error")

	// ErrIO reports a stream write/flush failure. The session stays
	// registered; removal only happens via terminate or reap.
	ErrIO = errors.New("io error")

	// ErrAlreadyExists reports a second spawn for a live session id. That
	// violates the one-session-per-id contract and is rejected as an
	// internal error rather than treated as a normal failure.
	ErrAlreadyExists = errors.New("session already exists")
)

func notFoundErr(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
