// Package validate provides request validation limits and helpers shared by
// the API layer.
package validate

import (
	"fmt"
	"os"
	"unicode/utf8"
)

// Payload size limits (in bytes)
const (
	MaxInputBytes    = 1 * 1024 * 1024 // 1MB - single terminal input write
	MaxSessionRecord = 4 * 1024 * 1024 // 4MB - persisted session record
)

// String length limits
const (
	MaxSessionNameLength = 256
	MaxPathLength        = 4096
)

// PTY geometry bounds. Zero is allowed and forwarded verbatim; the upper
// bound only guards against nonsense from a broken client.
const MaxPtyDimension = 10000

// SessionName checks a session display name.
func SessionName(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	if len(name) > MaxSessionNameLength {
		return fmt.Errorf("session name exceeds %d bytes", MaxSessionNameLength)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("session name is not valid UTF-8")
	}
	return nil
}

// InputSize checks a terminal input payload.
func InputSize(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("input cannot be empty")
	}
	if len(data) > MaxInputBytes {
		return fmt.Errorf("input size %d bytes exceeds maximum %d bytes", len(data), MaxInputBytes)
	}
	return nil
}

// PtyGeometry checks resize dimensions. Zero values pass through.
func PtyGeometry(rows, cols uint16) error {
	if rows > MaxPtyDimension || cols > MaxPtyDimension {
		return fmt.Errorf("geometry %dx%d exceeds maximum dimension %d", rows, cols, MaxPtyDimension)
	}
	return nil
}

// WorkingDirectory checks that dir exists and is a directory.
func WorkingDirectory(dir string) error {
	if dir == "" {
		return fmt.Errorf("working directory cannot be empty")
	}
	if len(dir) > MaxPathLength {
		return fmt.Errorf("working directory path exceeds %d bytes", MaxPathLength)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("working directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("working directory %s is not a directory", dir)
	}
	return nil
}

// ExecutableOverride checks an optional explicit executable path.
func ExecutableOverride(path string) error {
	if path == "" {
		return nil
	}
	if len(path) > MaxPathLength {
		return fmt.Errorf("executable path exceeds %d bytes", MaxPathLength)
	}
	return nil
}
