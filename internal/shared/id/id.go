// Package id provides centralized ID handling for the backend.
//
// Two ID families exist:
//   - Session IDs: caller-supplied UUIDs correlating a logical terminal
//     session across spawn/write/resize/terminate and emitted events. The
//     backend never mints these; it validates and normalizes them to the
//     uppercase form the session store uses for file names.
//   - Request/trace IDs: backend-minted ULIDs. Lexicographically sortable,
//     prefixed for readable logs (req_*, trace_*, span_*).
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SessionID is a normalized (uppercase) session UUID.
type SessionID string

// RequestID identifies an API request.
type RequestID string

// TraceID identifies a request trace.
type TraceID string

// SpanID identifies a span within a trace.
type SpanID string

const (
	RequestPrefix = "req"
	TracePrefix   = "trace"
	SpanPrefix    = "span"
)

// ParseSessionID validates a session identifier and normalizes it to the
// uppercase form used as the registry key and store file name.
func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid session id %q: %w", raw, err)
	}
	return SessionID(strings.ToUpper(parsed.String())), nil
}

// NewSessionID mints a fresh session UUID. Callers normally supply their
// own; this exists for the session-create path where the frontend lets the
// backend pick.
func NewSessionID() SessionID {
	return SessionID(strings.ToUpper(uuid.NewString()))
}

// IsSessionID reports whether raw parses as a session UUID.
func IsSessionID(raw string) bool {
	_, err := uuid.Parse(strings.TrimSpace(raw))
	return err == nil
}

func (id SessionID) String() string { return string(id) }
func (id RequestID) String() string { return string(id) }
func (id TraceID) String() string   { return string(id) }
func (id SpanID) String() string    { return string(id) }

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator with secure entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewRequestID generates a new request ID.
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewTraceID generates a new trace ID.
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

// NewSpanID generates a new span ID.
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

// IsULID checks if an ID string is a valid ULID.
func IsULID(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// ULIDTimestamp extracts the timestamp from a ULID string.
func ULIDTimestamp(id string) (time.Time, error) {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
