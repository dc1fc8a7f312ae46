package id

import (
	"strings"
	"sync"
	"testing"
)

func TestParseSessionID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"6ba7b810-9dad-11d1-80b4-00c04fd430c8", "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", true},
		{"6BA7B810-9DAD-11D1-80B4-00C04FD430C8", "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", true},
		{"  6ba7b810-9dad-11d1-80b4-00c04fd430c8  ", "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", true},
		{"not-a-uuid", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, err := ParseSessionID(tt.raw)
		if tt.ok {
			if err != nil {
				t.Errorf("ParseSessionID(%q) returned error: %v", tt.raw, err)
				continue
			}
			if got.String() != tt.want {
				t.Errorf("ParseSessionID(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		} else if err == nil {
			t.Errorf("ParseSessionID(%q) should have failed", tt.raw)
		}
	}
}

func TestNewSessionID(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()

	if a == b {
		t.Error("Generated session IDs should be unique")
	}
	if a.String() != strings.ToUpper(a.String()) {
		t.Errorf("Session ID should be uppercase: %s", a)
	}
	if !IsSessionID(a.String()) {
		t.Errorf("Generated session ID should validate: %s", a)
	}
}

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestGenerateString(t *testing.T) {
	gen := NewGenerator()

	id := gen.GenerateString()

	if len(id) != 26 {
		t.Errorf("ULID should be 26 characters, got %d", len(id))
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	tests := []struct {
		prefix string
	}{
		{RequestPrefix},
		{TracePrefix},
		{SpanPrefix},
	}

	for _, tt := range tests {
		id := gen.GenerateWithPrefix(tt.prefix)

		if !strings.HasPrefix(id, tt.prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", tt.prefix, id)
		}

		parts := strings.Split(id, "_")
		if len(parts) != 2 {
			t.Errorf("Prefixed ID should have format 'prefix_ulid', got: %s", id)
		}

		if !IsULID(parts[1]) {
			t.Errorf("ULID part should be valid: %s", parts[1])
		}
	}
}

func TestTypedIDGeneration(t *testing.T) {
	reqID := NewRequestID()
	traceID := NewTraceID()
	spanID := NewSpanID()

	if !strings.HasPrefix(string(reqID), "req_") {
		t.Errorf("RequestID should start with 'req_', got: %s", reqID)
	}

	if !strings.HasPrefix(string(traceID), "trace_") {
		t.Errorf("TraceID should start with 'trace_', got: %s", traceID)
	}

	if !strings.HasPrefix(string(spanID), "span_") {
		t.Errorf("SpanID should start with 'span_', got: %s", spanID)
	}
}

func TestIsULID(t *testing.T) {
	gen := NewGenerator()

	if !IsULID(gen.GenerateString()) {
		t.Error("Generated ULID should be valid")
	}
	if IsULID("not-a-ulid") {
		t.Error("Garbage should not validate as ULID")
	}
}

func TestULIDTimestamp(t *testing.T) {
	gen := NewGenerator()
	id := gen.GenerateString()

	ts, err := ULIDTimestamp(id)
	if err != nil {
		t.Fatalf("ULIDTimestamp failed: %v", err)
	}
	if ts.IsZero() {
		t.Error("ULID timestamp should not be zero")
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const workers = 8
	const perWorker = 100

	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := gen.GenerateString()
				mu.Lock()
				if seen[id] {
					t.Errorf("Duplicate ULID generated: %s", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}
