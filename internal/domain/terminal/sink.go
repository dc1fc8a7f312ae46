package terminal

// EventSink receives session-tagged events from the manager. Delivery is
// fire-and-forget: implementations must not block, and the manager offers
// no acknowledgment or retry.
type EventSink interface {
	// Output delivers one batched chunk of raw terminal output. The slice
	// is owned by the callee; the batcher never reuses it.
	Output(sessionID string, data []byte)

	// Ended signals end of stream for the session. Informational, not a
	// delivery guarantee: a hard-aborted batcher may skip it.
	Ended(sessionID string)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Output(string, []byte) {}
func (NopSink) Ended(string)          {}
