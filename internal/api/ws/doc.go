// Package ws streams terminal session events to browser clients over
// WebSocket.
//
// A single Hub receives events from the terminal manager (it implements the
// manager's event sink) and fans them out to every connected client. Frames
// are JSON envelopes; terminal output rides in the base64-encoded data field
// with a monotonically increasing sequence number so clients can detect gaps.
//
// Clients may narrow the stream to one session, either with the ?session=
// query parameter at connect time or with a subscribe message:
//
//	{"type": "subscribe", "sessionId": "..."}
//
// Frames without a session id (system notices) are delivered to everyone
// regardless of filter.
//
// Backpressure is handled per client: each connection has a bounded send
// queue, and a client that cannot keep up with the terminal stream is
// disconnected rather than allowed to stall other clients or silently skip
// output.
package ws
