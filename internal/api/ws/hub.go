package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/agentsmonitor/backend/internal/infrastructure/monitoring"
	"github.com/agentsmonitor/backend/internal/logging"
)

// Frame is the envelope for every message pushed to clients. Data carries
// raw terminal bytes and serializes as base64.
type Frame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      []byte `json:"data,omitempty"`
	Seq       int64  `json:"seq,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Frame types pushed by the hub.
const (
	FrameTerminalOutput = "terminal_output"
	FrameTerminalEnded  = "terminal_ended"
	FrameSessionReaped  = "session_reaped"
	FrameSystem         = "system"
	FrameError          = "error"
	FramePong           = "pong"
)

// Hub fans terminal events out to connected WebSocket clients. It implements
// the terminal manager's event sink, so PTY output flows here directly.
type Hub struct {
	log     *logging.Logger
	metrics *monitoring.Metrics

	clients    map[*Client]struct{}
	clientsMu  sync.RWMutex
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Frame

	seq  atomic.Int64
	done chan struct{}
	once sync.Once
}

// NewHub creates a hub and starts its event loop.
func NewHub(log *logging.Logger, metrics *monitoring.Metrics) *Hub {
	if log == nil {
		log = logging.NewNop()
	}
	h := &Hub{
		log:        log.Named("ws"),
		metrics:    metrics,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Frame, 256),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// run is the hub's main event loop.
func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return
		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.clientsMu.Unlock()
			if h.metrics != nil {
				h.metrics.IncWSConnections()
			}
			h.log.Debug("client connected",
				zap.String("client_id", client.id),
				zap.String("session_filter", client.filter()),
				zap.Int("total", total),
			)
		case client := <-h.unregister:
			h.drop(client)
		case frame := <-h.broadcast:
			h.dispatch(frame)
		}
	}
}

// drop removes a client and closes its send channel.
func (h *Hub) drop(client *Client) {
	h.clientsMu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.clientsMu.Unlock()

	if !ok {
		return
	}
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
	h.log.Debug("client disconnected",
		zap.String("client_id", client.id),
		zap.Int("total", total),
	)
}

// dispatch marshals a frame once and sends it to every interested client.
// Clients too slow to drain their buffer are dropped rather than allowed
// to stall the terminal pipeline.
func (h *Hub) dispatch(frame *Frame) {
	data, err := sonic.Marshal(frame)
	if err != nil {
		h.log.Error("frame marshal failed", zap.Error(err))
		return
	}
	if h.metrics != nil {
		h.metrics.RecordWSMessage("out", frame.Type)
	}

	var stalled []*Client
	h.clientsMu.RLock()
	for client := range h.clients {
		if !client.wants(frame.SessionID) {
			continue
		}
		select {
		case client.send <- data:
		default:
			stalled = append(stalled, client)
		}
	}
	h.clientsMu.RUnlock()

	for _, client := range stalled {
		h.log.Warn("dropping slow client", zap.String("client_id", client.id))
		h.drop(client)
	}
}

// enqueue hands a frame to the event loop without blocking the caller.
func (h *Hub) enqueue(frame *Frame) {
	select {
	case <-h.done:
	case h.broadcast <- frame:
	default:
		h.log.Warn("broadcast buffer full, dropping frame",
			zap.String("type", frame.Type),
			zap.String("session_id", frame.SessionID),
		)
	}
}

// Output forwards one batch of terminal output. Implements terminal.EventSink.
func (h *Hub) Output(sessionID string, data []byte) {
	h.enqueue(&Frame{
		Type:      FrameTerminalOutput,
		SessionID: sessionID,
		Data:      data,
		Seq:       h.seq.Add(1),
	})
}

// Ended announces that a session's PTY reached end of stream. Implements
// terminal.EventSink.
func (h *Hub) Ended(sessionID string) {
	h.enqueue(&Frame{
		Type:      FrameTerminalEnded,
		SessionID: sessionID,
		Timestamp: time.Now().Unix(),
	})
}

// SessionReaped announces that an exited session was removed by the sweeper.
func (h *Hub) SessionReaped(sessionID string) {
	h.enqueue(&Frame{
		Type:      FrameSessionReaped,
		SessionID: sessionID,
		Timestamp: time.Now().Unix(),
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Stop shuts down the hub and disconnects every client.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

// closeAll disconnects every client during shutdown.
func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		if h.metrics != nil {
			h.metrics.DecWSConnections()
		}
	}
}
