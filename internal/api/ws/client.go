package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/agentsmonitor/backend/internal/shared/id"
)

const (
	// writeWait is the deadline for a single write to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long we tolerate silence before dropping the peer.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxInboundSize bounds client messages. Inbound traffic is control
	// frames only, terminal input goes over HTTP.
	maxInboundSize = 4096

	// sendBuffer is the per-client outbound queue. A client that falls
	// this far behind the terminal stream gets disconnected.
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Cross-origin policy is enforced by the CORS middleware layer.
		return true
	},
}

// Client is one WebSocket connection attached to the hub.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu        sync.RWMutex
	sessionID string
}

// inbound is the set of messages clients may send.
type inbound struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
}

// wants reports whether the client should receive frames for the given
// session. An empty filter subscribes to everything, and frames without a
// session (system notices) go to everyone.
func (c *Client) wants(sessionID string) bool {
	if sessionID == "" {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID == "" || c.sessionID == sessionID
}

// filter returns the client's current session filter.
func (c *Client) filter() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// subscribe narrows the client to a single session. Empty resubscribes to all.
func (c *Client) subscribe(sessionID string) {
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
}

// HandleConnection upgrades an HTTP request to a WebSocket and attaches the
// client to the hub. The optional ?session= query narrows the stream to one
// session.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:        id.Default().GenerateString(),
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		sessionID: c.Query("session"),
	}

	select {
	case <-h.done:
		conn.Close()
		return
	case h.register <- client:
	}

	go client.writePump()
	go client.readPump()

	client.welcome()
}

// welcome sends the initial system frame directly into the client's queue.
func (c *Client) welcome() {
	frame := &Frame{
		Type:      FrameSystem,
		Message:   "connected",
		Timestamp: time.Now().Unix(),
	}
	data, err := sonic.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump consumes control messages from the peer until the connection
// drops. It owns all reads on the connection.
func (c *Client) readPump() {
	defer func() {
		select {
		case <-c.hub.done:
		case c.hub.unregister <- c:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("client read error",
					zap.String("client_id", c.id),
					zap.Error(err),
				)
			}
			return
		}

		var msg inbound
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if c.hub.metrics != nil {
			c.hub.metrics.RecordWSMessage("in", msg.Type)
		}

		switch msg.Type {
		case "subscribe":
			c.subscribe(msg.SessionID)
			c.hub.log.Debug("client subscribed",
				zap.String("client_id", c.id),
				zap.String("session_id", msg.SessionID),
			)
		case "ping":
			c.reply(&Frame{Type: FramePong, Timestamp: time.Now().Unix()})
		}
	}
}

// writePump drains the send queue to the peer and keeps the connection
// alive with pings. It owns all writes on the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply queues a frame for this client only.
func (c *Client) reply(frame *Frame) {
	data, err := sonic.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
