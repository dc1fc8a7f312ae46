package webhook

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/agentsmonitor/backend/internal/infrastructure/config"
	"github.com/agentsmonitor/backend/internal/infrastructure/monitoring"
	"github.com/agentsmonitor/backend/internal/infrastructure/resilience"
	"github.com/agentsmonitor/backend/internal/logging"
)

const queueSize = 256

// Event is the payload delivered to the configured webhook endpoint
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	AgentType string    `json:"agentType,omitempty"`
	PID       int       `json:"pid,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers terminal lifecycle events to an external endpoint.
// A nil Notifier is valid and drops all events.
type Notifier struct {
	url     string
	client  *resty.Client
	breaker *resilience.Breaker
	metrics *monitoring.Metrics
	log     *logging.Logger

	mu     sync.Mutex
	closed bool
	events chan Event
	done   chan struct{}
}

// New creates a notifier for the configured endpoint. Returns nil when no
// URL is configured; all methods are safe to call on a nil receiver.
func New(cfg config.WebhookConfig, log *logging.Logger, metrics *monitoring.Metrics) *Notifier {
	if cfg.URL == "" {
		return nil
	}
	if log == nil {
		log = logging.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil // Disable logging

	restyClient := resty.New()
	restyClient.
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(10 * time.Second).
		SetHeader("User-Agent", "AgentsMonitor-Webhook/1.0").
		SetHeader("Content-Type", "application/json")

	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	n := &Notifier{
		url:     cfg.URL,
		client:  restyClient,
		metrics: metrics,
		log:     log.Named("webhook"),
		events:  make(chan Event, queueSize),
		done:    make(chan struct{}),
	}

	n.breaker = resilience.New("webhook", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			// Endpoints vary in reliability; trip on sustained failure only
			return counts.ConsecutiveFailures >= 5 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.7)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			n.log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	go n.run()

	return n
}

// SessionStarted enqueues a session_started event
func (n *Notifier) SessionStarted(sessionID, agentType string, pid int) {
	n.enqueue(Event{
		Type:      "session_started",
		SessionID: sessionID,
		AgentType: agentType,
		PID:       pid,
	})
}

// SessionEnded enqueues a session_ended event
func (n *Notifier) SessionEnded(sessionID, outcome string) {
	n.enqueue(Event{
		Type:      "session_ended",
		SessionID: sessionID,
		Outcome:   outcome,
	})
}

// enqueue queues an event without blocking; events are dropped when the
// queue is full or the notifier is closed
func (n *Notifier) enqueue(evt Event) {
	if n == nil {
		return
	}
	evt.Timestamp = time.Now().UTC()

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}

	select {
	case n.events <- evt:
	default:
		if n.metrics != nil {
			n.metrics.RecordWebhookDelivery("dropped", 0)
		}
		n.log.Warn("event queue full, dropping event",
			zap.String("type", evt.Type),
			zap.String("session_id", evt.SessionID),
		)
	}
}

// run delivers queued events until the notifier is closed
func (n *Notifier) run() {
	defer close(n.done)
	for evt := range n.events {
		n.deliver(evt)
	}
}

// deliver posts a single event through the circuit breaker
func (n *Notifier) deliver(evt Event) {
	start := time.Now()
	err := n.breaker.Do(func() error {
		resp, err := n.client.R().SetBody(evt).Post(n.url)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("endpoint returned %s", resp.Status())
		}
		return nil
	})
	duration := time.Since(start)

	switch {
	case err == nil:
		if n.metrics != nil {
			n.metrics.RecordWebhookDelivery("ok", duration)
		}
		n.log.Debug("event delivered",
			zap.String("type", evt.Type),
			zap.String("session_id", evt.SessionID),
			zap.Duration("duration", duration),
		)
	case errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests):
		if n.metrics != nil {
			n.metrics.RecordWebhookDelivery("skipped", duration)
		}
	default:
		if n.metrics != nil {
			n.metrics.RecordWebhookDelivery("error", duration)
		}
		n.log.Warn("event delivery failed",
			zap.String("type", evt.Type),
			zap.String("session_id", evt.SessionID),
			zap.Error(err),
		)
	}
}

// Close stops the notifier after draining queued events
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.events)
	n.mu.Unlock()
	<-n.done
}
