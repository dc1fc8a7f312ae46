package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Terminal metrics
	SessionsActive prometheus.Gauge
	Spawns         *prometheus.CounterVec
	OutputBytes    prometheus.Counter
	OutputFlushes  *prometheus.CounterVec
	WriteErrors    prometheus.Counter
	Terminations   *prometheus.CounterVec
	SessionsReaped prometheus.Counter

	// Session store metrics
	StoreOps      *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Webhook metrics
	WebhookDeliveries *prometheus.CounterVec
	WebhookDuration   prometheus.Histogram

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64
	TotalErrors       int64
	ActiveSessions    int64
	ActiveConnections int64
	TotalDuration     float64 // sum of all request durations
	RequestCount      int64   // count for averaging
}

// AverageRequestMS returns the mean request latency in milliseconds.
func (s MetricsSnapshot) AverageRequestMS() float64 {
	if s.RequestCount == 0 {
		return 0
	}
	return s.TotalDuration / float64(s.RequestCount) * 1000
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Terminal metrics
		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_terminal_sessions_active",
				Help: "Number of live terminal sessions",
			},
		),
		Spawns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_terminal_spawns_total",
				Help: "Total number of terminal spawn attempts",
			},
			[]string{"agent", "status"},
		),
		OutputBytes: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_terminal_output_bytes_total",
				Help: "Total bytes of terminal output delivered",
			},
		),
		OutputFlushes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_terminal_output_flushes_total",
				Help: "Total number of output batch flushes",
			},
			[]string{"reason"},
		),
		WriteErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_terminal_write_errors_total",
				Help: "Total number of failed terminal writes",
			},
		),
		Terminations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_terminal_terminations_total",
				Help: "Total number of terminal terminations",
			},
			[]string{"outcome"},
		),
		SessionsReaped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_terminal_sessions_reaped_total",
				Help: "Total number of exited sessions reaped",
			},
		),

		// Session store metrics
		StoreOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_session_store_operations_total",
				Help: "Total number of session store operations",
			},
			[]string{"op", "status"},
		),
		StoreDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_session_store_duration_seconds",
				Help:    "Session store operation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"op"},
		),

		// WebSocket metrics
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_ws_clients_connected",
				Help: "Number of connected WebSocket clients",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// Webhook metrics
		WebhookDeliveries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_webhook_deliveries_total",
				Help: "Total number of webhook delivery attempts",
			},
			[]string{"status"},
		),
		WebhookDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backend_webhook_delivery_duration_seconds",
				Help:    "Webhook delivery duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SessionStarted records a new live terminal session
func (m *Metrics) SessionStarted() {
	m.SessionsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveSessions++
	m.mu.Unlock()
}

// SessionEnded records a terminal session leaving the registry
func (m *Metrics) SessionEnded() {
	m.SessionsActive.Dec()
	m.mu.Lock()
	m.snapshot.ActiveSessions--
	m.mu.Unlock()
}

// RecordSpawn records a terminal spawn attempt
func (m *Metrics) RecordSpawn(agentType string, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	m.Spawns.WithLabelValues(agentType, status).Inc()
}

// RecordOutputFlush records one delivered output batch
func (m *Metrics) RecordOutputFlush(reason string, bytes int) {
	m.OutputFlushes.WithLabelValues(reason).Inc()
	m.OutputBytes.Add(float64(bytes))
}

// RecordWriteError records a failed write to a session PTY
func (m *Metrics) RecordWriteError() {
	m.WriteErrors.Inc()
}

// RecordTermination records a session termination and its outcome
func (m *Metrics) RecordTermination(outcome string) {
	m.Terminations.WithLabelValues(outcome).Inc()
}

// RecordReaped records sessions removed by the cleanup sweep
func (m *Metrics) RecordReaped(count int) {
	m.SessionsReaped.Add(float64(count))
}

// RecordStoreOperation records a session store operation
func (m *Metrics) RecordStoreOperation(op string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreOps.WithLabelValues(op, status).Inc()
	m.StoreDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// RecordWebhookDelivery records a webhook delivery attempt
func (m *Metrics) RecordWebhookDelivery(status string, duration time.Duration) {
	m.WebhookDeliveries.WithLabelValues(status).Inc()
	m.WebhookDuration.Observe(duration.Seconds())
}

// GetSnapshot returns the current snapshot values
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// GetUptimeSeconds returns seconds since the collector was created
func (m *Metrics) GetUptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}
