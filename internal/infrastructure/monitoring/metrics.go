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

	// Relay metrics
	RelayMessages *prometheus.CounterVec
	Deliveries    *prometheus.CounterVec
	Subscriptions prometheus.Gauge

	// WebSocket metrics
	WSConnections *prometheus.GaugeVec
	WSMessages    *prometheus.CounterVec

	// Page metrics
	FramesUpgraded prometheus.Counter
	PagesServed    *prometheus.CounterVec

	Uptime    prometheus.GaugeFunc
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON API
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveConnections int64   `json:"active_connections"`
	Subscriptions     int64   `json:"subscriptions"`
	RelayedMessages   int64   `json:"relayed_messages"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector registered on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		RelayMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_messages_total",
				Help: "Inbound widget envelopes by type, method and outcome",
			},
			[]string{"type", "method", "outcome"},
		),
		Deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_deliveries_total",
				Help: "Publish deliveries to subscribers",
			},
			[]string{"status"},
		),
		Subscriptions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_subscriptions",
				Help: "Number of (topic, endpoint) subscriptions",
			},
		),

		WSConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "relay_ws_connections",
				Help: "Number of active WebSocket connections",
			},
			[]string{"role"},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_ws_messages_total",
				Help: "Total number of WebSocket frames",
			},
			[]string{"direction"},
		),

		FramesUpgraded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_frames_upgraded_total",
				Help: "Legacy embed elements replaced by sandboxed frames",
			},
		),
		PagesServed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_pages_served_total",
				Help: "Host pages served through the upgrader",
			},
			[]string{"status"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "relay_uptime_seconds",
			Help: "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordRelayMessage records one inbound envelope and what the relay did with it
func (m *Metrics) RecordRelayMessage(typ, method, outcome string) {
	m.RelayMessages.WithLabelValues(typ, method, outcome).Inc()

	m.mu.Lock()
	m.snapshot.RelayedMessages++
	m.mu.Unlock()
}

// RecordDelivery records one publish delivery attempt
func (m *Metrics) RecordDelivery(status string) {
	m.Deliveries.WithLabelValues(status).Inc()
}

// SetSubscriptions sets the current subscription count
func (m *Metrics) SetSubscriptions(count int) {
	m.Subscriptions.Set(float64(count))

	m.mu.Lock()
	m.snapshot.Subscriptions = int64(count)
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket frame ("in" or "out")
func (m *Metrics) RecordWSMessage(direction string) {
	m.WSMessages.WithLabelValues(direction).Inc()
}

// IncWSConnections increments WebSocket connections for role
func (m *Metrics) IncWSConnections(role string) {
	m.WSConnections.WithLabelValues(role).Inc()

	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections for role
func (m *Metrics) DecWSConnections(role string) {
	m.WSConnections.WithLabelValues(role).Dec()

	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// AddFramesUpgraded counts frames produced by the upgrader
func (m *Metrics) AddFramesUpgraded(n int) {
	m.FramesUpgraded.Add(float64(n))
}

// RecordPageServed records a host page request outcome
func (m *Metrics) RecordPageServed(status string) {
	m.PagesServed.WithLabelValues(status).Inc()
}

// GetSnapshot returns current values for the JSON API
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
