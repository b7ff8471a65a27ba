package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Routing metrics
	ForwardsTotal    *prometheus.CounterVec
	ForwardDuration  prometheus.Histogram
	PassthroughTotal *prometheus.CounterVec
	NativeTotal      prometheus.Counter

	// Correlation metrics
	PendingReplies   prometheus.Gauge
	BroadcastsTotal  prometheus.Counter
	BroadcastClients prometheus.Histogram

	// Engine socket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Instance metrics
	InstancesActive prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector registered on reg. Tests
// pass their own registry so parallel packages do not collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		ForwardsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_forwards_total",
				Help: "Total number of requests forwarded to engines, by outcome",
			},
			[]string{"outcome"},
		),
		ForwardDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gateway_forward_duration_seconds",
				Help:    "Forward round-trip duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 25},
			},
		),
		PassthroughTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_passthrough_total",
				Help: "Total number of passthrough-with-unscoping fetches, by outcome",
			},
			[]string{"outcome"},
		),
		NativeTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_native_total",
				Help: "Total number of requests left to native handling",
			},
		),

		PendingReplies: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gateway_pending_replies",
				Help: "Live entries in the correlation table",
			},
		),
		BroadcastsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_broadcasts_total",
				Help: "Total number of broadcast dispatches",
			},
		),
		BroadcastClients: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gateway_broadcast_clients",
				Help:    "Claimed clients reached per broadcast",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gateway_ws_connections",
				Help: "Number of active engine socket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_ws_messages_total",
				Help: "Total number of engine socket messages",
			},
			[]string{"direction", "type"},
		),

		InstancesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gateway_instances_active",
				Help: "Number of registered engine instances",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gateway_uptime_seconds",
				Help: "Gateway uptime in seconds",
			},
		),
	}

	// Start uptime updater
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
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordForward records a forward round-trip and its outcome
func (m *Metrics) RecordForward(outcome string, duration time.Duration) {
	m.ForwardsTotal.WithLabelValues(outcome).Inc()
	m.ForwardDuration.Observe(duration.Seconds())
}

// RecordPassthrough records a passthrough fetch outcome
func (m *Metrics) RecordPassthrough(outcome string) {
	m.PassthroughTotal.WithLabelValues(outcome).Inc()
}

// RecordBroadcast records one broadcast dispatch
func (m *Metrics) RecordBroadcast(clients int) {
	m.BroadcastsTotal.Inc()
	m.BroadcastClients.Observe(float64(clients))
}

// RecordWSMessage records an engine socket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}
