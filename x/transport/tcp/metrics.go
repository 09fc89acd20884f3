package tcp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/compose-network/aebridge/metrics"
)

// Metrics holds event responder metrics. A nil *Metrics records nothing.
type Metrics struct {
	// Connection management
	ConnectionsTotal   *prometheus.CounterVec
	ConnectionsActive  prometheus.Gauge
	ConnectionDuration prometheus.Histogram

	// Request I/O
	RequestsTotal   *prometheus.CounterVec
	FrameSizeBytes  *prometheus.HistogramVec
	RequestDuration *prometheus.HistogramVec

	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates responder metrics registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	r := metrics.NewComponentRegistryWith(reg, metrics.Namespace, "transport")

	return &Metrics{
		ConnectionsTotal: r.NewCounterVec(prometheus.CounterOpts{
			Name: "connections_total",
			Help: "Total number of responder connections by state",
		}, []string{"state"}),

		ConnectionsActive: r.NewGauge(prometheus.GaugeOpts{
			Name: "connections_active",
			Help: "Number of open responder connections",
		}),

		ConnectionDuration: r.NewHistogram(prometheus.HistogramOpts{
			Name:    "connection_duration_seconds",
			Help:    "Lifetime of responder connections",
			Buckets: metrics.DurationBuckets,
		}),

		RequestsTotal: r.NewCounterVec(prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of requests by operation and reply status",
		}, []string{"op", "status"}),

		FrameSizeBytes: r.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "frame_size_bytes",
			Help:    "Size of request and reply frames",
			Buckets: metrics.SizeBuckets,
		}, []string{"direction"}),

		RequestDuration: r.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Time spent answering a request",
			Buckets: metrics.DurationBuckets,
		}, []string{"op"}),

		ErrorsTotal: r.NewCounterVec(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of connection errors by operation",
		}, []string{"operation"}),
	}
}

// RecordConnection records an accepted or closed connection.
func (m *Metrics) RecordConnection(state string) {
	if m == nil {
		return
	}
	m.ConnectionsTotal.WithLabelValues(state).Inc()

	switch state {
	case "accepted":
		m.ConnectionsActive.Inc()
	case "closed":
		m.ConnectionsActive.Dec()
	default:
	}
}

func (m *Metrics) RecordConnectionDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.ConnectionDuration.Observe(d.Seconds())
}

// RecordRequest records one answered request frame and its reply.
func (m *Metrics) RecordRequest(op string, status int, reqSize, replySize int, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if status != 0 {
		outcome = "error"
	}
	m.RequestsTotal.WithLabelValues(op, outcome).Inc()
	m.FrameSizeBytes.WithLabelValues("received").Observe(float64(reqSize))
	m.FrameSizeBytes.WithLabelValues("sent").Observe(float64(replySize))
	m.RequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) RecordError(operation string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(operation).Inc()
}

func opName(frame []byte) string {
	if len(frame) == 0 {
		return "empty"
	}
	switch frame[0] {
	case opSend:
		return "send"
	case opResolve:
		return "resolve"
	default:
		return "unknown"
	}
}
