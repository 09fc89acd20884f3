package dispatch

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/compose-network/aebridge/metrics"
	"github.com/compose-network/aebridge/x/desc"
	"github.com/compose-network/aebridge/x/terminology"
	"github.com/compose-network/aebridge/x/transport"
)

// Metrics holds dispatch metrics. A nil *Metrics records nothing.
type Metrics struct {
	DispatchesTotal  *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	RetriesTotal     prometheus.Counter
	RelaunchesTotal  *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	EnvelopeSize     prometheus.Histogram
}

// NewMetrics creates dispatch metrics registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	r := metrics.NewComponentRegistryWith(reg, metrics.Namespace, "dispatch")

	return &Metrics{
		DispatchesTotal: r.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatches_total",
			Help: "Total number of dispatched commands by outcome",
		}, []string{"command", "outcome"}),

		DispatchDuration: r.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatch_duration_seconds",
			Help:    "Time from building the envelope to decoding the reply",
			Buckets: metrics.DurationBuckets,
		}, []string{"command"}),

		RetriesTotal: r.NewCounter(prometheus.CounterOpts{
			Name: "retries_total",
			Help: "Total number of envelopes resent after a relaunch",
		}),

		RelaunchesTotal: r.NewCounterVec(prometheus.CounterOpts{
			Name: "relaunches_total",
			Help: "Total number of target address refreshes by how the envelope was updated",
		}, []string{"update"}),

		ErrorsTotal: r.NewCounterVec(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of failed dispatches by error kind",
		}, []string{"kind"}),

		EnvelopeSize: r.NewHistogram(prometheus.HistogramOpts{
			Name:    "envelope_size_bytes",
			Help:    "Size of encoded envelopes",
			Buckets: metrics.SizeBuckets,
		}),
	}
}

func (m *Metrics) recordDispatch(cmd Command, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.ErrorsTotal.WithLabelValues(errorKind(err)).Inc()
	}
	m.DispatchesTotal.WithLabelValues(cmd.String(), outcome).Inc()
	m.DispatchDuration.WithLabelValues(cmd.String()).Observe(elapsed.Seconds())
}

func (m *Metrics) recordRelaunch(update string) {
	if m == nil {
		return
	}
	m.RelaunchesTotal.WithLabelValues(update).Inc()
	m.RetriesTotal.Inc()
}

func (m *Metrics) observeEnvelope(size int) {
	if m == nil {
		return
	}
	m.EnvelopeSize.Observe(float64(size))
}

func errorKind(err error) string {
	var (
		encErr *desc.EncodeError
		decErr *desc.DecodeError
		trErr  *transport.Error
		appErr *ApplicationError
		srcErr *terminology.SourceError
	)
	switch {
	case errors.As(err, &appErr):
		return "application"
	case errors.As(err, &trErr):
		return "transport"
	case errors.As(err, &encErr), errors.Is(err, ErrUnknownParameter), errors.Is(err, ErrInvalidOption):
		return "encode"
	case errors.As(err, &decErr):
		return "decode"
	case errors.As(err, &srcErr):
		return "terminology"
	default:
		return "other"
	}
}
