package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MailMetrics records outbound email delivery outcomes.
type MailMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewMailMetrics registers the mail delivery metrics on the provided registerer.
func NewMailMetrics(reg prometheus.Registerer) *MailMetrics {
	if reg == nil {
		return &MailMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mail_delivery_duration_seconds",
		Help:    "Duration of SMTP deliveries in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mail_delivery_success",
		Help: "Successful email deliveries.",
	}, []string{"kind"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mail_delivery_failure",
		Help: "Failed email deliveries.",
	}, []string{"kind"})
	reg.MustRegister(duration, success, failure)
	return &MailMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the delivery duration for the given mail kind.
func (m *MailMetrics) ObserveDuration(kind string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the given mail kind.
func (m *MailMetrics) IncSuccess(kind string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncFailure increments the failure counter for the given mail kind.
func (m *MailMetrics) IncFailure(kind string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(kind)).Inc()
}
