package gateway

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the gateway. A nil *Metrics records nothing.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	derivationsTotal   *prometheus.CounterVec
	derivationDuration prometheus.Gauge

	activeSubscriptions prometheus.Gauge
}

// NewMetrics creates the gateway metrics and registers them with reg when it is not nil
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autogql",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total GraphQL operations by type and outcome",
		}, []string{"operation", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "autogql",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "GraphQL operation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		derivationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autogql",
			Subsystem: "gateway",
			Name:      "derivations_total",
			Help:      "Schema derivations by outcome",
		}, []string{"status"}),
		derivationDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "autogql",
			Subsystem: "gateway",
			Name:      "derivation_duration_seconds",
			Help:      "Duration of the last successful schema derivation",
		}),
		activeSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "autogql",
			Subsystem: "gateway",
			Name:      "active_subscriptions",
			Help:      "Open subscription streams",
		}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.requestsTotal,
		m.requestDuration,
		m.derivationsTotal,
		m.derivationDuration,
		m.activeSubscriptions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register gateway metrics")
		}
	}
	return m, nil
}

func (m *Metrics) recordRequest(operation string, failed bool, took time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "error"
	}
	m.requestsTotal.WithLabelValues(operation, status).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(took.Seconds())
}

func (m *Metrics) recordDerivation(err error, took time.Duration) {
	if m == nil {
		return
	}
	if err != nil {
		m.derivationsTotal.WithLabelValues("error").Inc()
		return
	}
	m.derivationsTotal.WithLabelValues("ok").Inc()
	m.derivationDuration.Set(took.Seconds())
}

func (m *Metrics) subscriptionOpened() {
	if m != nil {
		m.activeSubscriptions.Inc()
	}
}

func (m *Metrics) subscriptionClosed() {
	if m != nil {
		m.activeSubscriptions.Dec()
	}
}
