package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "interviewd"

// Metrics holds the Prometheus collectors for the ledger, the select-topic workflow and
// the idempotency guard.
type Metrics struct {
	ledgerOperations   *prometheus.CounterVec
	creditsConsumed    *prometheus.CounterVec
	creditsGranted     *prometheus.CounterVec
	workflowOutcomes   *prometheus.CounterVec
	interviewEvents    *prometheus.CounterVec
	guardDecisions     *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec
}

// NewMetrics registers every collector on registerer, falling back to the default registry.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	metrics := &Metrics{
		ledgerOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger operations by operation and outcome status.",
		}, []string{"operation", "status"}),
		creditsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "credits_consumed_total",
			Help:      "Credits debited by metered source type.",
		}, []string{"source_type"}),
		creditsGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "credits_granted_total",
			Help:      "Credits granted by grant source type.",
		}, []string{"source_type"}),
		workflowOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "select_topic_outcomes_total",
			Help:      "Select-topic runs by final workflow state.",
		}, []string{"state"}),
		interviewEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "interview_operations_total",
			Help:      "Interview service operations by operation and status.",
		}, []string{"operation", "status"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "idempotency_decisions_total",
			Help:      "Idempotency guard decisions.",
		}, []string{"decision"}),
		httpRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status class.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route", "status_class"}),
	}
	collectors := []prometheus.Collector{
		metrics.ledgerOperations,
		metrics.creditsConsumed,
		metrics.creditsGranted,
		metrics.workflowOutcomes,
		metrics.interviewEvents,
		metrics.guardDecisions,
		metrics.httpRequestLatency,
	}
	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return metrics, nil
}

// ObserveRequest records one HTTP request.
func (metrics *Metrics) ObserveRequest(route string, status int, seconds float64) {
	if metrics == nil {
		return
	}
	metrics.httpRequestLatency.WithLabelValues(route, statusClass(status)).Observe(seconds)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
