package metrics

import (
	"github.com/Layr-Labs/eigensdk-go/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsGenerator interface {
	metrics.Metrics

	// IncRequest counts a submitted request by method and outcome
	// ("ok" or the error kind).
	IncRequest(method, status string)
	// IncAccountEvent counts account lifecycle events (created, updated, deleted).
	IncAccountEvent(event string)
	IncOperationSigned(entryPointVersion string)
}

// KeyringMetrics contains instrumented metrics that should be incremented by the keyring using the methods below
type KeyringMetrics struct {
	metrics.Metrics

	numRequests         *prometheus.CounterVec
	numAccountEvents    *prometheus.CounterVec
	numOperationsSigned *prometheus.CounterVec
}

const keyringNamespace = "aa_keyring"

// NewKeyringMetrics registers the keyring counters on reg. eigenMetrics serves
// the registry over HTTP once started.
func NewKeyringMetrics(eigenMetrics metrics.Metrics, reg prometheus.Registerer) *KeyringMetrics {
	return &KeyringMetrics{
		Metrics: eigenMetrics,

		numRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: keyringNamespace,
				Name:      "num_requests_total",
				Help:      "The number of keyring requests handled, by method and outcome",
			}, []string{"method", "status"}),

		numAccountEvents: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: keyringNamespace,
				Name:      "num_account_events_total",
				Help:      "The number of account lifecycle events emitted",
			}, []string{"event"}),

		numOperationsSigned: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: keyringNamespace,
				Name:      "num_user_operations_signed_total",
				Help:      "The number of UserOperations signed, by entrypoint version",
			}, []string{"entrypoint_version"}),
	}
}

func (m *KeyringMetrics) IncRequest(method, status string) {
	m.numRequests.WithLabelValues(method, status).Inc()
}

func (m *KeyringMetrics) IncAccountEvent(event string) {
	m.numAccountEvents.WithLabelValues(event).Inc()
}

func (m *KeyringMetrics) IncOperationSigned(entryPointVersion string) {
	m.numOperationsSigned.WithLabelValues(entryPointVersion).Inc()
}
