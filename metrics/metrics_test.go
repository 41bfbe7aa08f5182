package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestKeyringMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewKeyringMetrics(nil, reg)

	m.IncRequest("eth_signUserOperation", "ok")
	m.IncRequest("eth_signUserOperation", "ok")
	m.IncRequest("eth_signUserOperation", "ScopeMismatch")
	m.IncAccountEvent("created")
	m.IncOperationSigned("0.7.0")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.numRequests.WithLabelValues("eth_signUserOperation", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.numRequests.WithLabelValues("eth_signUserOperation", "ScopeMismatch")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.numAccountEvents.WithLabelValues("created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.numOperationsSigned.WithLabelValues("0.7.0")))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 4, count)
}
