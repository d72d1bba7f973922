package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/checkout-orchestrator/internal/metrics"
)

// The instruments live on the default registry, so assertions measure
// increments rather than absolute values.

func TestCounters_Increment(t *testing.T) {
	before := testutil.ToFloat64(metrics.OrdersCreatedTotal())
	metrics.OrdersCreatedTotal().Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OrdersCreatedTotal()))

	before = testutil.ToFloat64(metrics.DuplicatesSuppressedTotal())
	metrics.DuplicatesSuppressedTotal().Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DuplicatesSuppressedTotal()))
}

func TestInFlightLocksGauge(t *testing.T) {
	before := testutil.ToFloat64(metrics.InFlightLocks())
	metrics.InFlightLocks().Inc()
	metrics.InFlightLocks().Inc()
	metrics.InFlightLocks().Dec()
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.InFlightLocks()))
	metrics.InFlightLocks().Dec()
}

func TestInstrumentsAreRegistered(t *testing.T) {
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	for _, name := range []string{
		"checkout_orders_created_total",
		"checkout_duplicate_orders_suppressed_total",
		"checkout_duplicate_in_flight_total",
		"checkout_validation_rejected_total",
		"checkout_payment_link_failures_total",
		"checkout_in_flight_locks",
		"checkout_submit_duration_seconds",
	} {
		require.Contains(t, byName, name)
	}

	assert.Equal(t, dto.MetricType_HISTOGRAM, byName["checkout_submit_duration_seconds"].GetType())
	assert.Equal(t, dto.MetricType_GAUGE, byName["checkout_in_flight_locks"].GetType())
}
