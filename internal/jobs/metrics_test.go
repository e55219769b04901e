package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// gathered returns the sum of every sample of the named metric family.
func gathered(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
	}
	return total
}

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	require.NoError(t, m.Track("treasury_integrity").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("treasury_integrity").End(boom), boom)

	require.Equal(t, 2.0, gathered(t, registry, "fincas_jobs_total"))
	require.Equal(t, 1.0, gathered(t, registry, "fincas_jobs_failures_total"))

	m.SetDriftedAccounts(3)
	require.Equal(t, 3.0, gathered(t, registry, "fincas_treasury_drift_accounts"))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.SetDriftedAccounts(1)
	require.NoError(t, m.Track("x").End(nil))
}
