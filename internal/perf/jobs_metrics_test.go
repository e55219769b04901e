package perf

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/llauna/administracionFincas-sub000/internal/jobs"
)

func TestTreasuryJobThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	for i := 0; i < 40; i++ {
		tracker := metrics.Track("treasury_integrity")
		time.Sleep(5 * time.Millisecond)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending integrity tracker: %v", err)
		}
	}
	for i := 0; i < 10; i++ {
		tracker := metrics.Track("idempotency_cleanup")
		time.Sleep(2 * time.Millisecond)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending cleanup tracker: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		tracker := metrics.Track("treasury_integrity")
		if err := tracker.End(errors.New("timeout")); err == nil {
			t.Fatal("expected error to propagate")
		}
	}
	metrics.SetDriftedAccounts(3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "fincas_jobs_total", map[string]string{"job": "treasury_integrity", "status": "success"})
	failure := metricValue(t, families, "fincas_jobs_total", map[string]string{"job": "treasury_integrity", "status": "failure"})
	if success != 40 || failure != 2 {
		t.Fatalf("unexpected integrity counts: success=%f failure=%f", success, failure)
	}
	if failures := metricValue(t, families, "fincas_jobs_failures_total", map[string]string{"job": "treasury_integrity"}); failures != 2 {
		t.Fatalf("unexpected failure counter: %f", failures)
	}
	if drift := metricValue(t, families, "fincas_treasury_drift_accounts", nil); drift != 3 {
		t.Fatalf("unexpected drift gauge: %f", drift)
	}

	if mean := histogramMean(t, families, "fincas_job_duration_seconds", map[string]string{"job": "idempotency_cleanup"}); mean > 0.5 {
		t.Fatalf("cleanup duration above budget: %f", mean)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
