package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsExportsRunsAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "low-stock-digest"
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job, at)
	metrics.IncFailure(job)
	metrics.IncSkipped(job)
	metrics.IncSkipped(job)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	success, err := fetchCounterValue(mfs, "cron_job_runs_total", map[string]string{"job": job, "outcome": "success"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, success)

	failure, err := fetchCounterValue(mfs, "cron_job_runs_total", map[string]string{"job": job, "outcome": "failure"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, failure)

	skipped, err := fetchCounterValue(mfs, "cron_job_skipped_total", map[string]string{"job": job})
	require.NoError(t, err)
	assert.Equal(t, 2.0, skipped)

	stamp, err := fetchGaugeValue(mfs, "cron_job_last_success_timestamp_seconds", map[string]string{"job": job})
	require.NoError(t, err)
	assert.Equal(t, float64(at.Unix()), stamp)

	sum, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", map[string]string{"job": job})
	require.NoError(t, err)
	assert.Greater(t, sum, 0.0)
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var nilMetrics *CronJobMetrics
	unregistered := NewCronJobMetrics(nil)
	for _, m := range []*CronJobMetrics{nilMetrics, unregistered} {
		assert.NotPanics(t, func() {
			m.ObserveDuration("job", time.Second)
			m.IncSuccess("job", time.Now())
			m.IncFailure("job")
			m.IncSkipped("job")
		})
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	metric, err := findMetric(mfs, name, labels)
	if err != nil {
		return 0, err
	}
	return metric.GetCounter().GetValue(), nil
}

func fetchGaugeValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	metric, err := findMetric(mfs, name, labels)
	if err != nil {
		return 0, err
	}
	return metric.GetGauge().GetValue(), nil
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	metric, err := findMetric(mfs, name, labels)
	if err != nil {
		return 0, err
	}
	return metric.GetHistogram().GetSampleSum(), nil
}

func findMetric(mfs []*dto.MetricFamily, name string, labels map[string]string) (*dto.Metric, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchesLabels(metric.GetLabel(), labels) {
				return metric, nil
			}
		}
		return nil, fmt.Errorf("metric %q missing labels %v", name, labels)
	}
	return nil, fmt.Errorf("metric %q not found", name)
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
