package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRun(t *testing.T) {
	tests := []struct {
		name     string
		category string
		status   string
	}{
		{"successful run", "weather", "success"},
		{"degraded run", "news", "degraded"},
		{"failed run", "schedule", "failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordRun(tt.category, tt.status, 2*time.Second)
			})
		})
	}
}

func TestRecordProviderAttemptCounts(t *testing.T) {
	RecordProviderAttempt("weather", "wttr.in", "success")
	RecordProviderAttempt("weather", "wttr.in", "success")

	counter, err := ProviderAttemptsTotal.GetMetricWithLabelValues("weather", "wttr.in", "success")
	require.NoError(t, err)

	var m dto.Metric
	require.NoError(t, counter.Write(&m))
	assert.GreaterOrEqual(t, m.GetCounter().GetValue(), 2.0)
}

func TestRecordDelivery(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordDelivery("telegram", true, 300*time.Millisecond)
		RecordDelivery("telegram", false, time.Second)
	})

	counter, err := DeliveriesTotal.GetMetricWithLabelValues("telegram", "failure")
	require.NoError(t, err)

	var m dto.Metric
	require.NoError(t, counter.Write(&m))
	assert.GreaterOrEqual(t, m.GetCounter().GetValue(), 1.0)
}

func TestRecordStateFlush(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordStateFlush("gist", true)
		RecordStateFlush("gist", false)
	})
}

func TestRecordDedupSuppressedIgnoresNonPositive(t *testing.T) {
	before := counterValue(t, "news")
	RecordDedupSuppressed("news", 0)
	RecordDedupSuppressed("news", -3)
	assert.Equal(t, before, counterValue(t, "news"))

	RecordDedupSuppressed("news", 4)
	assert.Equal(t, before+4, counterValue(t, "news"))
}

func counterValue(t *testing.T, category string) float64 {
	t.Helper()
	counter, err := DedupSuppressedTotal.GetMetricWithLabelValues(category)
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, counter.Write(&m))
	return m.GetCounter().GetValue()
}
