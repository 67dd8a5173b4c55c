package metrics

import "time"

// RecordRun records one briefing run outcome.
// Status should be "success", "degraded", or "failure".
func RecordRun(category, status string, duration time.Duration) {
	BriefingRunsTotal.WithLabelValues(category, status).Inc()
	BriefingRunDuration.WithLabelValues(category).Observe(duration.Seconds())
}

// RecordProviderAttempt records one provider fetch attempt.
// Outcome should be "success", "failed", or "unavailable".
func RecordProviderAttempt(category, provider, outcome string) {
	ProviderAttemptsTotal.WithLabelValues(category, provider, outcome).Inc()
}

// RecordChainExhausted records a category whose whole provider chain
// failed in one invocation.
func RecordChainExhausted(category string) {
	ChainExhaustedTotal.WithLabelValues(category).Inc()
}

// RecordDelivery records a delivery attempt against the messaging sink.
func RecordDelivery(sink string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	DeliveriesTotal.WithLabelValues(sink, status).Inc()
	DeliveryDuration.WithLabelValues(sink).Observe(duration.Seconds())
}

// RecordStateFlush records a state document flush outcome.
func RecordStateFlush(backend string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	StateFlushesTotal.WithLabelValues(backend, status).Inc()
}

// RecordDedupSuppressed records items dropped as already delivered.
func RecordDedupSuppressed(category string, count int) {
	if count <= 0 {
		return
	}
	DedupSuppressedTotal.WithLabelValues(category).Add(float64(count))
}
