package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncEventsApplied()
	IncEventsReversed()
	IncSuspiciousScores()
	IncTxRetries()
	IncTxFailures()
	AddStreakPromotions(count int)
	IncBackfillRuns()
	AddBackfillDocsWritten(count int)
	ObserveApplyDuration(duration float64)
	SetStartupTime(duration float64)
}
