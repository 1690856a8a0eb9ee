package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	EventsApplied       prometheus.Counter
	EventsReversed      prometheus.Counter
	SuspiciousScores    prometheus.Counter
	TxRetries           prometheus.Counter
	TxFailures          prometheus.Counter
	StreakPromotions    prometheus.Counter
	BackfillRuns        prometheus.Counter
	BackfillDocsWritten prometheus.Counter
	ApplyDuration       prometheus.Histogram
	StartupTimeSeconds  prometheus.Gauge
}
