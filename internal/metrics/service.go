package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		EventsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kicker_events_applied_total",
			Help: "The total number of match events applied to the aggregates.",
		}),
		EventsReversed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kicker_events_reversed_total",
			Help: "The total number of match events reversed on deletion.",
		}),
		SuspiciousScores: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kicker_suspicious_scores_total",
			Help: "The total number of accepted match events flagged as suspicious.",
		}),
		TxRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kicker_aggregation_tx_retries_total",
			Help: "The total number of aggregation transactions retried after a conflict.",
		}),
		TxFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kicker_aggregation_tx_failures_total",
			Help: "The total number of aggregation transactions that exhausted their retry budget.",
		}),
		StreakPromotions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kicker_streak_promotions_total",
			Help: "The total number of highest-streak maxima raised by the streak maintainer.",
		}),
		BackfillRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kicker_backfill_runs_total",
			Help: "The total number of backfill jobs started.",
		}),
		BackfillDocsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kicker_backfill_documents_written_total",
			Help: "The total number of aggregate documents written by backfill jobs.",
		}),
		ApplyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kicker_event_apply_duration_seconds",
			Help:    "The duration of applying one event's increments transactionally.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kicker_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.EventsApplied,
		s.EventsReversed,
		s.SuspiciousScores,
		s.TxRetries,
		s.TxFailures,
		s.StreakPromotions,
		s.BackfillRuns,
		s.BackfillDocsWritten,
		s.ApplyDuration,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncEventsApplied() {
	s.EventsApplied.Inc()
}

func (s *Service) IncEventsReversed() {
	s.EventsReversed.Inc()
}

func (s *Service) IncSuspiciousScores() {
	s.SuspiciousScores.Inc()
}

func (s *Service) IncTxRetries() {
	s.TxRetries.Inc()
}

func (s *Service) IncTxFailures() {
	s.TxFailures.Inc()
}

func (s *Service) AddStreakPromotions(count int) {
	s.StreakPromotions.Add(float64(count))
}

func (s *Service) IncBackfillRuns() {
	s.BackfillRuns.Inc()
}

func (s *Service) AddBackfillDocsWritten(count int) {
	s.BackfillDocsWritten.Add(float64(count))
}

func (s *Service) ObserveApplyDuration(duration float64) {
	s.ApplyDuration.Observe(duration)
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
