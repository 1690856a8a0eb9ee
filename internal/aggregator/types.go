package aggregator

import (
	"errors"
	"time"

	"github.com/kickerhub/kickerstats/internal/docstore"
	"github.com/kickerhub/kickerstats/internal/metrics"
)

// ErrRetriesExhausted reports an aggregation transaction that kept losing
// optimistic-concurrency races until its retry budget ran out. It is a
// transient failure; the caller may resubmit the event.
var ErrRetriesExhausted = errors.New("aggregator: transaction retry budget exhausted")

// DefaultRetryBudget bounds how often one event's transaction is retried
// after a conflict before the failure is surfaced.
const DefaultRetryBudget = 5

// Options tunes the engine.
type Options struct {
	// RetryBudget caps transaction attempts; zero means DefaultRetryBudget.
	RetryBudget int
	// CountDraws controls whether drawn matches count toward bucket
	// matchesPlayed.
	CountDraws bool
}

// Engine applies one event's increments to every participant's lifetime and
// period documents inside a single store transaction, and maintains the
// highest-streak maxima out of band.
type Engine struct {
	store   docstore.Store
	metrics metrics.Metrics
	opts    Options
	now     func() time.Time
}

// New creates an Engine.
func New(store docstore.Store, metricsSvc metrics.Metrics, opts Options) *Engine {
	if opts.RetryBudget <= 0 {
		opts.RetryBudget = DefaultRetryBudget
	}
	return &Engine{
		store:   store,
		metrics: metricsSvc,
		opts:    opts,
		now:     time.Now,
	}
}
