package backfill

import (
	"time"

	"github.com/kickerhub/kickerstats/internal/docstore"
	"github.com/kickerhub/kickerstats/internal/metrics"
)

// Defaults for the paging and flushing knobs.
const (
	DefaultPageSize    = 500
	DefaultMaxBatchOps = 450
	DefaultPause       = 200 * time.Millisecond
)

// Options tunes a recompute run.
type Options struct {
	// PageSize is how many events one log page holds.
	PageSize int
	// MaxBatchOps caps the writes per flushed batch, respecting the store's
	// per-commit operation limit.
	MaxBatchOps int
	// Pause is the delay between flushed batches, respecting store
	// throughput limits.
	Pause time.Duration
	// TimeBudget bounds the whole run; zero means unbounded. Batches already
	// committed when the budget expires stay committed.
	TimeBudget time.Duration
	// CountDraws mirrors the live engine's draw handling.
	CountDraws bool
}

// Result reports how far a run got. It is valid even when Run returns an
// error: committed batches are not rolled back.
type Result struct {
	MatchesProcessed int `json:"matchesProcessed"`
	DocumentsWritten int `json:"documentsWritten"`
}

// Job rebuilds aggregate documents from the event log. Unlike the live
// engine's additive path, it overwrites documents with recomputed totals, so
// re-running the same range is always safe.
type Job struct {
	store   docstore.Store
	metrics metrics.Metrics
	opts    Options
	sleep   func(time.Duration)
}

// New creates a backfill Job.
func New(store docstore.Store, metricsSvc metrics.Metrics, opts Options) *Job {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxBatchOps <= 0 {
		opts.MaxBatchOps = DefaultMaxBatchOps
	}
	if opts.Pause <= 0 {
		opts.Pause = DefaultPause
	}
	return &Job{
		store:   store,
		metrics: metricsSvc,
		opts:    opts,
		sleep:   time.Sleep,
	}
}
