package ledger

import (
	"context"

	"github.com/kickerhub/kickerstats/internal/docstore"
	"github.com/kickerhub/kickerstats/internal/kicker"
)

// Aggregator defines the aggregation operations required by the ledger.
type Aggregator interface {
	Apply(ctx context.Context, event *kicker.MatchEvent, multiplier int, extra ...docstore.WriteOp) error
	PromoteMaxima(ctx context.Context, playerIDs []string) error
}
