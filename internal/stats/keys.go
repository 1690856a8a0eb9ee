package stats

import (
	"fmt"

	"github.com/kickerhub/kickerstats/internal/docstore"
)

// MatchKey addresses one event document.
func MatchKey(eventID string) docstore.Key {
	return docstore.Key{Collection: CollectionMatches, ID: eventID}
}

// LifetimeKey addresses one player's lifetime stats document.
func LifetimeKey(playerID string) docstore.Key {
	return docstore.Key{Collection: CollectionPlayerStats, ID: playerID}
}

// BucketKey addresses one (player, period) stats document.
func BucketKey(playerID, periodType, periodID string) docstore.Key {
	return docstore.Key{
		Collection: CollectionBucketStats,
		ID:         fmt.Sprintf("%s_%s_%s", playerID, periodType, periodID),
	}
}
