// Package feed discovers assets and their trading pairs from the
// DexScreener public API.
package feed

import (
	"context"

	"dexradar/internal/domain"
)

// Feed is the discovery source consumed by the ingestion pipeline.
type Feed interface {
	// LatestProfiles returns the most recently published asset
	// profiles. An empty slice is a valid quiet-feed result.
	LatestProfiles(ctx context.Context) ([]*domain.AssetProfile, error)

	// LatestBoostedTokens returns promoted assets as profiles; used as
	// an optional second discovery source.
	LatestBoostedTokens(ctx context.Context) ([]*domain.AssetProfile, error)

	// PairsFor returns every known trading pair for one asset.
	PairsFor(ctx context.Context, chainID, tokenAddress string) ([]*domain.Pair, error)
}
