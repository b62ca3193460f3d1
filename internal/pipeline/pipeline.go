// Package pipeline runs one full ingestion pass: discover assets from
// the feed, enrich with pair data, filter, risk-check, persist, and
// notify on first sight.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dexradar/internal/chain"
	"dexradar/internal/domain"
	"dexradar/internal/feed"
	"dexradar/internal/filter"
	"dexradar/internal/normalize"
	"dexradar/internal/notify"
	"dexradar/internal/observability"
	"dexradar/internal/risk"
	"dexradar/internal/storage"
	"dexradar/internal/volume"
)

// RejectReason explains why one asset was dropped during a cycle.
type RejectReason string

const (
	RejectBlacklisted     RejectReason = "blacklisted coin"
	RejectInvalidAddress  RejectReason = "invalid token address"
	RejectPairFetchFailed RejectReason = "pair fetch failed"
	RejectNoPairs         RejectReason = "no pairs"
	RejectNoLiquidity     RejectReason = "no valid pairs with liquidity"
	RejectMissingMetrics  RejectReason = "missing metrics"
	RejectFiltered        RejectReason = "filtered"
	RejectFakeVolume      RejectReason = "suspicious volume"
	RejectRiskUnavailable RejectReason = "risk unavailable"
	RejectUnsafe          RejectReason = "unsafe"
	RejectStorageFailed   RejectReason = "storage failed"
	RejectPanic           RejectReason = "panic during processing"
)

// CycleStats aggregates the outcome of one ingestion pass.
type CycleStats struct {
	Processed int
	Filtered  int
	Stored    int
	Updated   int
}

// Pipeline orchestrates the per-cycle ingestion flow. Assets are
// processed sequentially and each accepted row is committed
// immediately, so a later failure never rolls back earlier work.
type Pipeline struct {
	feed           feed.Feed
	includeBoosted bool
	filter         *filter.Evaluator
	verifier       *volume.Verifier
	assessor       *risk.Assessor
	snapshots      storage.SnapshotStore
	observations   storage.ObservationStore
	dispatcher     *notify.Dispatcher
	coinBlacklist  map[string]struct{}
	clock          func() time.Time
	log            zerolog.Logger
	metrics        *observability.Metrics
}

// Options configures a Pipeline.
type Options struct {
	Feed feed.Feed

	// IncludeBoosted merges the boosted-tokens feed into discovery.
	IncludeBoosted bool

	Filter *filter.Evaluator

	// Verifier is optional; nil skips volume verification.
	Verifier *volume.Verifier

	Assessor *risk.Assessor

	Snapshots    storage.SnapshotStore
	Observations storage.ObservationStore

	// Dispatcher may be nil when notifications are disabled.
	Dispatcher *notify.Dispatcher

	// CoinBlacklist lists token addresses to drop before any
	// network enrichment.
	CoinBlacklist []string

	// Clock overrides time.Now, for tests.
	Clock func() time.Time

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// New creates a new Pipeline.
func New(opts Options) *Pipeline {
	blacklist := make(map[string]struct{}, len(opts.CoinBlacklist))
	for _, addr := range opts.CoinBlacklist {
		blacklist[addr] = struct{}{}
	}

	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	return &Pipeline{
		feed:           opts.Feed,
		includeBoosted: opts.IncludeBoosted,
		filter:         opts.Filter,
		verifier:       opts.Verifier,
		assessor:       opts.Assessor,
		snapshots:      opts.Snapshots,
		observations:   opts.Observations,
		dispatcher:     opts.Dispatcher,
		coinBlacklist:  blacklist,
		clock:          clock,
		log:            opts.Logger,
		metrics:        opts.Metrics,
	}
}

// Run executes one ingestion pass. A failed discovery fetch aborts the
// cycle; per-asset failures only reject that asset.
func (p *Pipeline) Run(ctx context.Context) (CycleStats, error) {
	var stats CycleStats

	profiles, err := p.feed.LatestProfiles(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch latest profiles: %w", err)
	}

	if p.includeBoosted {
		boosted, err := p.feed.LatestBoostedTokens(ctx)
		if err != nil {
			// The boosted feed is a secondary source; losing it does
			// not fail the cycle.
			p.log.Warn().Err(err).Msg("boosted tokens fetch failed")
		} else {
			profiles = append(profiles, boosted...)
		}
	}

	profiles = dedupeProfiles(profiles)
	if len(profiles) == 0 {
		p.log.Info().Msg("no token profiles received")
		return stats, nil
	}

	for _, profile := range profiles {
		stats.Processed++
		if p.metrics != nil {
			p.metrics.AssetsProcessed.Inc()
		}

		inserted, reason := p.processOne(ctx, profile)
		switch {
		case reason != "":
			stats.Filtered++
			if p.metrics != nil {
				p.metrics.AssetsRejected.WithLabelValues(string(reason)).Inc()
			}
		case inserted:
			stats.Stored++
			if p.metrics != nil {
				p.metrics.AssetsStored.Inc()
			}
		default:
			stats.Updated++
			if p.metrics != nil {
				p.metrics.AssetsUpdated.Inc()
			}
		}
	}

	p.log.Info().
		Int("processed", stats.Processed).
		Int("filtered", stats.Filtered).
		Int("stored", stats.Stored).
		Int("updated", stats.Updated).
		Msg("ingestion cycle complete")
	return stats, nil
}

// processOne runs the per-asset stage sequence. A non-empty reason
// means the asset was rejected; otherwise inserted reports whether a
// new row was created (false means updated in place).
func (p *Pipeline) processOne(ctx context.Context, profile *domain.AssetProfile) (inserted bool, reason RejectReason) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().
				Str("asset", profile.Key().String()).
				Interface("panic", r).
				Msg("recovered panic while processing asset")
			inserted = false
			reason = RejectPanic
		}
	}()

	log := p.log.With().Str("asset", profile.Key().String()).Logger()

	if _, ok := p.coinBlacklist[profile.TokenAddress]; ok {
		log.Info().Msg("skipping blacklisted coin")
		return false, RejectBlacklisted
	}

	if !chain.ValidTokenAddress(profile.ChainID, profile.TokenAddress) {
		log.Info().Msg("invalid token address")
		return false, RejectInvalidAddress
	}

	pairs, err := p.feed.PairsFor(ctx, profile.ChainID, profile.TokenAddress)
	if err != nil {
		log.Warn().Err(err).Msg("pair fetch failed")
		return false, RejectPairFetchFailed
	}
	if len(pairs) == 0 {
		log.Debug().Msg("no pairs")
		return false, RejectNoPairs
	}

	best, liquidity := selectBestPair(pairs)
	if best == nil {
		log.Debug().Msg("no valid pairs with liquidity")
		return false, RejectNoLiquidity
	}

	name, symbol := profile.Name, profile.Symbol
	if best.BaseToken != nil {
		if name == "" {
			name = best.BaseToken.Name
		}
		if symbol == "" {
			symbol = best.BaseToken.Symbol
		}
	}

	price, priceOK := normalize.MetricString(best.PriceUSD)
	var vol decimal.Decimal
	volOK := false
	if best.Volume != nil {
		vol, volOK = normalize.Metric(best.Volume.H24)
	}
	if !filter.Present(price, priceOK) || !filter.Present(vol, volOK) || !filter.Present(liquidity, true) {
		log.Debug().Msg("missing metrics")
		return false, RejectMissingMetrics
	}

	if ok, violation := p.filter.Passes(price, vol, liquidity); !ok {
		log.Debug().Str("violation", violation).Msg("filtered")
		return false, RejectFiltered
	}

	if p.verifier != nil && !p.verifier.Verify(ctx, profile.TokenAddress, vol) {
		log.Info().Msg("suspicious volume")
		return false, RejectFakeVolume
	}

	assessment, err := p.assessor.Assess(ctx, profile.TokenAddress)
	if err != nil {
		log.Warn().Err(err).Msg("risk assessment unavailable")
		return false, RejectRiskUnavailable
	}
	if !assessment.IsSafe {
		log.Info().Int("score", assessment.Score).Msg("unsafe")
		return false, RejectUnsafe
	}

	now := p.clock()
	snap := &domain.AssetSnapshot{
		ChainID:        profile.ChainID,
		TokenAddress:   profile.TokenAddress,
		TokenName:      name,
		TokenSymbol:    symbol,
		DexscreenerURL: profile.URL,
		IconURL:        profile.Icon,
		HeaderURL:      profile.Header,
		OpenGraphURL:   profile.OpenGraph,
		Description:    profile.Description,
		Links:          profile.Links,
		PriceUSD:       price,
		LiquidityUSD:   liquidity,
		VolumeUSD:      vol,
		Risk:           &assessment.RiskReport,
		Timestamp:      now,
	}

	wasInserted, err := p.snapshots.Upsert(ctx, snap)
	if err != nil {
		log.Error().Err(err).Msg("snapshot upsert failed")
		return false, RejectStorageFailed
	}

	if err := p.observations.Append(ctx, &domain.Observation{
		ChainID:      snap.ChainID,
		TokenAddress: snap.TokenAddress,
		PriceUSD:     snap.PriceUSD,
		VolumeUSD:    snap.VolumeUSD,
		LiquidityUSD: snap.LiquidityUSD,
		Timestamp:    now,
	}); err != nil {
		// The live row is already committed; losing one history point
		// is not a reject.
		log.Error().Err(err).Msg("observation append failed")
	}

	if wasInserted {
		log.Info().Str("symbol", symbol).Msg("new asset stored")
		p.dispatcher.NewAsset(ctx, snap)
	} else {
		log.Debug().Msg("asset updated in place")
	}

	return wasInserted, ""
}

// selectBestPair picks the pair with the highest parseable non-zero
// USD liquidity; ties keep the first one seen.
func selectBestPair(pairs []*domain.Pair) (*domain.Pair, decimal.Decimal) {
	var best *domain.Pair
	var bestLiq decimal.Decimal

	for _, pair := range pairs {
		if pair == nil || pair.Liquidity == nil {
			continue
		}
		liq, ok := normalize.Metric(pair.Liquidity.USD)
		if !ok || !liq.IsPositive() {
			continue
		}
		if best == nil || liq.GreaterThan(bestLiq) {
			best = pair
			bestLiq = liq
		}
	}
	return best, bestLiq
}

// dedupeProfiles drops repeated asset keys, keeping first occurrence.
func dedupeProfiles(profiles []*domain.AssetProfile) []*domain.AssetProfile {
	seen := make(map[domain.AssetKey]struct{}, len(profiles))
	out := profiles[:0]
	for _, p := range profiles {
		if p == nil || p.TokenAddress == "" {
			continue
		}
		key := p.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
