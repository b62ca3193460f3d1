// Package trend scans recent metric history for assets whose price
// moved sharply within the lookback window.
package trend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

// Default detection parameters.
const (
	DefaultLookback         = 6 * time.Hour
	DefaultMinPriceIncrease = 50.0
)

// Detector flags pumped assets from stored observations. It is
// read-only over persisted state.
type Detector struct {
	observations storage.ObservationStore
	snapshots    storage.SnapshotStore
	lookback     time.Duration
	minIncrease  float64
	minVolume    decimal.Decimal
	clock        func() time.Time
	log          zerolog.Logger
}

// Options configures a Detector.
type Options struct {
	Observations storage.ObservationStore

	// Snapshots enriches signals with name, symbol, chart URL and the
	// current risk level. Optional; nil leaves those fields empty.
	Snapshots storage.SnapshotStore

	// Lookback window. Zero means 6h.
	Lookback time.Duration

	// MinPriceIncreasePercent to flag. Zero means 50.
	MinPriceIncreasePercent float64

	// MinVolumeUSD required on the latest observation.
	MinVolumeUSD decimal.Decimal

	// Clock overrides time.Now, for tests.
	Clock func() time.Time

	Logger zerolog.Logger
}

// NewDetector creates a new Detector.
func NewDetector(opts Options) *Detector {
	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	minIncrease := opts.MinPriceIncreasePercent
	if minIncrease <= 0 {
		minIncrease = DefaultMinPriceIncrease
	}
	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Detector{
		observations: opts.Observations,
		snapshots:    opts.Snapshots,
		lookback:     lookback,
		minIncrease:  minIncrease,
		minVolume:    opts.MinVolumeUSD,
		clock:        clock,
		log:          opts.Logger,
	}
}

// Detect compares the chronologically first and last observations per
// asset within the lookback window and returns flagged assets sorted
// by price change descending.
func (d *Detector) Detect(ctx context.Context) ([]*domain.PumpSignal, error) {
	now := d.clock()
	observations, err := d.observations.GetByTimeRange(ctx, now.Add(-d.lookback), now)
	if err != nil {
		return nil, fmt.Errorf("load observation window: %w", err)
	}

	// Observations arrive timestamp ASC, so per-key order is
	// chronological.
	byKey := make(map[domain.AssetKey][]*domain.Observation)
	var order []domain.AssetKey
	for _, o := range observations {
		key := o.Key()
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], o)
	}

	var signals []*domain.PumpSignal
	for _, key := range order {
		history := byKey[key]
		if len(history) < 2 {
			continue
		}

		first, last := history[0], history[len(history)-1]
		if first.PriceUSD.Sign() <= 0 {
			continue
		}

		change, _ := last.PriceUSD.Sub(first.PriceUSD).
			Div(first.PriceUSD).
			Mul(decimal.NewFromInt(100)).
			Float64()
		if change < d.minIncrease || last.VolumeUSD.LessThan(d.minVolume) {
			continue
		}

		sig := &domain.PumpSignal{
			ChainID:            key.ChainID,
			TokenAddress:       key.TokenAddress,
			InitialPrice:       first.PriceUSD,
			CurrentPrice:       last.PriceUSD,
			PriceChangePercent: change,
			VolumeUSD:          last.VolumeUSD,
			LiquidityUSD:       last.LiquidityUSD,
			RiskLevel:          domain.RiskLevelUnknown,
		}
		d.enrich(ctx, sig)

		d.log.Info().
			Str("asset", key.String()).
			Float64("price_change_percent", change).
			Msg("pump detected")
		signals = append(signals, sig)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].PriceChangePercent > signals[j].PriceChangePercent
	})
	return signals, nil
}

// enrich fills display fields from the live snapshot row when present.
func (d *Detector) enrich(ctx context.Context, sig *domain.PumpSignal) {
	if d.snapshots == nil {
		return
	}
	snap, err := d.snapshots.GetByKey(ctx, sig.Key())
	if err != nil {
		return
	}
	sig.TokenName = snap.TokenName
	sig.TokenSymbol = snap.TokenSymbol
	sig.DexscreenerURL = snap.DexscreenerURL
	sig.RiskLevel = snap.Risk.Level()
}
