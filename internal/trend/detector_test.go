package trend

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dexradar/internal/domain"
	"dexradar/internal/storage/memory"
)

var testNow = time.Unix(1700000000, 0).UTC()

func appendObs(t *testing.T, store *memory.ObservationStore, addr, price string, at time.Time) {
	t.Helper()
	err := store.Append(context.Background(), &domain.Observation{
		ChainID:      "solana",
		TokenAddress: addr,
		PriceUSD:     decimal.RequireFromString(price),
		VolumeUSD:    decimal.NewFromInt(50000),
		LiquidityUSD: decimal.NewFromInt(10000),
		Timestamp:    at,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func newDetector(obs *memory.ObservationStore, mod func(*Options)) *Detector {
	opts := Options{
		Observations: obs,
		Clock:        func() time.Time { return testNow },
	}
	if mod != nil {
		mod(&opts)
	}
	return NewDetector(opts)
}

func TestDetect_FlagsSixtyPercentIncrease(t *testing.T) {
	obs := memory.NewObservationStore()
	appendObs(t, obs, "mint-1", "1.00", testNow.Add(-2*time.Hour))
	appendObs(t, obs, "mint-1", "1.60", testNow.Add(-1*time.Hour))

	signals, err := newDetector(obs, nil).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("got %d signals, want 1", len(signals))
	}
	if math.Abs(signals[0].PriceChangePercent-60.0) > 1e-9 {
		t.Errorf("PriceChangePercent = %v, want 60.0", signals[0].PriceChangePercent)
	}
	if !signals[0].InitialPrice.Equal(decimal.RequireFromString("1.00")) ||
		!signals[0].CurrentPrice.Equal(decimal.RequireFromString("1.60")) {
		t.Errorf("prices = %s → %s", signals[0].InitialPrice, signals[0].CurrentPrice)
	}
}

func TestDetect_SingleObservationSkipped(t *testing.T) {
	obs := memory.NewObservationStore()
	appendObs(t, obs, "mint-1", "1.00", testNow.Add(-1*time.Hour))

	signals, err := newDetector(obs, nil).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("got %d signals, want 0", len(signals))
	}
}

func TestDetect_BelowThresholdSkipped(t *testing.T) {
	obs := memory.NewObservationStore()
	appendObs(t, obs, "mint-1", "1.00", testNow.Add(-2*time.Hour))
	appendObs(t, obs, "mint-1", "1.40", testNow.Add(-1*time.Hour))

	signals, err := newDetector(obs, nil).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("40%% increase under default 50%% threshold: got %d signals", len(signals))
	}
}

func TestDetect_FirstVsLastNotMinMax(t *testing.T) {
	obs := memory.NewObservationStore()
	// Spike in the middle must not be used; first vs last is only +10%.
	appendObs(t, obs, "mint-1", "1.00", testNow.Add(-3*time.Hour))
	appendObs(t, obs, "mint-1", "5.00", testNow.Add(-2*time.Hour))
	appendObs(t, obs, "mint-1", "1.10", testNow.Add(-1*time.Hour))

	signals, err := newDetector(obs, nil).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("got %d signals, want 0", len(signals))
	}
}

func TestDetect_ZeroFirstPriceSkipped(t *testing.T) {
	obs := memory.NewObservationStore()
	appendObs(t, obs, "mint-1", "0", testNow.Add(-2*time.Hour))
	appendObs(t, obs, "mint-1", "1.00", testNow.Add(-1*time.Hour))

	signals, err := newDetector(obs, nil).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("got %d signals, want 0", len(signals))
	}
}

func TestDetect_OutsideLookbackIgnored(t *testing.T) {
	obs := memory.NewObservationStore()
	appendObs(t, obs, "mint-1", "1.00", testNow.Add(-7*time.Hour))
	appendObs(t, obs, "mint-1", "2.00", testNow.Add(-1*time.Hour))

	signals, err := newDetector(obs, nil).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	// The old observation fell out of the 6h window, leaving one.
	if len(signals) != 0 {
		t.Errorf("got %d signals, want 0", len(signals))
	}
}

func TestDetect_MinVolumeApplied(t *testing.T) {
	obs := memory.NewObservationStore()
	appendObs(t, obs, "mint-1", "1.00", testNow.Add(-2*time.Hour))
	appendObs(t, obs, "mint-1", "2.00", testNow.Add(-1*time.Hour))

	d := newDetector(obs, func(o *Options) {
		o.MinVolumeUSD = decimal.NewFromInt(100000)
	})
	signals, err := d.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("volume 50000 under min 100000: got %d signals", len(signals))
	}
}

func TestDetect_SortedByChangeDescending(t *testing.T) {
	obs := memory.NewObservationStore()
	appendObs(t, obs, "mint-a", "1.00", testNow.Add(-2*time.Hour))
	appendObs(t, obs, "mint-a", "1.60", testNow.Add(-1*time.Hour))
	appendObs(t, obs, "mint-b", "1.00", testNow.Add(-2*time.Hour))
	appendObs(t, obs, "mint-b", "3.00", testNow.Add(-1*time.Hour))

	signals, err := newDetector(obs, nil).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("got %d signals, want 2", len(signals))
	}
	if signals[0].TokenAddress != "mint-b" || signals[1].TokenAddress != "mint-a" {
		t.Errorf("order = [%s %s], want [mint-b mint-a]",
			signals[0].TokenAddress, signals[1].TokenAddress)
	}
}

func TestDetect_EnrichesFromSnapshot(t *testing.T) {
	obs := memory.NewObservationStore()
	appendObs(t, obs, "mint-1", "1.00", testNow.Add(-2*time.Hour))
	appendObs(t, obs, "mint-1", "2.00", testNow.Add(-1*time.Hour))

	snaps := memory.NewSnapshotStore()
	_, err := snaps.Upsert(context.Background(), &domain.AssetSnapshot{
		ChainID:        "solana",
		TokenAddress:   "mint-1",
		TokenName:      "Foo",
		TokenSymbol:    "FOO",
		DexscreenerURL: "https://dexscreener.com/solana/mint-1",
		Risk:           &domain.RiskReport{Score: 100},
		Timestamp:      testNow,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	d := newDetector(obs, func(o *Options) {
		o.Snapshots = snaps
	})
	signals, err := d.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("got %d signals, want 1", len(signals))
	}
	sig := signals[0]
	if sig.TokenSymbol != "FOO" || sig.RiskLevel != domain.RiskLevelLow {
		t.Errorf("enriched signal = %+v", sig)
	}
}
