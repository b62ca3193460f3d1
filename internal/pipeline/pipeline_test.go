package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dexradar/internal/domain"
	"dexradar/internal/filter"
	"dexradar/internal/notify"
	"dexradar/internal/risk"
	"dexradar/internal/storage/memory"
)

// Valid on-curve Solana mint (wrapped SOL), used so address validation
// passes in tests.
const testMint = "So11111111111111111111111111111111111111112"

type fakeFeed struct {
	profiles    []*domain.AssetProfile
	boosted     []*domain.AssetProfile
	pairs       map[string][]*domain.Pair
	profilesErr error
}

func (f *fakeFeed) LatestProfiles(ctx context.Context) ([]*domain.AssetProfile, error) {
	return f.profiles, f.profilesErr
}

func (f *fakeFeed) LatestBoostedTokens(ctx context.Context) ([]*domain.AssetProfile, error) {
	return f.boosted, nil
}

func (f *fakeFeed) PairsFor(ctx context.Context, chainID, tokenAddress string) ([]*domain.Pair, error) {
	return f.pairs[tokenAddress], nil
}

type fakeRiskClient struct {
	report *domain.RiskReport
	err    error
}

func (f *fakeRiskClient) Report(ctx context.Context, tokenAddress string) (*domain.RiskReport, error) {
	return f.report, f.err
}

type recordingNotifier struct {
	sent []string
}

func (r *recordingNotifier) Send(ctx context.Context, text string) error {
	r.sent = append(r.sent, text)
	return nil
}

func testProfile() *domain.AssetProfile {
	return &domain.AssetProfile{
		ChainID:      "solana",
		TokenAddress: testMint,
		URL:          "https://dexscreener.com/solana/" + testMint,
		Description:  "a token",
	}
}

func testPair(priceUSD string, volume, liquidity float64) *domain.Pair {
	return &domain.Pair{
		ChainID:   "solana",
		BaseToken: &domain.PairToken{Name: "Foo Token", Symbol: "FOO"},
		PriceUSD:  priceUSD,
		Volume:    &domain.PairVolume{H24: jsonNumber(volume)},
		Liquidity: &domain.PairLiquidity{USD: jsonNumber(liquidity)},
	}
}

func jsonNumber(v float64) json.Number {
	b, _ := json.Marshal(v)
	return json.Number(b)
}

type fixture struct {
	feed      *fakeFeed
	riskc     *fakeRiskClient
	notifier  *recordingNotifier
	snapshots *memory.SnapshotStore
	obs       *memory.ObservationStore
}

func newPipeline(t *testing.T, fx *fixture, mod func(*Options)) *Pipeline {
	t.Helper()

	opts := Options{
		Feed:   fx.feed,
		Filter: filter.NewEvaluator(filter.Config{}),
		Assessor: risk.NewAssessor(risk.AssessorOptions{
			Client: fx.riskc,
		}),
		Snapshots:    fx.snapshots,
		Observations: fx.obs,
		Dispatcher: notify.NewDispatcher(notify.DispatcherOptions{
			Notifier: fx.notifier,
		}),
		Clock: func() time.Time { return time.Unix(1700000000, 0).UTC() },
	}
	if mod != nil {
		mod(&opts)
	}
	return New(opts)
}

func newFixture() *fixture {
	return &fixture{
		feed: &fakeFeed{
			profiles: []*domain.AssetProfile{testProfile()},
			pairs: map[string][]*domain.Pair{
				testMint: {testPair("0.000000123456789", 50000, 12000)},
			},
		},
		riskc:     &fakeRiskClient{report: &domain.RiskReport{Score: 100}},
		notifier:  &recordingNotifier{},
		snapshots: memory.NewSnapshotStore(),
		obs:       memory.NewObservationStore(),
	}
}

func TestRun_StoresNewAssetAndNotifies(t *testing.T) {
	fx := newFixture()
	p := newPipeline(t, fx, nil)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats != (CycleStats{Processed: 1, Stored: 1}) {
		t.Errorf("stats = %+v", stats)
	}

	snap, err := fx.snapshots.GetByKey(context.Background(), domain.AssetKey{
		ChainID: "solana", TokenAddress: testMint,
	})
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	// Name and symbol back-filled from the selected pair.
	if snap.TokenName != "Foo Token" || snap.TokenSymbol != "FOO" {
		t.Errorf("name/symbol = %q/%q", snap.TokenName, snap.TokenSymbol)
	}
	if !snap.PriceUSD.Equal(decimal.RequireFromString("0.000000123456789")) {
		t.Errorf("price = %s", snap.PriceUSD)
	}
	if snap.Risk == nil || snap.Risk.Score != 100 {
		t.Errorf("risk = %+v", snap.Risk)
	}

	if len(fx.notifier.sent) != 1 || !strings.Contains(fx.notifier.sent[0], "New token found") {
		t.Errorf("notifications = %v", fx.notifier.sent)
	}

	obs, err := fx.obs.GetByTimeRange(context.Background(),
		time.Unix(0, 0), time.Unix(2000000000, 0))
	if err != nil {
		t.Fatalf("GetByTimeRange: %v", err)
	}
	if len(obs) != 1 {
		t.Errorf("got %d observations, want 1", len(obs))
	}
}

func TestRun_SecondPassUpdatesWithoutNotification(t *testing.T) {
	fx := newFixture()
	p := newPipeline(t, fx, nil)
	ctx := context.Background()

	if _, err := p.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	stats, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if stats != (CycleStats{Processed: 1, Updated: 1}) {
		t.Errorf("second-pass stats = %+v", stats)
	}
	if len(fx.notifier.sent) != 1 {
		t.Errorf("got %d notifications, want 1 (no alert on update)", len(fx.notifier.sent))
	}

	recent, err := fx.snapshots.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("got %d rows, want 1 (update in place)", len(recent))
	}
}

func TestRun_ZeroLiquidityRejected(t *testing.T) {
	fx := newFixture()
	fx.feed.pairs[testMint] = []*domain.Pair{
		testPair("0.5", 1000, 0),
		testPair("0.5", 1000, 0),
	}
	p := newPipeline(t, fx, nil)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats != (CycleStats{Processed: 1, Filtered: 1}) {
		t.Errorf("stats = %+v", stats)
	}
	if len(fx.notifier.sent) != 0 {
		t.Errorf("unexpected notifications: %v", fx.notifier.sent)
	}
}

func TestRun_NoPairs(t *testing.T) {
	fx := newFixture()
	fx.feed.pairs = map[string][]*domain.Pair{}
	p := newPipeline(t, fx, nil)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats != (CycleStats{Processed: 1, Filtered: 1}) {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRun_BestLiquidityPairWins(t *testing.T) {
	fx := newFixture()
	low := testPair("0.10", 1000, 500)
	high := testPair("0.20", 2000, 9000)
	high.BaseToken.Symbol = "HIGH"
	fx.feed.pairs[testMint] = []*domain.Pair{low, high}
	p := newPipeline(t, fx, nil)
	ctx := context.Background()

	if _, err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap, err := fx.snapshots.GetByKey(ctx, domain.AssetKey{ChainID: "solana", TokenAddress: testMint})
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if snap.TokenSymbol != "HIGH" || !snap.LiquidityUSD.Equal(decimal.NewFromInt(9000)) {
		t.Errorf("selected pair: symbol=%q liquidity=%s", snap.TokenSymbol, snap.LiquidityUSD)
	}
}

func TestRun_BlacklistedCoinSkipped(t *testing.T) {
	fx := newFixture()
	p := newPipeline(t, fx, func(o *Options) {
		o.CoinBlacklist = []string{testMint}
	})

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats != (CycleStats{Processed: 1, Filtered: 1}) {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRun_InvalidAddressRejected(t *testing.T) {
	fx := newFixture()
	fx.feed.profiles[0].TokenAddress = "not-a-mint"
	fx.feed.pairs["not-a-mint"] = []*domain.Pair{testPair("0.5", 1000, 5000)}
	p := newPipeline(t, fx, nil)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats != (CycleStats{Processed: 1, Filtered: 1}) {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRun_RiskOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		report *domain.RiskReport
		err    error
	}{
		{name: "unavailable", err: risk.ErrUnavailable},
		{name: "unsafe", report: &domain.RiskReport{Score: 1500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture()
			fx.riskc.report = tt.report
			fx.riskc.err = tt.err
			p := newPipeline(t, fx, nil)

			stats, err := p.Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if stats != (CycleStats{Processed: 1, Filtered: 1}) {
				t.Errorf("stats = %+v", stats)
			}
			if _, err := fx.snapshots.GetByKey(context.Background(), domain.AssetKey{
				ChainID: "solana", TokenAddress: testMint,
			}); err == nil {
				t.Error("asset must not be stored")
			}
		})
	}
}

func TestRun_FilterBoundsApplied(t *testing.T) {
	fx := newFixture()
	p := newPipeline(t, fx, func(o *Options) {
		o.Filter = filter.NewEvaluator(filter.Config{
			MinLiquidityUSD: decimal.NewFromInt(50000),
		})
	})

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats != (CycleStats{Processed: 1, Filtered: 1}) {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRun_FeedFailureAbortsCycle(t *testing.T) {
	fx := newFixture()
	fx.feed.profilesErr = errors.New("feed down")
	p := newPipeline(t, fx, nil)

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected cycle-level failure")
	}
}

func TestRun_BoostedTokensMergedAndDeduped(t *testing.T) {
	fx := newFixture()
	fx.feed.boosted = []*domain.AssetProfile{
		testProfile(), // duplicate of the main feed entry
	}
	p := newPipeline(t, fx, func(o *Options) {
		o.IncludeBoosted = true
	})

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Processed != 1 {
		t.Errorf("Processed = %d, want 1 after dedupe", stats.Processed)
	}
}
