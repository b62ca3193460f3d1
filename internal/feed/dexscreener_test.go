package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) (*DexScreenerClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewDexScreenerClient(
		WithBaseURL(server.URL),
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond),
	)
	return client, server
}

func TestLatestProfiles_Array(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token-profiles/latest/v1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"chainId":"solana","tokenAddress":"mint-1","url":"https://dexscreener.com/solana/mint-1",
			 "icon":"https://cdn/icon.png","description":"a token",
			 "links":[{"type":"twitter","url":"https://x.com/a"}]},
			{"chainId":"bsc","tokenAddress":"0xabc"}
		]`))
	}))

	profiles, err := client.LatestProfiles(context.Background())
	if err != nil {
		t.Fatalf("LatestProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}
	if profiles[0].ChainID != "solana" || profiles[0].TokenAddress != "mint-1" {
		t.Errorf("profile[0] = %+v", profiles[0])
	}
	if len(profiles[0].Links) != 1 || profiles[0].Links[0].Type != "twitter" {
		t.Errorf("links = %+v", profiles[0].Links)
	}
}

func TestLatestProfiles_SingleObject(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chainId":"solana","tokenAddress":"mint-1"}`))
	}))

	profiles, err := client.LatestProfiles(context.Background())
	if err != nil {
		t.Fatalf("LatestProfiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].TokenAddress != "mint-1" {
		t.Fatalf("profiles = %+v", profiles)
	}
}

func TestLatestProfiles_Null(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}))

	profiles, err := client.LatestProfiles(context.Background())
	if err != nil {
		t.Fatalf("LatestProfiles: %v", err)
	}
	if len(profiles) != 0 {
		t.Fatalf("got %d profiles, want 0", len(profiles))
	}
}

func TestPairsFor_BareArray(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token-pairs/v1/solana/mint-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"chainId":"solana","pairAddress":"pair-1","priceUsd":"0.000012",
			 "baseToken":{"name":"Foo","symbol":"FOO"},
			 "volume":{"h24":12345.67},"liquidity":{"usd":8900}}
		]`))
	}))

	pairs, err := client.PairsFor(context.Background(), "solana", "mint-1")
	if err != nil {
		t.Fatalf("PairsFor: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	p := pairs[0]
	if p.PriceUSD != "0.000012" {
		t.Errorf("PriceUSD = %q", p.PriceUSD)
	}
	if p.BaseToken == nil || p.BaseToken.Symbol != "FOO" {
		t.Errorf("BaseToken = %+v", p.BaseToken)
	}
	if p.Volume == nil || p.Volume.H24.String() != "12345.67" {
		t.Errorf("Volume = %+v", p.Volume)
	}
	if p.Liquidity == nil || p.Liquidity.USD.String() != "8900" {
		t.Errorf("Liquidity = %+v", p.Liquidity)
	}
}

func TestPairsFor_WrappedObject(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[{"pairAddress":"pair-1","priceUsd":"1.5"}]}`))
	}))

	pairs, err := client.PairsFor(context.Background(), "solana", "mint-1")
	if err != nil {
		t.Fatalf("PairsFor: %v", err)
	}
	if len(pairs) != 1 || pairs[0].PairAddress != "pair-1" {
		t.Fatalf("pairs = %+v", pairs)
	}
}

func TestPairsFor_MissingNestedFields(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"pairAddress":"pair-1"}]`))
	}))

	pairs, err := client.PairsFor(context.Background(), "solana", "mint-1")
	if err != nil {
		t.Fatalf("PairsFor: %v", err)
	}
	if pairs[0].BaseToken != nil || pairs[0].Volume != nil || pairs[0].Liquidity != nil {
		t.Errorf("expected nil nested fields, got %+v", pairs[0])
	}
}

func TestGet_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[]`))
	}))

	_, err := client.LatestProfiles(context.Background())
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("got %d calls, want 3", calls.Load())
	}
}

func TestGet_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.LatestProfiles(context.Background())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls.Load() != 3 {
		t.Errorf("got %d calls, want 3 (1 initial + 2 retries)", calls.Load())
	}
}
