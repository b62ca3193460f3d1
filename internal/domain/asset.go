package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetKey uniquely identifies a tradeable asset across chains.
type AssetKey struct {
	ChainID      string
	TokenAddress string
}

func (k AssetKey) String() string {
	return k.ChainID + ":" + k.TokenAddress
}

// ProfileLink is one external link attached to an asset profile
// (website, socials, docs).
type ProfileLink struct {
	URL   string `json:"url"`
	Type  string `json:"type,omitempty"`
	Label string `json:"label,omitempty"`
}

// AssetProfile is the feed-sourced description of a discovered asset.
// It lives for one cycle only; market metrics come separately from
// pair data, and Name/Symbol may be back-filled from the selected pair.
type AssetProfile struct {
	ChainID      string
	TokenAddress string
	Name         string
	Symbol       string
	URL          string
	Icon         string
	Header       string
	OpenGraph    string
	Description  string
	Links        []ProfileLink
}

// Key returns the asset identity.
func (p *AssetProfile) Key() AssetKey {
	return AssetKey{ChainID: p.ChainID, TokenAddress: p.TokenAddress}
}

// AssetSnapshot is the persisted record of one accepted asset.
// One live row per AssetKey; reappearing assets overwrite the mutable
// fields in place.
type AssetSnapshot struct {
	ChainID        string
	TokenAddress   string
	TokenName      string
	TokenSymbol    string
	DexscreenerURL string
	IconURL        string
	HeaderURL      string
	OpenGraphURL   string
	Description    string
	Links          []ProfileLink

	// Market metrics carry arbitrary precision; newly listed assets
	// routinely trade at sub-cent prices that float64 would truncate.
	PriceUSD     decimal.Decimal
	LiquidityUSD decimal.Decimal
	VolumeUSD    decimal.Decimal

	Risk *RiskReport

	// Timestamp is the last-write time.
	Timestamp time.Time
}

// Key returns the asset identity.
func (s *AssetSnapshot) Key() AssetKey {
	return AssetKey{ChainID: s.ChainID, TokenAddress: s.TokenAddress}
}

// Observation is one append-only history row for an asset. The live
// snapshot row is upserted in place, so trend detection reads these
// instead: every accepted asset appends one observation per cycle.
type Observation struct {
	ChainID      string
	TokenAddress string
	PriceUSD     decimal.Decimal
	VolumeUSD    decimal.Decimal
	LiquidityUSD decimal.Decimal
	Timestamp    time.Time
}

// Key returns the asset identity.
func (o *Observation) Key() AssetKey {
	return AssetKey{ChainID: o.ChainID, TokenAddress: o.TokenAddress}
}
