package domain

import "github.com/shopspring/decimal"

// PumpSignal flags an asset whose price rose past the configured
// threshold within the lookback window.
type PumpSignal struct {
	ChainID            string
	TokenAddress       string
	TokenName          string
	TokenSymbol        string
	DexscreenerURL     string
	InitialPrice       decimal.Decimal
	CurrentPrice       decimal.Decimal
	PriceChangePercent float64
	VolumeUSD          decimal.Decimal
	LiquidityUSD       decimal.Decimal
	RiskLevel          RiskLevel
}

// Key returns the asset identity.
func (p *PumpSignal) Key() AssetKey {
	return AssetKey{ChainID: p.ChainID, TokenAddress: p.TokenAddress}
}
