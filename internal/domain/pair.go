package domain

import "encoding/json"

// PairToken is the token descriptor nested inside a trading pair.
type PairToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// PairVolume holds rolling volume windows. Only H24 is consumed; the
// rest is kept for completeness of the wire format.
type PairVolume struct {
	H24 json.Number `json:"h24"`
	H6  json.Number `json:"h6"`
	H1  json.Number `json:"h1"`
	M5  json.Number `json:"m5"`
}

// PairLiquidity holds pooled liquidity figures.
type PairLiquidity struct {
	USD   json.Number `json:"usd"`
	Base  json.Number `json:"base"`
	Quote json.Number `json:"quote"`
}

// Pair is one trading pair as reported by the market data feed.
// Nested objects may be absent entirely; metric fields arrive as
// JSON numbers or numeric strings and are normalized downstream.
type Pair struct {
	ChainID     string         `json:"chainId"`
	DexID       string         `json:"dexId"`
	URL         string         `json:"url"`
	PairAddress string         `json:"pairAddress"`
	BaseToken   *PairToken     `json:"baseToken"`
	QuoteToken  *PairToken     `json:"quoteToken"`
	PriceUSD    string         `json:"priceUsd"`
	Volume      *PairVolume    `json:"volume"`
	Liquidity   *PairLiquidity `json:"liquidity"`
}
