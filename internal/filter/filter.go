// Package filter provides the stateless predicate set applied to an
// asset's market metrics before risk assessment.
package filter

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config bounds accepted market metrics. The zero value accepts
// everything with data present: min bounds default to 0 and an unset
// MaxPriceUSD means unbounded.
type Config struct {
	MinPriceUSD     decimal.Decimal
	MaxPriceUSD     decimal.Decimal // zero means no upper bound
	MinVolumeUSD    decimal.Decimal
	MinLiquidityUSD decimal.Decimal
}

// Present reports whether a normalized metric carries usable data.
// Exactly zero is treated as absent: venues report 0 for pairs they
// have no data on yet, so zero is indistinguishable from missing.
func Present(d decimal.Decimal, ok bool) bool {
	return ok && d.Sign() > 0
}

// Evaluator applies a Config to asset metrics.
type Evaluator struct {
	cfg Config
}

// NewEvaluator creates an Evaluator for the given bounds.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Passes checks price against [MinPriceUSD, MaxPriceUSD], volume
// against MinVolumeUSD and liquidity against MinLiquidityUSD. All three
// must hold. The returned violation names the first failed bound for
// diagnostics; it is empty when the asset passes.
//
// Callers are expected to have run the Present pre-check already; a
// zero metric here fails its minimum only if that minimum is positive.
func (e *Evaluator) Passes(price, volume, liquidity decimal.Decimal) (bool, string) {
	if price.LessThan(e.cfg.MinPriceUSD) {
		return false, fmt.Sprintf("price %s below minimum %s", price, e.cfg.MinPriceUSD)
	}
	if !e.cfg.MaxPriceUSD.IsZero() && price.GreaterThan(e.cfg.MaxPriceUSD) {
		return false, fmt.Sprintf("price %s above maximum %s", price, e.cfg.MaxPriceUSD)
	}
	if volume.LessThan(e.cfg.MinVolumeUSD) {
		return false, fmt.Sprintf("volume %s below minimum %s", volume, e.cfg.MinVolumeUSD)
	}
	if liquidity.LessThan(e.cfg.MinLiquidityUSD) {
		return false, fmt.Sprintf("liquidity %s below minimum %s", liquidity, e.cfg.MinLiquidityUSD)
	}
	return true, ""
}
