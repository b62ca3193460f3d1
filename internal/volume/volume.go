// Package volume decides whether an asset's reported trading volume is
// trustworthy, via a local threshold check and an optional external
// authenticity service.
package volume

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AuthenticityChecker is the external volume verification capability.
type AuthenticityChecker interface {
	// VerifyVolumeAuthenticity reports whether the token's volume is
	// genuine. Any transport or decode failure counts as not authentic.
	VerifyVolumeAuthenticity(ctx context.Context, tokenAddress string) bool
}

// Verifier runs the configured volume checks in order: internal
// threshold first, then the external checker when present.
type Verifier struct {
	useInternal bool
	threshold   decimal.Decimal
	checker     AuthenticityChecker
	log         zerolog.Logger
}

// VerifierOptions configures a Verifier.
type VerifierOptions struct {
	// UseInternal enables the local minimum-volume check.
	UseInternal bool

	// FakeVolumeThreshold is the minimum USD volume considered
	// non-fake by the internal check.
	FakeVolumeThreshold decimal.Decimal

	// Checker is the optional external authenticity service; nil
	// disables the external check.
	Checker AuthenticityChecker

	Logger zerolog.Logger
}

// NewVerifier creates a new Verifier.
func NewVerifier(opts VerifierOptions) *Verifier {
	return &Verifier{
		useInternal: opts.UseInternal,
		threshold:   opts.FakeVolumeThreshold,
		checker:     opts.Checker,
		log:         opts.Logger,
	}
}

// Verify runs all enabled checks for one asset.
func (v *Verifier) Verify(ctx context.Context, tokenAddress string, volumeUSD decimal.Decimal) bool {
	if v.useInternal && volumeUSD.LessThan(v.threshold) {
		v.log.Info().
			Str("token_address", tokenAddress).
			Str("volume_usd", volumeUSD.String()).
			Str("threshold", v.threshold.String()).
			Msg("volume below fake-volume threshold")
		return false
	}

	if v.checker != nil && !v.checker.VerifyVolumeAuthenticity(ctx, tokenAddress) {
		v.log.Info().
			Str("token_address", tokenAddress).
			Msg("external check flagged suspicious volume")
		return false
	}

	return true
}
