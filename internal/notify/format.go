package notify

import (
	"fmt"
	"html"
	"strings"

	"dexradar/internal/domain"
	"dexradar/internal/normalize"
)

// SnapshotMessage renders one stored asset as a Telegram HTML message.
// Price keeps its full stored precision; volume and liquidity are
// rounded to cents.
func SnapshotMessage(s *domain.AssetSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>Token:</b> %s (%s)\n",
		html.EscapeString(s.TokenName), html.EscapeString(s.TokenSymbol))
	fmt.Fprintf(&b, "<b>Address:</b> <code>%s</code>\n", html.EscapeString(s.TokenAddress))
	fmt.Fprintf(&b, "<b>Chain:</b> %s\n", html.EscapeString(s.ChainID))
	fmt.Fprintf(&b, "<b>Price:</b> $%s\n", s.PriceUSD.String())
	fmt.Fprintf(&b, "<b>Volume:</b> $%s\n", normalize.FormatMoney(s.VolumeUSD))
	fmt.Fprintf(&b, "<b>Liquidity:</b> $%s\n", normalize.FormatMoney(s.LiquidityUSD))
	fmt.Fprintf(&b, "<b>Risk Level:</b> %s", s.Risk.Level())
	if s.Risk != nil {
		fmt.Fprintf(&b, " (%d)", s.Risk.Score)
	}
	if s.DexscreenerURL != "" {
		fmt.Fprintf(&b, "\n\n<b>Chart:</b> <a href='%s'>View on DexScreener</a>", s.DexscreenerURL)
	}

	return b.String()
}

// PumpMessage renders a detected pump as a Telegram HTML message.
func PumpMessage(sig *domain.PumpSignal) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🚀 <b>Pump:</b> %s (%s)\n",
		html.EscapeString(sig.TokenName), html.EscapeString(sig.TokenSymbol))
	fmt.Fprintf(&b, "<b>Address:</b> <code>%s</code>\n", html.EscapeString(sig.TokenAddress))
	fmt.Fprintf(&b, "<b>Chain:</b> %s\n", html.EscapeString(sig.ChainID))
	fmt.Fprintf(&b, "<b>Price:</b> $%s → $%s (+%.2f%%)\n",
		sig.InitialPrice.String(), sig.CurrentPrice.String(), sig.PriceChangePercent)
	fmt.Fprintf(&b, "<b>Volume:</b> $%s\n", normalize.FormatMoney(sig.VolumeUSD))
	fmt.Fprintf(&b, "<b>Liquidity:</b> $%s\n", normalize.FormatMoney(sig.LiquidityUSD))
	fmt.Fprintf(&b, "<b>Risk Level:</b> %s", sig.RiskLevel)
	if sig.DexscreenerURL != "" {
		fmt.Fprintf(&b, "\n\n<b>Chart:</b> <a href='%s'>View on DexScreener</a>", sig.DexscreenerURL)
	}

	return b.String()
}
