package market

import (
	"fmt"
	"strings"
)

// RenderContext formats the round's market view as the plain-text block
// handed to every model. Symbols keep the configured order so prompts
// stay byte-stable across agents within one round.
func RenderContext(symbols []string, quotes map[string]Quote, reports map[string]IndicatorReport) string {
	var sb strings.Builder
	for _, sym := range symbols {
		q, ok := quotes[sym]
		if !ok {
			sb.WriteString(fmt.Sprintf("%s: no data\n", sym))
			continue
		}
		price, _ := q.Price.Float64()
		sb.WriteString(fmt.Sprintf("%s: $%.2f (%+.2f%%)", sym, price, q.ChangePct))
		if rep, ok := reports[sym]; ok && rep.Count > 0 {
			if rep.RSI14 > 0 {
				sb.WriteString(fmt.Sprintf(" RSI14=%.1f", rep.RSI14))
			}
			if rep.EMA50 > 0 {
				sb.WriteString(fmt.Sprintf(" EMA50=%.2f", rep.EMA50))
			}
			if rep.EMA200 > 0 {
				sb.WriteString(fmt.Sprintf(" EMA200=%.2f", rep.EMA200))
			}
			if rep.MACD != 0 || rep.MACDSig != 0 {
				sb.WriteString(fmt.Sprintf(" MACD=%.3f/%.3f", rep.MACD, rep.MACDSig))
			}
			if rep.Trend != "" {
				sb.WriteString(" " + rep.Trend)
			}
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
