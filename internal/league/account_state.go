package league

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kaiitheguy/stock-fantasy-api/internal/engine"
	"github.com/kaiitheguy/stock-fantasy-api/internal/market"
)

// renderAccountState formats an agent's account for its prompt. Tickers
// are sorted so the text is stable for the same account.
func renderAccountState(acct engine.Account, prices market.PriceSnapshot) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Cash: $%s\n", acct.Cash.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Positions (%d open):\n", acct.OpenPositionCount()))

	tickers := make([]string, 0, len(acct.Lots))
	for t := range acct.Lots {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	if len(tickers) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, t := range tickers {
		qty := acct.HeldQuantity(t)
		cost := avgCost(acct.Lots[t])
		line := fmt.Sprintf("  %s: %d shares @ $%s avg cost", t, qty, cost.StringFixed(2))
		if price, ok := prices[t]; ok && cost.IsPositive() {
			pct := price.Sub(cost).Div(cost).Mul(decimal.NewFromInt(100))
			line += fmt.Sprintf(", now $%s (%s%%)", price.StringFixed(2), pct.StringFixed(2))
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString(fmt.Sprintf("Realized PnL: $%s", acct.RealizedPnL.StringFixed(2)))
	return sb.String()
}

func avgCost(lots []engine.Lot) decimal.Decimal {
	totalQty := decimal.Zero
	totalCost := decimal.Zero
	for _, l := range lots {
		qty := decimal.NewFromInt(l.Quantity)
		totalQty = totalQty.Add(qty)
		totalCost = totalCost.Add(l.EntryPrice.Mul(qty))
	}
	if totalQty.IsZero() {
		return decimal.Zero
	}
	return totalCost.Div(totalQty)
}
