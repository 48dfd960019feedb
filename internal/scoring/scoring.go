package scoring

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kaiitheguy/stock-fantasy-api/internal/engine"
)

// Entry is one agent's row in the standings table.
type Entry struct {
	AgentID       int             `json:"agent_id"`
	Rank          int             `json:"rank"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	PnLPct        decimal.Decimal `json:"pnl_pct"`
	PortfolioVal  decimal.Decimal `json:"portfolio_value"`
	WinRate       decimal.Decimal `json:"win_rate"`
	TradesClosed  int             `json:"trades_closed"`
	OpenPositions int             `json:"open_positions"`
	Stale         bool            `json:"stale"`
}

var hundred = decimal.NewFromInt(100)

// Score produces a ranked standings table from the agents' replayed
// accounts and a price snapshot. The computation is a pure function of
// its inputs: the same ledger and the same snapshot always produce the
// same table, byte for byte.
//
// A ticker missing from the snapshot contributes zero unrealized PnL
// and marks the row stale rather than failing the whole run.
func Score(accounts map[int]engine.Account, prices map[string]decimal.Decimal) []Entry {
	entries := make([]Entry, 0, len(accounts))
	for id, acct := range accounts {
		entries = append(entries, scoreOne(id, acct, prices))
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.TotalPnL.Equal(b.TotalPnL) {
			return a.TotalPnL.GreaterThan(b.TotalPnL)
		}
		if !a.PnLPct.Equal(b.PnLPct) {
			return a.PnLPct.GreaterThan(b.PnLPct)
		}
		return a.AgentID < b.AgentID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func scoreOne(id int, acct engine.Account, prices map[string]decimal.Decimal) Entry {
	e := Entry{
		AgentID:       id,
		RealizedPnL:   acct.RealizedPnL,
		TradesClosed:  len(acct.Closed),
		OpenPositions: acct.OpenPositionCount(),
	}

	unrealized := decimal.Zero
	marketValue := decimal.Zero
	for ticker, lots := range acct.Lots {
		price, ok := prices[ticker]
		if !ok {
			e.Stale = true
			continue
		}
		for _, lot := range lots {
			qty := decimal.NewFromInt(lot.Quantity)
			unrealized = unrealized.Add(price.Sub(lot.EntryPrice).Mul(qty))
			marketValue = marketValue.Add(price.Mul(qty))
		}
	}

	e.UnrealizedPnL = unrealized
	e.TotalPnL = acct.RealizedPnL.Add(unrealized)
	e.PortfolioVal = acct.Cash.Add(marketValue)
	if acct.StartingCapital.IsPositive() {
		e.PnLPct = e.TotalPnL.Div(acct.StartingCapital).Mul(hundred).Round(4)
	}
	e.WinRate = winRate(acct.Closed)
	return e
}

// winRate counts each closed FIFO portion as one round trip. A flat
// exit is a win: only realized losses count against the rate.
func winRate(closed []engine.ClosedLot) decimal.Decimal {
	if len(closed) == 0 {
		return decimal.Zero
	}
	wins := 0
	for _, c := range closed {
		if !c.PnL.IsNegative() {
			wins++
		}
	}
	return decimal.NewFromInt(int64(wins)).
		Div(decimal.NewFromInt(int64(len(closed)))).
		Round(4)
}
