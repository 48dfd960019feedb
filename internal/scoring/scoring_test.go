package scoring

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiitheguy/stock-fantasy-api/internal/engine"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func accountWith(capital string, realized string, lots ...engine.Lot) engine.Account {
	acct := engine.NewAccount(dec(capital))
	acct.RealizedPnL = dec(realized)
	for _, lot := range lots {
		cost := lot.EntryPrice.Mul(decimal.NewFromInt(lot.Quantity))
		acct.Cash = acct.Cash.Sub(cost)
		acct.Lots[lot.Ticker] = append(acct.Lots[lot.Ticker], lot)
	}
	return acct
}

func lot(ticker string, qty int64, entry string) engine.Lot {
	return engine.Lot{Ticker: ticker, Quantity: qty, EntryPrice: dec(entry), EntryTime: time.Now()}
}

func TestScore_RanksByTotalPnL(t *testing.T) {
	accounts := map[int]engine.Account{
		1: accountWith("10000", "100"),
		2: accountWith("10000", "500"),
		3: accountWith("10000", "-50"),
	}
	entries := Score(accounts, nil)

	require.Len(t, entries, 3)
	assert.Equal(t, []int{2, 1, 3}, []int{entries[0].AgentID, entries[1].AgentID, entries[2].AgentID})
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestScore_UnrealizedFromSnapshot(t *testing.T) {
	accounts := map[int]engine.Account{
		1: accountWith("10000", "0", lot("AAPL", 10, "100")),
	}
	prices := map[string]decimal.Decimal{"AAPL": dec("130")}
	entries := Score(accounts, prices)

	require.Len(t, entries, 1)
	e := entries[0]
	assert.True(t, e.UnrealizedPnL.Equal(dec("300")), "got %s", e.UnrealizedPnL)
	assert.True(t, e.TotalPnL.Equal(dec("300")))
	// 9000 cash + 1300 market value
	assert.True(t, e.PortfolioVal.Equal(dec("10300")))
	assert.True(t, e.PnLPct.Equal(dec("3")), "got %s", e.PnLPct)
	assert.False(t, e.Stale)
}

func TestScore_MissingPriceMarksStale(t *testing.T) {
	accounts := map[int]engine.Account{
		1: accountWith("10000", "0", lot("AAPL", 10, "100"), lot("MSFT", 2, "200")),
	}
	prices := map[string]decimal.Decimal{"AAPL": dec("110")}
	entries := Score(accounts, prices)

	e := entries[0]
	assert.True(t, e.Stale)
	// MSFT contributes zero, AAPL contributes 100
	assert.True(t, e.UnrealizedPnL.Equal(dec("100")))
}

func TestScore_TieBreaks(t *testing.T) {
	// same total pnl, different starting capital -> pnl_pct decides
	rich := accountWith("20000", "200")
	poor := accountWith("10000", "200")
	entries := Score(map[int]engine.Account{1: rich, 2: poor}, nil)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[0].AgentID, "higher pnl_pct wins the tie")

	// identical on both keys -> lower agent id first
	entries = Score(map[int]engine.Account{
		9: accountWith("10000", "0"),
		4: accountWith("10000", "0"),
		7: accountWith("10000", "0"),
	}, nil)
	assert.Equal(t, []int{4, 7, 9}, []int{entries[0].AgentID, entries[1].AgentID, entries[2].AgentID})
}

func TestScore_DeterministicAcrossRuns(t *testing.T) {
	accounts := map[int]engine.Account{
		1: accountWith("10000", "10"),
		2: accountWith("10000", "10"),
		3: accountWith("10000", "-5", lot("NVDA", 3, "400")),
	}
	prices := map[string]decimal.Decimal{"NVDA": dec("420")}

	first := Score(accounts, prices)
	for i := 0; i < 5; i++ {
		again := Score(accounts, prices)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].AgentID, again[j].AgentID)
			assert.Equal(t, first[j].Rank, again[j].Rank)
			assert.True(t, first[j].TotalPnL.Equal(again[j].TotalPnL))
		}
	}
}

func TestWinRate_PerClosedLot(t *testing.T) {
	acct := accountWith("10000", "0")
	acct.Closed = []engine.ClosedLot{
		{Ticker: "AAPL", Quantity: 10, PnL: dec("500")},
		{Ticker: "AAPL", Quantity: 5, PnL: dec("-100")},
		{Ticker: "MSFT", Quantity: 2, PnL: dec("30")},
		{Ticker: "NVDA", Quantity: 1, PnL: dec("0")},
	}
	entries := Score(map[int]engine.Account{1: acct}, nil)

	// 3 wins out of 4 closed portions; only the realized loss counts
	// against the rate, a flat exit is still a win.
	assert.True(t, entries[0].WinRate.Equal(dec("0.75")), "got %s", entries[0].WinRate)
	assert.Equal(t, 4, entries[0].TradesClosed)
}

func TestWinRate_FlatExitCountsAsWin(t *testing.T) {
	acct := accountWith("10000", "0")
	acct.Closed = []engine.ClosedLot{
		{Ticker: "AAPL", Quantity: 10, PnL: dec("0")},
		{Ticker: "MSFT", Quantity: 5, PnL: dec("-5")},
	}
	entries := Score(map[int]engine.Account{1: acct}, nil)
	assert.True(t, entries[0].WinRate.Equal(dec("0.5")), "got %s", entries[0].WinRate)
}

func TestWinRate_NoClosedTrades(t *testing.T) {
	entries := Score(map[int]engine.Account{1: accountWith("10000", "0")}, nil)
	assert.True(t, entries[0].WinRate.IsZero())
}
