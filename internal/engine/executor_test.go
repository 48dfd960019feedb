package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiitheguy/stock-fantasy-api/internal/decision"
)

var testNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func buyDecision(agentID int, ticker string, qty int64) decision.Decision {
	return decision.Decision{AgentID: agentID, Action: decision.ActionBuy, Ticker: ticker, Quantity: qty}
}

func sellDecision(agentID int, ticker string, qty int64) decision.Decision {
	return decision.Decision{AgentID: agentID, Action: decision.ActionSell, Ticker: ticker, Quantity: qty}
}

func TestApply_HoldExecutesWithoutChange(t *testing.T) {
	acct := NewAccount(dec("10000"))
	d := decision.Decision{AgentID: 1, Action: decision.ActionHold}

	trade, next := Apply(d, acct, decimal.Zero, testNow, DefaultLimits())

	assert.True(t, trade.Executed)
	assert.Empty(t, trade.RejectionReason)
	assert.True(t, next.Cash.Equal(acct.Cash))
	assert.Empty(t, next.Lots)
}

func TestApply_BuyHappyPath(t *testing.T) {
	acct := NewAccount(dec("10000"))
	trade, next := Apply(buyDecision(1, "AAPL", 10), acct, dec("100"), testNow, DefaultLimits())

	require.True(t, trade.Executed)
	assert.True(t, trade.FillPrice.Equal(dec("100")))
	assert.True(t, next.Cash.Equal(dec("9000")))
	require.Len(t, next.Lots["AAPL"], 1)
	assert.Equal(t, int64(10), next.Lots["AAPL"][0].Quantity)

	// input account untouched
	assert.True(t, acct.Cash.Equal(dec("10000")))
	assert.Empty(t, acct.Lots)
}

func TestApply_BuyInsufficientCash(t *testing.T) {
	acct := NewAccount(dec("500"))
	trade, next := Apply(buyDecision(1, "AAPL", 10), acct, dec("100"), testNow, DefaultLimits())

	assert.False(t, trade.Executed)
	assert.Equal(t, RejectInsufficientCash, trade.RejectionReason)
	assert.True(t, next.Cash.Equal(dec("500")))
}

func TestApply_BuyPositionLimit(t *testing.T) {
	acct := NewAccount(dec("100000"))
	lim := Limits{MaxPositions: 5, MaxPositionFraction: dec("1")}
	for _, ticker := range []string{"AAPL", "MSFT", "NVDA", "AMZN", "META"} {
		var trade Trade
		trade, acct = Apply(buyDecision(1, ticker, 1), acct, dec("10"), testNow, lim)
		require.True(t, trade.Executed, ticker)
	}

	trade, _ := Apply(buyDecision(1, "TSLA", 1), acct, dec("10"), testNow, lim)
	assert.False(t, trade.Executed)
	assert.Equal(t, RejectPositionLimit, trade.RejectionReason)

	// adding to an existing position is still allowed at the cap
	trade, _ = Apply(buyDecision(1, "AAPL", 1), acct, dec("10"), testNow, lim)
	assert.True(t, trade.Executed)
}

func TestApply_BuyConcentrationLimit(t *testing.T) {
	acct := NewAccount(dec("10000"))
	lim := DefaultLimits() // 30%

	// 3001 > 10000 * 0.30
	trade, _ := Apply(buyDecision(1, "AAPL", 1), acct, dec("3001"), testNow, lim)
	assert.False(t, trade.Executed)
	assert.Equal(t, RejectConcentrationLimit, trade.RejectionReason)

	// exactly at the ceiling passes
	trade, next := Apply(buyDecision(1, "AAPL", 1), acct, dec("3000"), testNow, lim)
	require.True(t, trade.Executed)

	// cumulative exposure counts existing lots at cost
	trade, _ = Apply(buyDecision(1, "AAPL", 1), next, dec("1"), testNow, lim)
	assert.False(t, trade.Executed)
	assert.Equal(t, RejectConcentrationLimit, trade.RejectionReason)
}

func TestApply_ConcentrationDenominatorStableAcrossBuys(t *testing.T) {
	// Portfolio value at cost does not change when cash converts to lots,
	// so the ceiling is identical before and after an unrelated buy.
	acct := NewAccount(dec("10000"))
	lim := DefaultLimits()

	_, acct = Apply(buyDecision(1, "MSFT", 10), acct, dec("200"), testNow, lim)
	assert.True(t, acct.PortfolioValueAtCost().Equal(dec("10000")))

	trade, _ := Apply(buyDecision(1, "AAPL", 1), acct, dec("3000"), testNow, lim)
	assert.True(t, trade.Executed)
}

func TestApply_SellInsufficientShares(t *testing.T) {
	acct := NewAccount(dec("10000"))
	_, acct = Apply(buyDecision(1, "AAPL", 5), acct, dec("100"), testNow, DefaultLimits())

	trade, next := Apply(sellDecision(1, "AAPL", 6), acct, dec("110"), testNow, DefaultLimits())
	assert.False(t, trade.Executed)
	assert.Equal(t, RejectInsufficientShares, trade.RejectionReason)
	assert.Equal(t, int64(5), next.HeldQuantity("AAPL"))

	trade, _ = Apply(sellDecision(1, "MSFT", 1), acct, dec("110"), testNow, DefaultLimits())
	assert.False(t, trade.Executed)
	assert.Equal(t, RejectInsufficientShares, trade.RejectionReason)
}

func TestApply_SellFIFOAcrossLots(t *testing.T) {
	// buy 10 @ 100, buy 10 @ 120, sell 15 @ 150:
	// realized = 10*(150-100) + 5*(150-120) = 650, 5 shares @ 120 remain.
	acct := NewAccount(dec("10000"))
	lim := Limits{MaxPositions: 5, MaxPositionFraction: dec("1")}

	_, acct = Apply(buyDecision(1, "AAPL", 10), acct, dec("100"), testNow, lim)
	_, acct = Apply(buyDecision(1, "AAPL", 10), acct, dec("120"), testNow.Add(time.Minute), lim)

	trade, acct := Apply(sellDecision(1, "AAPL", 15), acct, dec("150"), testNow.Add(2*time.Minute), lim)
	require.True(t, trade.Executed)

	assert.True(t, trade.RealizedPnLDelta.Equal(dec("650")), "got %s", trade.RealizedPnLDelta)
	assert.True(t, acct.RealizedPnL.Equal(dec("650")))
	assert.Equal(t, int64(5), acct.HeldQuantity("AAPL"))
	require.Len(t, acct.Lots["AAPL"], 1)
	assert.True(t, acct.Lots["AAPL"][0].EntryPrice.Equal(dec("120")))

	// each consumed portion is its own closed lot
	require.Len(t, trade.ClosedLots, 2)
	assert.Equal(t, int64(10), trade.ClosedLots[0].Quantity)
	assert.True(t, trade.ClosedLots[0].PnL.Equal(dec("500")))
	assert.Equal(t, int64(5), trade.ClosedLots[1].Quantity)
	assert.True(t, trade.ClosedLots[1].PnL.Equal(dec("150")))

	// cash: 10000 - 1000 - 1200 + 15*150 = 10050
	assert.True(t, acct.Cash.Equal(dec("10050")))
}

func TestApply_SellWholePositionRemovesTicker(t *testing.T) {
	acct := NewAccount(dec("10000"))
	_, acct = Apply(buyDecision(1, "AAPL", 10), acct, dec("100"), testNow, DefaultLimits())
	_, acct = Apply(sellDecision(1, "AAPL", 10), acct, dec("90"), testNow, DefaultLimits())

	assert.Zero(t, acct.OpenPositionCount())
	_, held := acct.Lots["AAPL"]
	assert.False(t, held)
	assert.True(t, acct.RealizedPnL.Equal(dec("-100")))
}

func TestReject_NoPriceLeavesAccountAlone(t *testing.T) {
	d := buyDecision(3, "AAPL", 10)
	trade := Reject(d, RejectNoPrice, testNow)

	assert.False(t, trade.Executed)
	assert.Equal(t, RejectNoPrice, trade.RejectionReason)
	assert.Equal(t, 3, trade.AgentID)
}

func TestClone_DeepCopiesLots(t *testing.T) {
	acct := NewAccount(dec("10000"))
	_, acct = Apply(buyDecision(1, "AAPL", 10), acct, dec("100"), testNow, DefaultLimits())

	clone := acct.Clone()
	clone.Lots["AAPL"][0].Quantity = 999
	clone.Cash = decimal.Zero

	assert.Equal(t, int64(10), acct.Lots["AAPL"][0].Quantity)
	assert.True(t, acct.Cash.Equal(dec("9000")))
}
