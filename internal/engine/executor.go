package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kaiitheguy/stock-fantasy-api/internal/decision"
)

// Rejection reasons. Validation failures are data on the Trade, not errors.
const (
	RejectInsufficientCash   = "insufficient_cash"
	RejectPositionLimit      = "position_limit"
	RejectConcentrationLimit = "concentration_limit"
	RejectInsufficientShares = "insufficient_shares"
	RejectNoPrice            = "no_price"
)

// Limits are the hard safety constraints enforced on every buy.
type Limits struct {
	MaxPositions        int
	MaxPositionFraction decimal.Decimal
}

func DefaultLimits() Limits {
	return Limits{MaxPositions: 5, MaxPositionFraction: decimal.NewFromFloat(0.30)}
}

// Apply runs one decision against an account at the given fill price.
// Pure: the input account is never mutated. On acceptance the returned
// account carries the full effect of the trade; on rejection it is the
// input unchanged. Callers must serialize Apply per agent account.
func Apply(d decision.Decision, acct Account, price decimal.Decimal, now time.Time, lim Limits) (Trade, Account) {
	trade := Trade{
		AgentID:    d.AgentID,
		Decision:   d,
		RecordedAt: now,
	}

	switch d.Action {
	case decision.ActionHold:
		trade.Executed = true
		return trade, acct
	case decision.ActionBuy:
		return applyBuy(trade, d, acct, price, now, lim)
	case decision.ActionSell:
		return applySell(trade, d, acct, price, now)
	default:
		// Parser guarantees the action set; anything else is treated as hold.
		trade.Executed = true
		return trade, acct
	}
}

// Reject builds a rejected Trade without touching the account. Used by the
// caller when no execution price is available.
func Reject(d decision.Decision, reason string, now time.Time) Trade {
	return Trade{
		AgentID:         d.AgentID,
		Decision:        d,
		Executed:        false,
		RejectionReason: reason,
		RecordedAt:      now,
	}
}

func applyBuy(trade Trade, d decision.Decision, acct Account, price decimal.Decimal, now time.Time, lim Limits) (Trade, Account) {
	qty := decimal.NewFromInt(d.Quantity)
	cost := price.Mul(qty)

	if cost.GreaterThan(acct.Cash) {
		trade.RejectionReason = RejectInsufficientCash
		return trade, acct
	}
	held := acct.HeldQuantity(d.Ticker)
	if held == 0 && acct.OpenPositionCount() >= lim.MaxPositions {
		trade.RejectionReason = RejectPositionLimit
		return trade, acct
	}
	exposure := acct.NotionalAtCost(d.Ticker).Add(cost)
	ceiling := acct.PortfolioValueAtCost().Mul(lim.MaxPositionFraction)
	if exposure.GreaterThan(ceiling) {
		trade.RejectionReason = RejectConcentrationLimit
		return trade, acct
	}

	next := acct.Clone()
	next.Cash = next.Cash.Sub(cost)
	next.Lots[d.Ticker] = append(next.Lots[d.Ticker], Lot{
		Ticker:     d.Ticker,
		Quantity:   d.Quantity,
		EntryPrice: price,
		EntryTime:  now,
	})

	trade.Executed = true
	trade.FillPrice = price
	return trade, next
}

func applySell(trade Trade, d decision.Decision, acct Account, price decimal.Decimal, now time.Time) (Trade, Account) {
	if acct.HeldQuantity(d.Ticker) < d.Quantity {
		trade.RejectionReason = RejectInsufficientShares
		return trade, acct
	}

	next := acct.Clone()
	remaining := d.Quantity
	delta := decimal.Zero
	var closed []ClosedLot

	lots := next.Lots[d.Ticker]
	for remaining > 0 {
		lot := &lots[0]
		consumed := lot.Quantity
		if consumed > remaining {
			consumed = remaining
		}
		portion := ClosedLot{
			Ticker:     d.Ticker,
			Quantity:   consumed,
			EntryPrice: lot.EntryPrice,
			ExitPrice:  price,
			PnL:        price.Sub(lot.EntryPrice).Mul(decimal.NewFromInt(consumed)),
			ClosedAt:   now,
		}
		closed = append(closed, portion)
		delta = delta.Add(portion.PnL)

		lot.Quantity -= consumed
		remaining -= consumed
		if lot.Quantity == 0 {
			lots = lots[1:]
		}
	}
	if len(lots) == 0 {
		delete(next.Lots, d.Ticker)
	} else {
		next.Lots[d.Ticker] = lots
	}

	next.Cash = next.Cash.Add(price.Mul(decimal.NewFromInt(d.Quantity)))
	next.RealizedPnL = next.RealizedPnL.Add(delta)
	next.Closed = append(next.Closed, closed...)

	trade.Executed = true
	trade.FillPrice = price
	trade.RealizedPnLDelta = delta
	trade.ClosedLots = closed
	return trade, next
}
