package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kaiitheguy/stock-fantasy-api/internal/decision"
)

// Lot is a FIFO cost-basis unit: one buy creates one lot, later sells consume
// lots oldest-first, possibly leaving a remainder at the original entry price.
type Lot struct {
	Ticker     string          `json:"ticker"`
	Quantity   int64           `json:"quantity"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	EntryTime  time.Time       `json:"entry_time"`
}

// ClosedLot records one FIFO-consumed portion with its own realized delta.
// Win rate is computed over these.
type ClosedLot struct {
	Ticker     string          `json:"ticker"`
	Quantity   int64           `json:"quantity"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	PnL        decimal.Decimal `json:"pnl"`
	ClosedAt   time.Time       `json:"closed_at"`
}

// Account is the per-agent simulated brokerage state. It is owned exclusively
// by the executor and fully recoverable by replaying the agent's ledger.
type Account struct {
	StartingCapital decimal.Decimal
	Cash            decimal.Decimal
	Lots            map[string][]Lot // FIFO order per ticker
	RealizedPnL     decimal.Decimal
	Closed          []ClosedLot
}

func NewAccount(startingCapital decimal.Decimal) Account {
	return Account{
		StartingCapital: startingCapital,
		Cash:            startingCapital,
		Lots:            make(map[string][]Lot),
		RealizedPnL:     decimal.Zero,
	}
}

// Clone deep-copies the account so Apply can stay all-or-nothing.
func (a Account) Clone() Account {
	out := a
	out.Lots = make(map[string][]Lot, len(a.Lots))
	for ticker, lots := range a.Lots {
		out.Lots[ticker] = append([]Lot(nil), lots...)
	}
	out.Closed = append([]ClosedLot(nil), a.Closed...)
	return out
}

// HeldQuantity returns the open share count for ticker.
func (a Account) HeldQuantity(ticker string) int64 {
	var total int64
	for _, lot := range a.Lots[ticker] {
		total += lot.Quantity
	}
	return total
}

// OpenPositionCount counts distinct tickers with open quantity.
func (a Account) OpenPositionCount() int {
	n := 0
	for _, lots := range a.Lots {
		if len(lots) > 0 {
			n++
		}
	}
	return n
}

// NotionalAtCost sums quantity x entry price over the ticker's open lots.
func (a Account) NotionalAtCost(ticker string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range a.Lots[ticker] {
		total = total.Add(lot.EntryPrice.Mul(decimal.NewFromInt(lot.Quantity)))
	}
	return total
}

// PortfolioValueAtCost is cash plus all open lots at cost. A buy moves value
// cash -> lot at cost, so this quantity is invariant across buys, which keeps
// the concentration check deterministic without a quote snapshot.
func (a Account) PortfolioValueAtCost() decimal.Decimal {
	total := a.Cash
	for ticker := range a.Lots {
		total = total.Add(a.NotionalAtCost(ticker))
	}
	return total
}

// Trade is the ledger unit: every attempted decision becomes exactly one
// Trade, accepted or rejected. Append-only, never edited.
type Trade struct {
	ID               string            `json:"id"`
	AgentID          int               `json:"agent_id"`
	Decision         decision.Decision `json:"decision"`
	Executed         bool              `json:"executed"`
	RejectionReason  string            `json:"rejection_reason,omitempty"`
	FillPrice        decimal.Decimal   `json:"fill_price,omitempty"`
	RealizedPnLDelta decimal.Decimal   `json:"realized_pnl_delta,omitempty"`
	ClosedLots       []ClosedLot       `json:"closed_lots,omitempty"`
	RecordedAt       time.Time         `json:"recorded_at"`
}
