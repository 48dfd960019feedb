package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Replay rebuilds an account from the empty initial state by re-applying the
// agent's ledger in order. The ledger is the sole source of truth: any cached
// account representation must equal a full replay at all times.
func Replay(startingCapital decimal.Decimal, trades []Trade, lim Limits) (Account, error) {
	acct := NewAccount(startingCapital)
	for _, t := range trades {
		if !t.Executed {
			continue
		}
		replayed, next := Apply(t.Decision, acct, t.FillPrice, t.RecordedAt, lim)
		if !replayed.Executed {
			return Account{}, fmt.Errorf(
				"ledger corrupt: trade %s (agent %d) accepted at record time but rejected on replay (%s)",
				t.ID, t.AgentID, replayed.RejectionReason)
		}
		acct = next
	}
	return acct, nil
}
