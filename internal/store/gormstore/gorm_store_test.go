package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiitheguy/stock-fantasy-api/internal/decision"
	"github.com/kaiitheguy/stock-fantasy-api/internal/engine"
	"github.com/kaiitheguy/stock-fantasy-api/internal/registry"
	"github.com/kaiitheguy/stock-fantasy-api/internal/scoring"
)

func openTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore(filepath.Join(t.TempDir(), "league.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTrade(agentID int, action, ticker string, qty int64) engine.Trade {
	return engine.Trade{
		ID:      "trade-" + ticker + "-" + action,
		AgentID: agentID,
		Decision: decision.Decision{
			AgentID:    agentID,
			Action:     action,
			Ticker:     ticker,
			Quantity:   qty,
			Confidence: 0.7,
			Reasoning:  "test",
			TraceID:    "trace-1",
		},
		Executed:         true,
		FillPrice:        decimal.RequireFromString("123.45"),
		RealizedPnLDelta: decimal.Zero,
		RecordedAt:       time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
	}
}

func TestAppendAndListTrades_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := sampleTrade(1, decision.ActionBuy, "AAPL", 10)
	in.ClosedLots = []engine.ClosedLot{
		{Ticker: "AAPL", Quantity: 4, EntryPrice: decimal.RequireFromString("100"), ExitPrice: decimal.RequireFromString("123.45"), PnL: decimal.RequireFromString("93.8")},
	}
	require.NoError(t, s.AppendTrade(ctx, in))

	out, err := s.ListTrades(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)

	got := out[0]
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.AgentID, got.AgentID)
	assert.Equal(t, decision.ActionBuy, got.Decision.Action)
	assert.Equal(t, "AAPL", got.Decision.Ticker)
	assert.Equal(t, int64(10), got.Decision.Quantity)
	assert.True(t, got.FillPrice.Equal(in.FillPrice), "fill price survives as exact decimal")
	assert.Equal(t, in.RecordedAt, got.RecordedAt)
	require.Len(t, got.ClosedLots, 1)
	assert.True(t, got.ClosedLots[0].PnL.Equal(decimal.RequireFromString("93.8")))
}

func TestListTradesByAgent_FiltersAndOrders(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	t1 := sampleTrade(1, decision.ActionBuy, "AAPL", 10)
	t1.ID = "a"
	t2 := sampleTrade(2, decision.ActionBuy, "MSFT", 3)
	t2.ID = "b"
	t3 := sampleTrade(1, decision.ActionSell, "AAPL", 4)
	t3.ID = "c"
	for _, tr := range []engine.Trade{t1, t2, t3} {
		require.NoError(t, s.AppendTrade(ctx, tr))
	}

	rows, err := s.ListTradesByAgent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].ID, "append order preserved")
	assert.Equal(t, "c", rows[1].ID)
}

func TestAppendTrade_RejectedRowRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tr := sampleTrade(1, decision.ActionBuy, "AAPL", 1000)
	tr.Executed = false
	tr.RejectionReason = engine.RejectInsufficientCash
	tr.FillPrice = decimal.Zero
	require.NoError(t, s.AppendTrade(ctx, tr))

	rows, err := s.ListTrades(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Executed)
	assert.Equal(t, engine.RejectInsufficientCash, rows[0].RejectionReason)
}

func TestCatalog_SyncAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	agents := []registry.Agent{
		{ID: 2, ModelID: "m2", StyleID: "aggressive", Provider: "openai", Model: "gpt-4o", CostTier: "expensive"},
		{ID: 1, ModelID: "m1", StyleID: "conservative", Provider: "openai", Model: "gpt-4o-mini", CostTier: "cheap"},
	}
	require.NoError(t, s.SyncCatalog(ctx, agents))

	got, err := s.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID, "ordered by agent id")
	assert.Equal(t, "conservative", got[0].StyleID)

	// re-sync updates in place, no duplicates
	agents[1].CostTier = "medium"
	require.NoError(t, s.SyncCatalog(ctx, agents))
	got, err = s.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "medium", got[0].CostTier)
}

func TestSnapshots_SaveAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		entries := []scoring.Entry{{AgentID: 1, Rank: 1, TotalPnL: decimal.NewFromInt(int64(i * 100))}}
		require.NoError(t, s.SaveSnapshot(ctx, base.AddDate(0, 0, i), entries))
	}

	snaps, err := s.ListSnapshots(ctx, 2)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	// most recent two, returned oldest first
	assert.Equal(t, base.AddDate(0, 0, 1), snaps[0].TakenAt)
	assert.Equal(t, base.AddDate(0, 0, 2), snaps[1].TakenAt)
	assert.True(t, snaps[1].Entries[0].TotalPnL.Equal(decimal.NewFromInt(200)))
}
