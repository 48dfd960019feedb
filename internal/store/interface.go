package store

import (
	"context"
	"time"

	"github.com/kaiitheguy/stock-fantasy-api/internal/engine"
	"github.com/kaiitheguy/stock-fantasy-api/internal/registry"
	"github.com/kaiitheguy/stock-fantasy-api/internal/scoring"
)

// Ledger is the append-only trade log. Rows are never updated or
// deleted; account state is always reconstructed by replaying them.
type Ledger interface {
	// AppendTrade persists one trade record. It must be durable before
	// returning: a record that is not safely on disk is a record that
	// never happened.
	AppendTrade(ctx context.Context, t engine.Trade) error
	// ListTrades returns every record in append order.
	ListTrades(ctx context.Context) ([]engine.Trade, error)
	// ListTradesByAgent returns one agent's records in append order.
	ListTradesByAgent(ctx context.Context, agentID int) ([]engine.Trade, error)
}

// CatalogStore mirrors the agent registry into the database.
type CatalogStore interface {
	SyncCatalog(ctx context.Context, agents []registry.Agent) error
	ListCatalog(ctx context.Context) ([]registry.Agent, error)
}

// Snapshot is one saved standings table.
type Snapshot struct {
	ID      int64           `json:"id"`
	TakenAt time.Time       `json:"taken_at"`
	Entries []scoring.Entry `json:"entries"`
}

// SnapshotStore keeps periodic standings tables for history charts.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, takenAt time.Time, entries []scoring.Entry) error
	ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error)
}
