package model

import "gorm.io/datatypes"

// TradeModel is the persisted form of one ledger row. Monetary fields are
// stored as decimal strings so replay never loses precision to float
// round-tripping.
type TradeModel struct {
	ID               int64          `gorm:"column:id;primaryKey;autoIncrement"`
	TradeID          string         `gorm:"column:trade_id;uniqueIndex"`
	AgentID          int            `gorm:"column:agent_id;index:idx_trades_agent_seq,priority:1"`
	Action           string         `gorm:"column:action"`
	Ticker           string         `gorm:"column:ticker"`
	Quantity         int64          `gorm:"column:quantity"`
	Executed         bool           `gorm:"column:executed"`
	RejectionReason  string         `gorm:"column:rejection_reason"`
	FillPrice        string         `gorm:"column:fill_price"`
	RealizedPnLDelta string         `gorm:"column:realized_pnl_delta"`
	DecisionJSON     datatypes.JSON `gorm:"column:decision_json;type:TEXT"`
	ClosedLotsJSON   datatypes.JSON `gorm:"column:closed_lots_json;type:TEXT"`
	RecordedAtUnix   int64          `gorm:"column:recorded_at;index:idx_trades_agent_seq,priority:2"`
}

func (TradeModel) TableName() string { return "trades" }

// AgentCatalogModel mirrors the registry so the database is readable on
// its own, without the styles file that produced it.
type AgentCatalogModel struct {
	AgentID     int    `gorm:"column:agent_id;primaryKey"`
	ModelID     string `gorm:"column:model_id"`
	StyleID     string `gorm:"column:style_id"`
	Provider    string `gorm:"column:provider"`
	Model       string `gorm:"column:model"`
	CostTier    string `gorm:"column:cost_tier"`
	Description string `gorm:"column:description"`
	UpdatedAt   int64  `gorm:"column:updated_at"`
}

func (AgentCatalogModel) TableName() string { return "agent_catalog" }

// StandingsSnapshotModel stores one full standings table per row.
type StandingsSnapshotModel struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement"`
	TakenAtUnix int64          `gorm:"column:taken_at;index"`
	Payload     datatypes.JSON `gorm:"column:payload;type:TEXT"`
}

func (StandingsSnapshotModel) TableName() string { return "standings_snapshots" }
