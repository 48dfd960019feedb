package gormstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/kaiitheguy/stock-fantasy-api/internal/decision"
	"github.com/kaiitheguy/stock-fantasy-api/internal/engine"
	"github.com/kaiitheguy/stock-fantasy-api/internal/registry"
	"github.com/kaiitheguy/stock-fantasy-api/internal/scoring"
	"github.com/kaiitheguy/stock-fantasy-api/internal/store"
	storemodel "github.com/kaiitheguy/stock-fantasy-api/internal/store/model"
)

type tradeModel = storemodel.TradeModel
type catalogModel = storemodel.AgentCatalogModel
type snapshotModel = storemodel.StandingsSnapshotModel

// GormStore implements ledger, catalog and snapshot storage using Gorm + SQLite.
type GormStore struct {
	db *gorm.DB
}

var (
	_ store.Ledger        = (*GormStore)(nil)
	_ store.CatalogStore  = (*GormStore)(nil)
	_ store.SnapshotStore = (*GormStore)(nil)
)

// NewGormStore opens (and migrates) the league database at path.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: ledger path is empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&tradeModel{}, &catalogModel{}, &snapshotModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a little parallelism for concurrent HTTP reads
	// while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// AppendTrade persists one ledger row. The synchronous=FULL pragma is not
// needed: WAL fsyncs the log on commit, which satisfies the durability bar
// for a paper-trading ledger.
func (s *GormStore) AppendTrade(ctx context.Context, t engine.Trade) error {
	row, err := toTradeModel(t)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(row).Error
}

// ListTrades returns the whole ledger in append order.
func (s *GormStore) ListTrades(ctx context.Context) ([]engine.Trade, error) {
	var rows []tradeModel
	if err := s.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromTradeModels(rows)
}

// ListTradesByAgent returns one agent's ledger rows in append order.
func (s *GormStore) ListTradesByAgent(ctx context.Context, agentID int) ([]engine.Trade, error) {
	var rows []tradeModel
	err := s.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromTradeModels(rows)
}

// SyncCatalog upserts the registry's agents into the catalog table.
func (s *GormStore) SyncCatalog(ctx context.Context, agents []registry.Agent) error {
	if len(agents) == 0 {
		return nil
	}
	now := time.Now().Unix()
	rows := make([]catalogModel, 0, len(agents))
	for _, a := range agents {
		rows = append(rows, catalogModel{
			AgentID:     a.ID,
			ModelID:     a.ModelID,
			StyleID:     a.StyleID,
			Provider:    a.Provider,
			Model:       a.Model,
			CostTier:    a.CostTier,
			Description: a.Description,
			UpdatedAt:   now,
		})
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agent_id"}},
			UpdateAll: true,
		}).
		Create(&rows).Error
}

// ListCatalog returns the persisted agent catalog ordered by agent id.
func (s *GormStore) ListCatalog(ctx context.Context) ([]registry.Agent, error) {
	var rows []catalogModel
	if err := s.db.WithContext(ctx).Order("agent_id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	agents := make([]registry.Agent, 0, len(rows))
	for _, r := range rows {
		agents = append(agents, registry.Agent{
			ID:          r.AgentID,
			ModelID:     r.ModelID,
			StyleID:     r.StyleID,
			Provider:    r.Provider,
			Model:       r.Model,
			CostTier:    r.CostTier,
			Description: r.Description,
		})
	}
	return agents, nil
}

// SaveSnapshot stores one standings table.
func (s *GormStore) SaveSnapshot(ctx context.Context, takenAt time.Time, entries []scoring.Entry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal standings snapshot: %w", err)
	}
	row := snapshotModel{
		TakenAtUnix: takenAt.Unix(),
		Payload:     datatypes.JSON(payload),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// ListSnapshots returns the most recent snapshots, oldest first so a
// caller can feed them straight into a time-series chart. limit <= 0
// means all of them.
func (s *GormStore) ListSnapshots(ctx context.Context, limit int) ([]store.Snapshot, error) {
	var rows []snapshotModel
	q := s.db.WithContext(ctx).Order("taken_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]store.Snapshot, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		var entries []scoring.Entry
		if err := json.Unmarshal(r.Payload, &entries); err != nil {
			return nil, fmt.Errorf("snapshot %d: bad payload: %w", r.ID, err)
		}
		out = append(out, store.Snapshot{
			ID:      r.ID,
			TakenAt: time.Unix(r.TakenAtUnix, 0).UTC(),
			Entries: entries,
		})
	}
	return out, nil
}

func toTradeModel(t engine.Trade) (*tradeModel, error) {
	decisionJSON, err := json.Marshal(t.Decision)
	if err != nil {
		return nil, fmt.Errorf("marshal decision: %w", err)
	}
	closedJSON, err := json.Marshal(t.ClosedLots)
	if err != nil {
		return nil, fmt.Errorf("marshal closed lots: %w", err)
	}
	return &tradeModel{
		TradeID:          t.ID,
		AgentID:          t.AgentID,
		Action:           t.Decision.Action,
		Ticker:           t.Decision.Ticker,
		Quantity:         t.Decision.Quantity,
		Executed:         t.Executed,
		RejectionReason:  t.RejectionReason,
		FillPrice:        t.FillPrice.String(),
		RealizedPnLDelta: t.RealizedPnLDelta.String(),
		DecisionJSON:     datatypes.JSON(decisionJSON),
		ClosedLotsJSON:   datatypes.JSON(closedJSON),
		RecordedAtUnix:   t.RecordedAt.UnixMilli(),
	}, nil
}

func fromTradeModels(rows []tradeModel) ([]engine.Trade, error) {
	out := make([]engine.Trade, 0, len(rows))
	for _, r := range rows {
		t, err := fromTradeModel(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func fromTradeModel(r tradeModel) (engine.Trade, error) {
	var d decision.Decision
	if len(r.DecisionJSON) > 0 {
		if err := json.Unmarshal(r.DecisionJSON, &d); err != nil {
			return engine.Trade{}, fmt.Errorf("trade %s: bad decision json: %w", r.TradeID, err)
		}
	}
	var closed []engine.ClosedLot
	if len(r.ClosedLotsJSON) > 0 {
		if err := json.Unmarshal(r.ClosedLotsJSON, &closed); err != nil {
			return engine.Trade{}, fmt.Errorf("trade %s: bad closed lots json: %w", r.TradeID, err)
		}
	}
	fill, err := parseDecimal(r.FillPrice)
	if err != nil {
		return engine.Trade{}, fmt.Errorf("trade %s: bad fill price %q: %w", r.TradeID, r.FillPrice, err)
	}
	delta, err := parseDecimal(r.RealizedPnLDelta)
	if err != nil {
		return engine.Trade{}, fmt.Errorf("trade %s: bad pnl delta %q: %w", r.TradeID, r.RealizedPnLDelta, err)
	}
	return engine.Trade{
		ID:               r.TradeID,
		AgentID:          r.AgentID,
		Decision:         d,
		Executed:         r.Executed,
		RejectionReason:  r.RejectionReason,
		FillPrice:        fill,
		RealizedPnLDelta: delta,
		ClosedLots:       closed,
		RecordedAt:       time.UnixMilli(r.RecordedAtUnix).UTC(),
	}, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
