package league

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kaiitheguy/stock-fantasy-api/internal/decision"
	"github.com/kaiitheguy/stock-fantasy-api/internal/engine"
	"github.com/kaiitheguy/stock-fantasy-api/internal/logger"
	"github.com/kaiitheguy/stock-fantasy-api/internal/market"
	"github.com/kaiitheguy/stock-fantasy-api/internal/registry"
	"github.com/kaiitheguy/stock-fantasy-api/internal/scoring"
	"github.com/kaiitheguy/stock-fantasy-api/internal/store"
)

// Orchestrator is the decision fan-out the service drives each round.
type Orchestrator interface {
	RunBatch(ctx context.Context, reqs []decision.BatchRequest) map[int]decision.Decision
}

// LedgerStore is the slice of storage the league needs.
type LedgerStore interface {
	store.Ledger
	store.CatalogStore
	store.SnapshotStore
}

// Service runs decision rounds and executes trades against the ledger.
// Each agent account has exactly one logical writer: every execute path
// takes that agent's lock across replay + apply + append, so the state a
// validation ran against is the state the row lands on. Agents never
// block each other.
type Service struct {
	registry        *registry.Registry
	orchestrator    Orchestrator
	market          *market.Service
	ledger          LedgerStore
	limits          engine.Limits
	startingCapital decimal.Decimal

	locksMu sync.Mutex
	locks   map[int]*sync.Mutex

	now func() time.Time
}

type Params struct {
	Registry        *registry.Registry
	Orchestrator    Orchestrator
	Market          *market.Service
	Ledger          LedgerStore
	Limits          engine.Limits
	StartingCapital decimal.Decimal
}

func NewService(p Params) *Service {
	lim := p.Limits
	if lim.MaxPositions <= 0 {
		lim = engine.DefaultLimits()
	}
	return &Service{
		registry:        p.Registry,
		orchestrator:    p.Orchestrator,
		market:          p.Market,
		ledger:          p.Ledger,
		limits:          lim,
		startingCapital: p.StartingCapital,
		locks:           make(map[int]*sync.Mutex),
		now:             time.Now,
	}
}

func (s *Service) agentLock(agentID int) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[agentID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[agentID] = mu
	}
	return mu
}

// CycleResult summarizes one decision round.
type CycleResult struct {
	StartedAt time.Time                `json:"started_at"`
	Elapsed   time.Duration            `json:"elapsed"`
	Agents    int                      `json:"agents"`
	Decisions map[int]decision.Decision `json:"decisions"`
	Trades    []engine.Trade           `json:"trades"`
}

// RunCycle executes one full decision round: refresh market data, fan
// out to every registered agent, then execute each returned decision
// against that agent's replayed account. Agent failures surface as safe
// hold decisions, never as a missing entry.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	started := s.now()
	agents := s.registry.ListAgents()
	if len(agents) == 0 {
		return CycleResult{}, fmt.Errorf("league: no agents registered")
	}

	quotes := s.market.Quotes(ctx)
	snapshot := make(market.PriceSnapshot, len(quotes))
	reports := make(map[string]market.IndicatorReport, len(quotes))
	for sym, q := range quotes {
		snapshot[sym] = q.Price
		if candles, err := s.market.Candles(ctx, sym); err == nil {
			reports[sym] = market.ComputeIndicators(sym, candles)
		}
	}
	marketContext := market.RenderContext(s.market.Symbols(), quotes, reports)

	accounts, err := s.replayAll(ctx, agents)
	if err != nil {
		return CycleResult{}, err
	}

	reqs := make([]decision.BatchRequest, 0, len(agents))
	for _, a := range agents {
		reqs = append(reqs, decision.BatchRequest{
			AgentID:       a.ID,
			ModelID:       a.ModelID,
			Provider:      a.Provider,
			SystemPrompt:  a.SystemPrompt,
			MarketContext: marketContext,
			AccountState:  renderAccountState(accounts[a.ID], snapshot),
		})
	}

	decisions := s.orchestrator.RunBatch(ctx, reqs)

	// Execute in agent-id order so a replayed ledger is reproducible
	// regardless of which model answered first.
	ids := make([]int, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	sort.Ints(ids)

	trades := make([]engine.Trade, 0, len(ids))
	for _, id := range ids {
		d, ok := decisions[id]
		if !ok {
			// RunBatch is total over its requests; treat a hole as a bug
			// but keep the round alive.
			logger.Errorf("league: agent %d missing from batch result", id)
			continue
		}
		trade, err := s.execute(ctx, d)
		if err != nil {
			return CycleResult{}, err
		}
		trades = append(trades, trade)
	}

	res := CycleResult{
		StartedAt: started,
		Elapsed:   s.now().Sub(started),
		Agents:    len(agents),
		Decisions: decisions,
		Trades:    trades,
	}
	logger.Infof("league: round done agents=%d trades=%d elapsed=%s", res.Agents, len(trades), res.Elapsed)
	return res, nil
}

// Execute validates and records one decision on behalf of agentID. It is
// the entry point for the manual trade endpoint; cycle execution uses
// the same path.
func (s *Service) Execute(ctx context.Context, agentID int, d decision.Decision) (engine.Trade, error) {
	if _, ok := s.registry.Agent(agentID); !ok {
		return engine.Trade{}, fmt.Errorf("league: unknown agent %d", agentID)
	}
	d.AgentID = agentID
	if d.ProducedAt.IsZero() {
		d.ProducedAt = s.now()
	}
	if d.TraceID == "" {
		d.TraceID = uuid.NewString()
	}
	return s.execute(ctx, d)
}

// execute holds the agent's lock across replay + apply + append so the
// account state a validation ran against is exactly the state the row
// lands on.
func (s *Service) execute(ctx context.Context, d decision.Decision) (engine.Trade, error) {
	mu := s.agentLock(d.AgentID)
	mu.Lock()
	defer mu.Unlock()

	history, err := s.ledger.ListTradesByAgent(ctx, d.AgentID)
	if err != nil {
		return engine.Trade{}, fmt.Errorf("league: read ledger: %w", err)
	}
	acct, err := engine.Replay(s.startingCapital, history, s.limits)
	if err != nil {
		return engine.Trade{}, err
	}

	now := s.now()
	var trade engine.Trade
	if d.Action == decision.ActionHold {
		trade, _ = engine.Apply(d, acct, decimal.Zero, now, s.limits)
	} else {
		price, ok := s.market.Snapshot(ctx)[d.Ticker]
		if !ok {
			trade = engine.Reject(d, engine.RejectNoPrice, now)
		} else {
			trade, _ = engine.Apply(d, acct, price, now, s.limits)
		}
	}
	trade.ID = uuid.NewString()

	if err := s.ledger.AppendTrade(ctx, trade); err != nil {
		return engine.Trade{}, fmt.Errorf("league: append trade: %w", err)
	}
	if !trade.Executed {
		logger.Infof("league: agent %d %s %s rejected: %s", d.AgentID, d.Action, d.Ticker, trade.RejectionReason)
	}
	return trade, nil
}

// Accounts replays every agent's ledger into its current account.
func (s *Service) Accounts(ctx context.Context) (map[int]engine.Account, error) {
	return s.replayAll(ctx, s.registry.ListAgents())
}

func (s *Service) replayAll(ctx context.Context, agents []registry.Agent) (map[int]engine.Account, error) {
	out := make(map[int]engine.Account, len(agents))
	for _, a := range agents {
		history, err := s.ledger.ListTradesByAgent(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("league: read ledger for agent %d: %w", a.ID, err)
		}
		acct, err := engine.Replay(s.startingCapital, history, s.limits)
		if err != nil {
			return nil, err
		}
		out[a.ID] = acct
	}
	return out, nil
}

// Standings replays all agents and scores them against the current
// price snapshot.
func (s *Service) Standings(ctx context.Context) ([]scoring.Entry, error) {
	accounts, err := s.replayAll(ctx, s.registry.ListAgents())
	if err != nil {
		return nil, err
	}
	return scoring.Score(accounts, s.market.Snapshot(ctx)), nil
}

// SnapshotStandings scores the league and persists the table for the
// history chart.
func (s *Service) SnapshotStandings(ctx context.Context) error {
	entries, err := s.Standings(ctx)
	if err != nil {
		return err
	}
	return s.ledger.SaveSnapshot(ctx, s.now(), entries)
}

// SyncCatalog mirrors the current registry into the database.
func (s *Service) SyncCatalog(ctx context.Context) error {
	return s.ledger.SyncCatalog(ctx, s.registry.ListAgents())
}
