package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	leaguecfg "github.com/kaiitheguy/stock-fantasy-api/internal/config"
	"github.com/kaiitheguy/stock-fantasy-api/internal/decision"
	"github.com/kaiitheguy/stock-fantasy-api/internal/engine"
	"github.com/kaiitheguy/stock-fantasy-api/internal/gateway/provider"
	"github.com/kaiitheguy/stock-fantasy-api/internal/league"
	"github.com/kaiitheguy/stock-fantasy-api/internal/logger"
	"github.com/kaiitheguy/stock-fantasy-api/internal/market"
	"github.com/kaiitheguy/stock-fantasy-api/internal/registry"
	"github.com/kaiitheguy/stock-fantasy-api/internal/store/decisionlog"
	"github.com/kaiitheguy/stock-fantasy-api/internal/store/gormstore"
	leaguehttp "github.com/kaiitheguy/stock-fantasy-api/internal/transport/http"
)

// AppBuilder 按配置装配全部依赖。构建函数可被测试替换。
type AppBuilder struct {
	cfg *leaguecfg.Config

	registryFn     func(*leaguecfg.Config) (*registry.Registry, error)
	providersFn    func(*leaguecfg.Config) (map[string]provider.ModelProvider, error)
	marketFn       func(*leaguecfg.Config) *market.Service
	storeFn        func(*leaguecfg.Config) (*gormstore.GormStore, error)
	decisionLogFn  func(*leaguecfg.Config) (*decisionlog.Store, error)
	httpServerFn   func(*leaguecfg.Config, *leaguehttp.Router) (*leaguehttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *leaguecfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:           cfg,
		registryFn:    buildRegistry,
		providersFn:   buildProviders,
		marketFn:      buildMarketService,
		storeFn:       buildStore,
		decisionLogFn: buildDecisionLog,
		httpServerFn:  buildHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := b.cfg

	reg, err := b.registryFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	providers, err := b.providersFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("build providers: %w", err)
	}

	gstore, err := b.storeFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	logStore, err := b.decisionLogFn(cfg)
	if err != nil {
		gstore.Close()
		return nil, fmt.Errorf("open decision log: %w", err)
	}

	marketSvc := b.marketFn(cfg)

	tickers := decision.NewTickerSet(cfg.Market.Symbols)
	orch, err := decision.NewOrchestrator(decision.OrchestratorParams{
		Providers:      providers,
		ProviderLimits: cfg.AI.ProviderLimits,
		Timeout:        time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		RetryBackoff:   mustDuration(cfg.AI.RetryBackoff),
		Tickers:        tickers,
		Observer:       transcriptObserver(logStore),
	})
	if err != nil {
		gstore.Close()
		logStore.Close()
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	leagueSvc := league.NewService(league.Params{
		Registry:        reg,
		Orchestrator:    orch,
		Market:          marketSvc,
		Ledger:          gstore,
		Limits: engine.Limits{
			MaxPositions:        cfg.League.MaxPositions,
			MaxPositionFraction: decimal.NewFromFloat(cfg.League.MaxPositionFraction),
		},
		StartingCapital: cfg.League.StartingCapitalDecimal(),
	})
	if err := leagueSvc.SyncCatalog(ctx); err != nil {
		logger.Warnf("catalog sync failed: %v", err)
	}

	router := &leaguehttp.Router{
		League:    leagueSvc,
		Registry:  reg,
		Logs:      logStore,
		Snapshots: gstore,
	}
	httpServer, err := b.httpServerFn(cfg, router)
	if err != nil {
		gstore.Close()
		logStore.Close()
		return nil, fmt.Errorf("build http server: %w", err)
	}

	return &App{
		cfg:      cfg,
		league:   leagueSvc,
		http:     httpServer,
		store:    gstore,
		logStore: logStore,
		Summary:  newStartupSummary(cfg, reg),
	}, nil
}

func buildRegistry(cfg *leaguecfg.Config) (*registry.Registry, error) {
	models := make([]registry.Model, 0, len(cfg.AI.Models))
	for _, m := range cfg.AI.Models {
		if !m.Enabled {
			continue
		}
		id := m.ID
		if id == "" {
			id = m.Provider + ":" + m.Model
		}
		models = append(models, registry.Model{
			ID:       id,
			Provider: m.Provider,
			Model:    m.Model,
			CostTier: m.CostTier,
		})
	}
	return registry.New(models, cfg.AI.StylesPath, cfg.AI.WatchStyles)
}

func buildProviders(cfg *leaguecfg.Config) (map[string]provider.ModelProvider, error) {
	models := make([]provider.ModelCfg, 0, len(cfg.AI.Models))
	for _, m := range cfg.AI.Models {
		models = append(models, provider.ModelCfg{
			ID:        m.ID,
			Provider:  m.Provider,
			APIURL:    m.APIURL,
			APIKey:    m.APIKey,
			Model:     m.Model,
			CostTier:  m.CostTier,
			Enabled:   m.Enabled,
			MaxTokens: m.MaxTokens,
		})
	}
	return provider.BuildProvidersFromConfig(models, time.Duration(cfg.AI.TimeoutSeconds)*time.Second)
}

func buildMarketService(cfg *leaguecfg.Config) *market.Service {
	client := market.NewYahooClient(cfg.Market.QuoteBaseURL, time.Duration(cfg.Market.TimeoutSeconds)*time.Second)
	return market.NewService(market.ServiceParams{
		Source:     client,
		Symbols:    cfg.Market.Symbols,
		TTL:        time.Duration(cfg.Market.CacheTTLSeconds) * time.Second,
		CandleDays: cfg.Market.CandleDays,
	})
}

func buildStore(cfg *leaguecfg.Config) (*gormstore.GormStore, error) {
	return gormstore.NewGormStore(cfg.Storage.LedgerPath)
}

func buildDecisionLog(cfg *leaguecfg.Config) (*decisionlog.Store, error) {
	return decisionlog.NewStore(cfg.Storage.DecisionLogPath)
}

func buildHTTPServer(cfg *leaguecfg.Config, router *leaguehttp.Router) (*leaguehttp.Server, error) {
	return leaguehttp.NewServer(leaguehttp.ServerConfig{
		Addr:   cfg.App.HTTPAddr,
		Router: router,
	})
}

// transcriptObserver 把每次模型原始输出落到转录库。写失败只告警。
func transcriptObserver(logStore *decisionlog.Store) decision.RawObserver {
	if logStore == nil {
		return nil
	}
	return func(out decision.ModelOutput) {
		rec := decisionlog.Record{
			TraceID:    out.TraceID,
			AgentID:    out.AgentID,
			ProviderID: out.ProviderID,
			System:     out.System,
			User:       out.User,
			RawOutput:  out.Raw,
		}
		if out.Err != nil {
			rec.Error = out.Err.Error()
		}
		if err := logStore.Append(context.Background(), rec); err != nil {
			logger.Warnf("decision log append failed: %v", err)
		}
	}
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
