package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	leaguecfg "github.com/kaiitheguy/stock-fantasy-api/internal/config"
	"github.com/kaiitheguy/stock-fantasy-api/internal/league"
	"github.com/kaiitheguy/stock-fantasy-api/internal/logger"
	"github.com/kaiitheguy/stock-fantasy-api/internal/scheduler"
	"github.com/kaiitheguy/stock-fantasy-api/internal/store/decisionlog"
	"github.com/kaiitheguy/stock-fantasy-api/internal/store/gormstore"
	leaguehttp "github.com/kaiitheguy/stock-fantasy-api/internal/transport/http"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 与决策循环。
type App struct {
	cfg      *leaguecfg.Config
	league   *league.Service
	http     *leaguehttp.Server
	store    *gormstore.GormStore
	logStore *decisionlog.Store
	Summary  *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *leaguecfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 HTTP 服务、决策调度与排名快照调度，直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	defer a.close()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		sched := scheduler.NewAlignedScheduler(ctx, a.cfg.League.DecisionIntervalDuration())
		sched.RunImmediately = a.cfg.League.RunImmediately
		sched.Start(func() {
			if _, err := a.league.RunCycle(ctx); err != nil {
				logger.Errorf("decision round failed: %v", err)
			}
		})
		return nil
	})

	group.Go(func() error {
		sched := scheduler.NewAlignedScheduler(ctx, a.cfg.League.SnapshotIntervalDuration())
		sched.Start(func() {
			if err := a.league.SnapshotStandings(ctx); err != nil {
				logger.Errorf("standings snapshot failed: %v", err)
			}
		})
		return nil
	})

	return group.Wait()
}

// League exposes the underlying league service (for test harnesses).
func (a *App) League() *league.Service {
	if a == nil {
		return nil
	}
	return a.league
}

func (a *App) close() {
	if a.logStore != nil {
		a.logStore.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}
