package app

import (
	"fmt"
	"strings"

	leaguecfg "github.com/kaiitheguy/stock-fantasy-api/internal/config"
	"github.com/kaiitheguy/stock-fantasy-api/internal/registry"
)

type StartupSummary struct {
	HTTPAddr         string
	Symbols          []string
	DecisionInterval string
	SnapshotInterval string
	StartingCapital  string
	MaxPositions     int
	Agents           []registry.Agent
}

func newStartupSummary(cfg *leaguecfg.Config, reg *registry.Registry) *StartupSummary {
	return &StartupSummary{
		HTTPAddr:         cfg.App.HTTPAddr,
		Symbols:          cfg.Market.Symbols,
		DecisionInterval: cfg.League.DecisionInterval,
		SnapshotInterval: cfg.League.SnapshotInterval,
		StartingCapital:  cfg.League.StartingCapital,
		MaxPositions:     cfg.League.MaxPositions,
		Agents:           reg.ListAgents(),
	}
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[联赛 (LEAGUE)]")
	fmt.Printf("  HTTP 监听: %s\n", s.HTTPAddr)
	fmt.Printf("  决策周期: %s  快照周期: %s\n", s.DecisionInterval, s.SnapshotInterval)
	fmt.Printf("  初始资金: $%s  最大持仓数: %d\n", s.StartingCapital, s.MaxPositions)
	fmt.Println()

	fmt.Println("[行情 (MARKET)]")
	fmt.Printf("  可交易标的: %s\n", formatList(s.Symbols))
	fmt.Println()

	fmt.Println("[参赛 AGENTS]")
	if len(s.Agents) == 0 {
		fmt.Println("  (无)")
	}
	for _, a := range s.Agents {
		fmt.Printf("  > #%d %s × %s (%s, %s)\n", a.ID, a.ModelID, a.StyleID, a.Provider, a.CostTier)
	}
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
