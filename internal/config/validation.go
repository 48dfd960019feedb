package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.League.validate(); err != nil {
		return err
	}
	if err := c.AI.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	return nil
}

func (l *LeagueConfig) validate() error {
	cap, err := decimal.NewFromString(l.StartingCapital)
	if err != nil {
		return fmt.Errorf("league.starting_capital is not a number: %w", err)
	}
	if cap.Sign() <= 0 {
		return fmt.Errorf("league.starting_capital must be > 0")
	}
	if l.MaxPositions <= 0 {
		return fmt.Errorf("league.max_positions must be > 0")
	}
	if l.MaxPositionFraction <= 0 || l.MaxPositionFraction > 1 {
		return fmt.Errorf("league.max_position_fraction must be in (0,1]")
	}
	if _, err := time.ParseDuration(l.DecisionInterval); err != nil {
		return fmt.Errorf("league.decision_interval invalid: %w", err)
	}
	if _, err := time.ParseDuration(l.SnapshotInterval); err != nil {
		return fmt.Errorf("league.snapshot_interval invalid: %w", err)
	}
	return nil
}

func (a *AIConfig) validate() error {
	if len(a.Models) == 0 {
		return fmt.Errorf("ai.models requires at least one model")
	}
	for _, m := range a.Models {
		if strings.TrimSpace(m.Model) == "" {
			return fmt.Errorf("ai.models contains entry without model (id=%s)", m.ID)
		}
		if strings.TrimSpace(m.Provider) == "" {
			return fmt.Errorf("ai.models.%s missing provider", m.ID)
		}
		switch strings.ToLower(strings.TrimSpace(m.Provider)) {
		case "openai", "anthropic", "deepseek":
		default:
			return fmt.Errorf("ai.models.%s unknown provider %q", m.ID, m.Provider)
		}
	}
	if _, err := time.ParseDuration(a.RetryBackoff); err != nil {
		return fmt.Errorf("ai.retry_backoff invalid: %w", err)
	}
	for name, limit := range a.ProviderLimits {
		if limit <= 0 {
			return fmt.Errorf("ai.provider_limits.%s must be > 0", name)
		}
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if len(m.Symbols) == 0 {
		return fmt.Errorf("market.symbols cannot be empty")
	}
	seen := make(map[string]struct{}, len(m.Symbols))
	for _, sym := range m.Symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			return fmt.Errorf("market.symbols contains an empty entry")
		}
		if _, dup := seen[sym]; dup {
			return fmt.Errorf("market.symbols contains duplicate %s", sym)
		}
		seen[sym] = struct{}{}
	}
	return nil
}

// StartingCapitalDecimal 返回解析后的初始资金；Load 阶段已校验过。
func (l LeagueConfig) StartingCapitalDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(l.StartingCapital)
	return d
}

// DecisionIntervalDuration 返回决策周期；Load 阶段已校验过。
func (l LeagueConfig) DecisionIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(l.DecisionInterval)
	return d
}

// SnapshotIntervalDuration 返回排名快照周期；Load 阶段已校验过。
func (l LeagueConfig) SnapshotIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(l.SnapshotInterval)
	return d
}
