package config

// S&P 500 子集，与赛制提示词中的可交易清单一致。
var defaultSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA",
	"META", "TSLA", "JNJ", "V", "WMT",
	"PG", "MA", "HD", "DIS", "PYPL",
	"NFLX", "INTC", "AMD", "CRM", "ADBE",
	"CSCO", "AVGO", "COST", "ABT", "KO",
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":8080"
	}

	if c.League.StartingCapital == "" {
		c.League.StartingCapital = "10000"
	}
	if c.League.MaxPositions <= 0 {
		c.League.MaxPositions = 5
	}
	if c.League.MaxPositionFraction <= 0 || c.League.MaxPositionFraction > 1 {
		c.League.MaxPositionFraction = 0.30
	}
	if c.League.DecisionInterval == "" {
		c.League.DecisionInterval = "1h"
	}
	if c.League.SnapshotInterval == "" {
		c.League.SnapshotInterval = "24h"
	}

	if c.AI.TimeoutSeconds <= 0 {
		c.AI.TimeoutSeconds = 10
	}
	if c.AI.RetryBackoff == "" {
		c.AI.RetryBackoff = "2s"
	}
	if c.AI.ProviderLimits == nil {
		c.AI.ProviderLimits = map[string]int{}
	}
	if c.AI.StylesPath == "" {
		c.AI.StylesPath = "configs/styles.yaml"
	}

	if len(c.Market.Symbols) == 0 {
		c.Market.Symbols = append([]string(nil), defaultSymbols...)
	}
	if c.Market.QuoteBaseURL == "" {
		c.Market.QuoteBaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Market.CacheTTLSeconds <= 0 {
		c.Market.CacheTTLSeconds = 60
	}
	if c.Market.CandleDays <= 0 {
		c.Market.CandleDays = 300
	}
	if c.Market.TimeoutSeconds <= 0 {
		c.Market.TimeoutSeconds = 15
	}

	if c.Storage.LedgerPath == "" {
		c.Storage.LedgerPath = "data/league.db"
	}
	if c.Storage.DecisionLogPath == "" {
		c.Storage.DecisionLogPath = "data/decision_log.db"
	}
}
