package config

// Config 是 stock-fantasy-api 的主配置载体。
type Config struct {
	App     AppConfig     `toml:"app"`
	League  LeagueConfig  `toml:"league"`
	AI      AIConfig      `toml:"ai"`
	Market  MarketConfig  `toml:"market"`
	Storage StorageConfig `toml:"storage"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogJSON  bool   `toml:"log_json"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	LLMLog   string `toml:"llm_log_path"`
}

// LeagueConfig 控制模拟账户与比赛节奏。
type LeagueConfig struct {
	StartingCapital     string  `toml:"starting_capital"`      // 每个 agent 的初始资金（美元）
	MaxPositions        int     `toml:"max_positions"`         // 最多同时持有的股票数
	MaxPositionFraction float64 `toml:"max_position_fraction"` // 单只股票占组合的最大比例 0~1
	DecisionInterval    string  `toml:"decision_interval"`     // 决策周期，如 "1h"、"1d"
	SnapshotInterval    string  `toml:"snapshot_interval"`     // 排名快照周期，如 "24h"
	RunImmediately      bool    `toml:"run_immediately"`
}

// AIConfig 包含模型目录与编排参数。
type AIConfig struct {
	TimeoutSeconds   int            `toml:"timeout_seconds"`   // 单次请求超时（默认 10s）
	RetryBackoff     string         `toml:"retry_backoff"`     // 重试前等待，如 "2s"
	ProviderLimits   map[string]int `toml:"provider_limits"`   // provider -> 最大并发
	Models           []ModelConfig  `toml:"models"`
	StylesPath       string         `toml:"styles_path"`       // 风格提示词 YAML
	WatchStyles      bool           `toml:"watch_styles"`      // 热更新风格文件
}

// ModelConfig 代表目录中的一个可用模型。
type ModelConfig struct {
	ID       string `toml:"id"`
	Provider string `toml:"provider"` // openai | anthropic | deepseek
	APIURL   string `toml:"api_url"`
	APIKey   string `toml:"api_key"` // 支持 ${ENV_VAR} 展开
	Model    string `toml:"model"`
	CostTier string `toml:"cost_tier"` // cheap | medium | expensive
	Enabled  bool   `toml:"enabled"`
	MaxTokens int   `toml:"max_tokens"`
}

type MarketConfig struct {
	Symbols         []string `toml:"symbols"`
	QuoteBaseURL    string   `toml:"quote_base_url"`
	CacheTTLSeconds int      `toml:"cache_ttl_seconds"`
	CandleDays      int      `toml:"candle_days"` // 指标回看天数
	TimeoutSeconds  int      `toml:"timeout_seconds"`
}

type StorageConfig struct {
	LedgerPath      string `toml:"ledger_path"`       // sqlite 账本
	DecisionLogPath string `toml:"decision_log_path"` // 原始模型输出日志库
}
