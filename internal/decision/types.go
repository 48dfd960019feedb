package decision

import "time"

// 中文说明：
// 本文件定义决策管线的通用数据结构：单笔决策、批量请求与原始模型输出。

// 合法动作。
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

// 降级 hold 的原因标签。
const (
	ReasonProviderError   = "provider_error"
	ReasonMalformedOutput = "malformed_output"
	ReasonInvalidAction   = "invalid_action"
	ReasonUnknownTicker   = "unknown_ticker"
	ReasonInvalidQuantity = "invalid_quantity"
)

// Decision 单笔交易决策。产生后不可变，无论是否被执行都会被持久化。
type Decision struct {
	AgentID    int       `json:"agent_id"`
	Action     string    `json:"action"` // buy/sell/hold
	Ticker     string    `json:"ticker,omitempty"`
	Quantity   int64     `json:"quantity,omitempty"`
	Confidence float64   `json:"confidence"` // 已钳制到 [0,1]
	Reasoning  string    `json:"reasoning,omitempty"`
	ProducedAt time.Time `json:"produced_at"`
	Malformed  bool      `json:"malformed"`
	TraceID    string    `json:"trace_id,omitempty"`
}

// BatchRequest 批量决策请求中的一个条目。
type BatchRequest struct {
	AgentID       int
	ModelID       string // 目录中的模型条目 ID（providers map 的键）
	Provider      string // provider 族（openai/anthropic/deepseek），用于并发限流
	SystemPrompt  string
	MarketContext string
	AccountState  string
}

// ModelOutput 一次模型调用的原始结果，供转录持久化。
type ModelOutput struct {
	AgentID    int
	TraceID    string
	ProviderID string
	System     string
	User       string
	Raw        string
	Err        error
	Elapsed    time.Duration
}

// TickerSet 用于校验 ticker 是否可交易。
type TickerSet map[string]struct{}

// NewTickerSet 把符号列表规范化成集合。
func NewTickerSet(symbols []string) TickerSet {
	set := make(TickerSet, len(symbols))
	for _, s := range symbols {
		set[normalizeTicker(s)] = struct{}{}
	}
	return set
}

func (s TickerSet) Contains(ticker string) bool {
	_, ok := s[normalizeTicker(ticker)]
	return ok
}
