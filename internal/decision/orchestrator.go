package decision

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kaiitheguy/stock-fantasy-api/internal/gateway/provider"
	"github.com/kaiitheguy/stock-fantasy-api/internal/logger"
)

// 中文说明：
// 编排器对一批 agent 并发发起模型调用：
// - 按 provider 族限流（semaphore），尊重上游速率限制；
// - 每个请求独立超时；瞬时错误（超时/网络/429/5xx）恰好重试一次；
// - 任一 agent 全部尝试失败时合成降级 hold，保证返回值覆盖全部输入。

const (
	defaultTimeout       = 10 * time.Second
	defaultRetryBackoff  = 2 * time.Second
	defaultProviderLimit = 4
)

// RawObserver 在每次模型调用完成后收到原始输出（含失败），用于转录持久化。
type RawObserver func(ModelOutput)

type Orchestrator struct {
	providers map[string]provider.ModelProvider // 模型条目 ID -> provider
	limMu     sync.Mutex
	limiters  map[string]*semaphore.Weighted // provider 族 -> 并发限制
	timeout   time.Duration
	backoff   time.Duration
	tickers   TickerSet
	observer  RawObserver

	// 测试注入点。
	sleep func(context.Context, time.Duration)
}

type OrchestratorParams struct {
	Providers      map[string]provider.ModelProvider
	ProviderLimits map[string]int // provider 族 -> 最大并发，缺省 4
	Timeout        time.Duration
	RetryBackoff   time.Duration
	Tickers        TickerSet
	Observer       RawObserver
}

func NewOrchestrator(p OrchestratorParams) (*Orchestrator, error) {
	if len(p.Providers) == 0 {
		return nil, fmt.Errorf("orchestrator requires providers")
	}
	if p.Timeout <= 0 {
		p.Timeout = defaultTimeout
	}
	if p.RetryBackoff <= 0 {
		p.RetryBackoff = defaultRetryBackoff
	}
	limiters := make(map[string]*semaphore.Weighted, len(p.ProviderLimits))
	for family, limit := range p.ProviderLimits {
		if limit <= 0 {
			limit = defaultProviderLimit
		}
		limiters[strings.ToLower(family)] = semaphore.NewWeighted(int64(limit))
	}
	return &Orchestrator{
		providers: p.Providers,
		limiters:  limiters,
		timeout:   p.Timeout,
		backoff:   p.RetryBackoff,
		tickers:   p.Tickers,
		observer:  p.Observer,
		sleep:     sleepCtx,
	}, nil
}

// RunBatch 对每个请求取回一个 Decision。返回的 map 覆盖所有输入 agent，
// 与完成顺序无关；个别失败只会降级对应条目，不会让整批失败。
func (o *Orchestrator) RunBatch(ctx context.Context, reqs []BatchRequest) map[int]Decision {
	out := make(map[int]Decision, len(reqs))
	if len(reqs) == 0 {
		return out
	}

	var mu sync.Mutex
	// 不用 errgroup 的取消语义：一个 agent 的失败绝不能波及兄弟请求。
	eg := new(errgroup.Group)
	for _, req := range reqs {
		req := req
		eg.Go(func() error {
			d := o.decideOne(ctx, req)
			mu.Lock()
			out[req.AgentID] = d
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

func (o *Orchestrator) decideOne(ctx context.Context, req BatchRequest) Decision {
	traceID := uuid.NewString()
	raw, err := o.callWithRetry(ctx, req, traceID)
	if err != nil {
		logger.Warnf("agent %d model %s failed after retry: %v", req.AgentID, req.ModelID, err)
		return Decision{
			AgentID:    req.AgentID,
			Action:     ActionHold,
			Confidence: 0,
			Reasoning:  ReasonProviderError,
			ProducedAt: time.Now().UTC(),
			TraceID:    traceID,
		}
	}
	d := ParseAndValidate(raw, o.tickers)
	d.AgentID = req.AgentID
	d.TraceID = traceID
	return d
}

func (o *Orchestrator) callWithRetry(ctx context.Context, req BatchRequest, traceID string) (string, error) {
	p, ok := o.providers[req.ModelID]
	if !ok || !p.Enabled() {
		return "", fmt.Errorf("model %q not available", req.ModelID)
	}

	if lim := o.limiterFor(req.Provider); lim != nil {
		if err := lim.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer lim.Release(1)
	}

	user := buildUserPrompt(req.MarketContext, req.AccountState)
	agentTag := fmt.Sprintf("agent-%d", req.AgentID)
	logger.LogLLMRequest(p.ID(), agentTag, req.SystemPrompt, user)

	raw, err := o.callOnce(ctx, p, req, user, agentTag, traceID)
	if err == nil {
		return raw, nil
	}
	if !provider.IsRetryable(err) || ctx.Err() != nil {
		return "", err
	}
	o.sleep(ctx, o.backoff)
	if ctx.Err() != nil {
		return "", err
	}
	return o.callOnce(ctx, p, req, user, agentTag, traceID)
}

func (o *Orchestrator) callOnce(ctx context.Context, p provider.ModelProvider, req BatchRequest, user, agentTag, traceID string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	raw, err := p.Call(cctx, provider.ChatPayload{System: req.SystemPrompt, User: user})
	elapsed := time.Since(start)

	if err != nil {
		logger.LogLLMResponse(p.ID(), agentTag, "ERROR: "+err.Error())
	} else {
		logger.LogLLMResponse(p.ID(), agentTag, raw)
	}
	if o.observer != nil {
		o.observer(ModelOutput{
			AgentID:    req.AgentID,
			TraceID:    traceID,
			ProviderID: p.ID(),
			System:     req.SystemPrompt,
			User:       user,
			Raw:        raw,
			Err:        err,
			Elapsed:    elapsed,
		})
	}
	return raw, err
}

// limiterFor 返回该 provider 族的并发限制；未配置的族按默认并发度懒创建，
// 保证所有上游调用都是有界的。
func (o *Orchestrator) limiterFor(family string) *semaphore.Weighted {
	key := strings.ToLower(strings.TrimSpace(family))
	o.limMu.Lock()
	defer o.limMu.Unlock()
	if lim, ok := o.limiters[key]; ok {
		return lim
	}
	lim := semaphore.NewWeighted(defaultProviderLimit)
	o.limiters[key] = lim
	return lim
}

func buildUserPrompt(marketContext, accountState string) string {
	var b strings.Builder
	b.WriteString("Current Market Data:\n")
	b.WriteString(marketContext)
	b.WriteString("\n\nAccount State:\n")
	b.WriteString(accountState)
	b.WriteString("\n\nBased on the above, what is your trading decision? Respond with valid JSON only.")
	return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
