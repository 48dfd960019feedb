package market

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mu     sync.Mutex
	quotes map[string]Quote
	fails  map[string]bool
	calls  int
}

func (s *stubSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fails[symbol] {
		return Quote{}, fmt.Errorf("upstream down")
	}
	q, ok := s.quotes[symbol]
	if !ok {
		return Quote{}, fmt.Errorf("unknown symbol %s", symbol)
	}
	return q, nil
}

func (s *stubSource) Candles(ctx context.Context, symbol string, days int) ([]Candle, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newStub() *stubSource {
	return &stubSource{
		quotes: map[string]Quote{
			"AAPL": {Symbol: "AAPL", Price: decimal.NewFromInt(150), ChangePct: 1.2},
			"MSFT": {Symbol: "MSFT", Price: decimal.NewFromInt(300), ChangePct: -0.4},
		},
		fails: map[string]bool{},
	}
}

func TestService_SnapshotAndCacheTTL(t *testing.T) {
	src := newStub()
	svc := NewService(ServiceParams{Source: src, Symbols: []string{"AAPL", "MSFT"}, TTL: 60 * time.Second})

	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	snap := svc.Snapshot(context.Background())
	require.Len(t, snap, 2)
	assert.True(t, snap["AAPL"].Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 2, src.callCount())

	// within TTL: served from cache
	now = now.Add(30 * time.Second)
	svc.Snapshot(context.Background())
	assert.Equal(t, 2, src.callCount())

	// past TTL: refetched
	now = now.Add(31 * time.Second)
	svc.Snapshot(context.Background())
	assert.Equal(t, 4, src.callCount())
}

func TestService_PartialFailureKeepsLastQuote(t *testing.T) {
	src := newStub()
	svc := NewService(ServiceParams{Source: src, Symbols: []string{"AAPL", "MSFT"}, TTL: time.Second})

	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	first := svc.Snapshot(context.Background())
	require.Len(t, first, 2)

	src.mu.Lock()
	src.fails["MSFT"] = true
	src.quotes["AAPL"] = Quote{Symbol: "AAPL", Price: decimal.NewFromInt(155)}
	src.mu.Unlock()

	now = now.Add(2 * time.Second)
	second := svc.Snapshot(context.Background())

	// AAPL refreshed, MSFT kept from the previous poll
	assert.True(t, second["AAPL"].Equal(decimal.NewFromInt(155)))
	assert.True(t, second["MSFT"].Equal(decimal.NewFromInt(300)))
}

func TestService_FailedSymbolAbsentUntilFirstSuccess(t *testing.T) {
	src := newStub()
	src.fails["MSFT"] = true
	svc := NewService(ServiceParams{Source: src, Symbols: []string{"AAPL", "MSFT"}})

	snap := svc.Snapshot(context.Background())
	_, ok := snap["MSFT"]
	assert.False(t, ok)
	assert.Len(t, snap, 1)
}

func TestService_Invalidate(t *testing.T) {
	src := newStub()
	svc := NewService(ServiceParams{Source: src, Symbols: []string{"AAPL"}, TTL: time.Hour})

	svc.Snapshot(context.Background())
	svc.Snapshot(context.Background())
	assert.Equal(t, 1, src.callCount())

	svc.Invalidate()
	svc.Snapshot(context.Background())
	assert.Equal(t, 2, src.callCount())
}

func TestRenderContext(t *testing.T) {
	quotes := map[string]Quote{
		"AAPL": {Symbol: "AAPL", Price: decimal.RequireFromString("233.12"), ChangePct: 0.85},
	}
	reports := map[string]IndicatorReport{
		"AAPL": {
			Symbol: "AAPL", Count: 250,
			RSI14: 56.2, EMA50: 228.41, EMA200: 210.07,
			MACD: 1.234, MACDSig: 0.987, Trend: "uptrend",
		},
	}
	out := RenderContext([]string{"AAPL", "MSFT"}, quotes, reports)

	// 提示词承诺提供 RSI/MACD/EMA,渲染结果必须逐项兑现。
	assert.Contains(t, out, "AAPL: $233.12 (+0.85%)")
	assert.Contains(t, out, "RSI14=56.2")
	assert.Contains(t, out, "EMA50=228.41")
	assert.Contains(t, out, "EMA200=210.07")
	assert.Contains(t, out, "MACD=1.234/0.987")
	assert.Contains(t, out, "uptrend")
	assert.Contains(t, out, "MSFT: no data")
}

func TestRenderContext_OmitsUncomputedIndicators(t *testing.T) {
	quotes := map[string]Quote{
		"AAPL": {Symbol: "AAPL", Price: decimal.RequireFromString("233.12"), ChangePct: 0.85},
	}
	reports := map[string]IndicatorReport{
		"AAPL": {Symbol: "AAPL", Count: 20, RSI14: 48.0},
	}
	out := RenderContext([]string{"AAPL"}, quotes, reports)

	assert.Contains(t, out, "RSI14=48.0")
	assert.NotContains(t, out, "EMA50")
	assert.NotContains(t, out, "MACD")
}

func TestComputeIndicators_ShortSeries(t *testing.T) {
	candles := []Candle{{Close: 100}, {Close: 101}, {Close: 102}}
	rep := ComputeIndicators("AAPL", candles)

	assert.Equal(t, 3, rep.Count)
	assert.Zero(t, rep.RSI14)
	assert.Zero(t, rep.EMA50)
	assert.Empty(t, rep.Trend)
}

func TestComputeIndicators_Empty(t *testing.T) {
	rep := ComputeIndicators("AAPL", nil)
	assert.Zero(t, rep.Count)
}
