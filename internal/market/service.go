package market

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kaiitheguy/stock-fantasy-api/internal/logger"
)

// QuoteSource abstracts the upstream data feed so tests can stub it.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
	Candles(ctx context.Context, symbol string, days int) ([]Candle, error)
}

// PriceSnapshot maps ticker to its last known price. Symbols whose
// fetch failed are simply absent.
type PriceSnapshot map[string]decimal.Decimal

// Service serves quotes for the league's symbol universe with a short
// TTL cache in front of the upstream feed. Every agent in a decision
// round sees the same snapshot.
type Service struct {
	source     QuoteSource
	symbols    []string
	ttl        time.Duration
	candleDays int

	mu      sync.Mutex
	cached  map[string]Quote
	fetched time.Time

	now func() time.Time
}

type ServiceParams struct {
	Source     QuoteSource
	Symbols    []string
	TTL        time.Duration
	CandleDays int
}

func NewService(p ServiceParams) *Service {
	ttl := p.TTL
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	days := p.CandleDays
	if days <= 0 {
		days = 300
	}
	return &Service{
		source:     p.Source,
		symbols:    append([]string(nil), p.Symbols...),
		ttl:        ttl,
		candleDays: days,
		now:        time.Now,
	}
}

// Symbols returns the configured universe.
func (s *Service) Symbols() []string {
	return append([]string(nil), s.symbols...)
}

// Quotes returns cached quotes for the whole universe, refreshing from
// upstream when the cache has expired. A symbol that fails to fetch is
// dropped from the result rather than failing the round; the previous
// cached value (if any) is kept so one flaky poll does not blank out a
// ticker.
func (s *Service) Quotes(ctx context.Context) map[string]Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && s.now().Sub(s.fetched) < s.ttl {
		return copyQuotes(s.cached)
	}

	next := make(map[string]Quote, len(s.symbols))
	for k, v := range s.cached {
		next[k] = v
	}
	for _, sym := range s.symbols {
		q, err := s.source.Quote(ctx, sym)
		if err != nil {
			logger.Warnf("market: quote %s failed: %v", sym, err)
			continue
		}
		next[sym] = q
	}
	s.cached = next
	s.fetched = s.now()
	return copyQuotes(next)
}

// Snapshot returns the current price per symbol for trade fills and
// scoring.
func (s *Service) Snapshot(ctx context.Context) PriceSnapshot {
	quotes := s.Quotes(ctx)
	snap := make(PriceSnapshot, len(quotes))
	for sym, q := range quotes {
		snap[sym] = q.Price
	}
	return snap
}

// Candles proxies the upstream daily bars with the configured lookback.
func (s *Service) Candles(ctx context.Context, symbol string) ([]Candle, error) {
	return s.source.Candles(ctx, symbol, s.candleDays)
}

// Invalidate drops the cache, forcing the next read to hit upstream.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.fetched = time.Time{}
	s.mu.Unlock()
}

func copyQuotes(in map[string]Quote) map[string]Quote {
	out := make(map[string]Quote, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
