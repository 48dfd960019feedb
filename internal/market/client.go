package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultChartBaseURL = "https://query1.finance.yahoo.com"

// YahooClient fetches quotes and daily candles from the Yahoo Finance
// chart endpoint. It carries no API key; the endpoint only wants a
// browser-ish User-Agent.
type YahooClient struct {
	BaseURL string
	Timeout time.Duration

	httpc *http.Client
}

func NewYahooClient(baseURL string, timeout time.Duration) *YahooClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &YahooClient{
		BaseURL: baseURL,
		Timeout: timeout,
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (c *YahooClient) baseURL() string {
	b := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if b == "" {
		return defaultChartBaseURL
	}
	return b
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *YahooClient) fetchChart(ctx context.Context, symbol, rng, interval string) (*chartResponse, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL(), url.PathEscape(symbol))
	q := url.Values{}
	q.Set("range", rng)
	q.Set("interval", interval)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; stock-fantasy-api/1.0)")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("chart %s: read body: %w", symbol, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chart %s: status %d", symbol, resp.StatusCode)
	}
	var out chartResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("chart %s: decode: %w", symbol, err)
	}
	if out.Chart.Error != nil {
		return nil, fmt.Errorf("chart %s: %s: %s", symbol, out.Chart.Error.Code, out.Chart.Error.Description)
	}
	if len(out.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart %s: empty result", symbol)
	}
	return &out, nil
}

// Quote returns the latest regular-market price for symbol.
func (c *YahooClient) Quote(ctx context.Context, symbol string) (Quote, error) {
	resp, err := c.fetchChart(ctx, symbol, "1d", "1d")
	if err != nil {
		return Quote{}, err
	}
	meta := resp.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return Quote{}, fmt.Errorf("chart %s: no market price", symbol)
	}
	q := Quote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(meta.RegularMarketPrice),
		PrevClose: decimal.NewFromFloat(meta.PreviousClose),
		AsOf:      time.Unix(meta.RegularMarketTime, 0).UTC(),
	}
	if meta.PreviousClose > 0 {
		q.ChangePct = (meta.RegularMarketPrice - meta.PreviousClose) / meta.PreviousClose * 100
	}
	return q, nil
}

// Candles returns up to days daily bars for symbol, oldest first. Bars
// with a zero close (half-gap rows Yahoo sometimes emits) are dropped.
func (c *YahooClient) Candles(ctx context.Context, symbol string, days int) ([]Candle, error) {
	rng := "1y"
	if days > 0 && days <= 60 {
		rng = "3mo"
	} else if days > 365 {
		rng = "2y"
	}
	resp, err := c.fetchChart(ctx, symbol, rng, "1d")
	if err != nil {
		return nil, err
	}
	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart %s: no quote series", symbol)
	}
	series := result.Indicators.Quote[0]
	candles := make([]Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(series.Close) || series.Close[i] == 0 {
			continue
		}
		candles = append(candles, Candle{
			OpenTime: ts * 1000,
			Open:     at(series.Open, i),
			High:     at(series.High, i),
			Low:      at(series.Low, i),
			Close:    series.Close[i],
			Volume:   at(series.Volume, i),
		})
	}
	if days > 0 && len(candles) > days {
		candles = candles[len(candles)-days:]
	}
	return candles, nil
}

func at(s []float64, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}
