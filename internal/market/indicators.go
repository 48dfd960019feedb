package market

import (
	"math"

	"github.com/markcheno/go-talib"
)

// IndicatorReport 汇总单个 symbol 的常用日线指标,供提示词使用。
type IndicatorReport struct {
	Symbol   string  `json:"symbol"`
	Count    int     `json:"count"`
	RSI14    float64 `json:"rsi_14"`
	EMA50    float64 `json:"ema_50"`
	EMA200   float64 `json:"ema_200"`
	MACD     float64 `json:"macd"`
	MACDSig  float64 `json:"macd_signal"`
	MACDHist float64 `json:"macd_hist"`
	Trend    string  `json:"trend,omitempty"`
}

// ComputeIndicators 基于日线序列计算 RSI/EMA/MACD。数据不足的指标保持 0。
func ComputeIndicators(symbol string, candles []Candle) IndicatorReport {
	rep := IndicatorReport{Symbol: symbol, Count: len(candles)}
	if len(candles) == 0 {
		return rep
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	if len(closes) > 14 {
		rep.RSI14 = last(talib.Rsi(closes, 14))
	}
	if len(closes) >= 50 {
		rep.EMA50 = last(talib.Ema(closes, 50))
	}
	if len(closes) >= 200 {
		rep.EMA200 = last(talib.Ema(closes, 200))
	}
	if len(closes) >= 35 {
		macd, sig, hist := talib.Macd(closes, 12, 26, 9)
		rep.MACD = last(macd)
		rep.MACDSig = last(sig)
		rep.MACDHist = last(hist)
	}
	rep.Trend = classifyTrend(closes[len(closes)-1], rep.EMA50, rep.EMA200)
	return rep
}

func classifyTrend(close, ema50, ema200 float64) string {
	if ema50 == 0 || ema200 == 0 {
		return ""
	}
	switch {
	case close > ema50 && ema50 > ema200:
		return "uptrend"
	case close < ema50 && ema50 < ema200:
		return "downtrend"
	default:
		return "sideways"
	}
}

func last(s []float64) float64 {
	for i := len(s) - 1; i >= 0; i-- {
		if !math.IsNaN(s[i]) {
			return s[i]
		}
	}
	return 0
}
