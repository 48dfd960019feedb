package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one symbol's latest regular-session price.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	PrevClose decimal.Decimal `json:"prev_close"`
	ChangePct float64         `json:"change_pct"`
	AsOf      time.Time       `json:"as_of"`
}

// Candle is one daily OHLCV bar.
type Candle struct {
	OpenTime int64   `json:"open_time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

func (c Candle) TimeString() string {
	if c.OpenTime <= 0 {
		return "-"
	}
	return time.UnixMilli(c.OpenTime).UTC().Format("2006-01-02")
}
