package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketCandle single OHLCV candlestick.
type MarketCandle struct {
	OpenTime  time.Time       `json:"open_time"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	CloseTime time.Time       `json:"close_time"`
}

// Period reduces the candle to the close/high/low triple used for trend classification.
func (c MarketCandle) Period() Period {
	return Period{Close: c.Close, High: c.High, Low: c.Low}
}
