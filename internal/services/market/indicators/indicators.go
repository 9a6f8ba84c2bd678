// Package indicators summarizes a candle window with EMA, RSI and ATR
// using the cinar/indicator library, plus relative volume.
package indicators

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendsignal/internal/domain"
)

const (
	emaPeriod = 20
	rsiPeriod = 14
	atrPeriod = 14
)

// MinCandles shortest window Summarize accepts.
const MinCandles = emaPeriod + 1

// Summary latest indicator values of a candle window.
type Summary struct {
	EMA20 decimal.Decimal
	RSI14 decimal.Decimal
	ATR14 decimal.Decimal
	// RelVolume last candle volume over the 20-candle average.
	RelVolume decimal.Decimal
}

// Summarize computes the indicators over candles ordered oldest first
// and returns the values at the last candle.
func Summarize(candles []domain.MarketCandle) (Summary, error) {
	if len(candles) < MinCandles {
		return Summary{}, errors.Errorf("not enough data points: need at least %d, got %d", MinCandles, len(candles))
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High.InexactFloat64()
		lows[i] = c.Low.InexactFloat64()
		closes[i] = c.Close.InexactFloat64()
	}

	ema, err := last("EMA20", trend.NewEmaWithPeriod[float64](emaPeriod).Compute(helper.SliceToChan(closes)))
	if err != nil {
		return Summary{}, err
	}

	rsi, err := last("RSI14", momentum.NewRsiWithPeriod[float64](rsiPeriod).Compute(helper.SliceToChan(closes)))
	if err != nil {
		return Summary{}, err
	}

	atr := volatility.NewAtrWithPeriod[float64](atrPeriod).Compute(
		helper.SliceToChan(highs),
		helper.SliceToChan(lows),
		helper.SliceToChan(closes),
	)
	atrValue, err := last("ATR14", atr)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		EMA20:     ema,
		RSI14:     rsi,
		ATR14:     atrValue,
		RelVolume: AnalyzeVolume(candles).Relative,
	}, nil
}

// last drains the indicator channel and returns its final value.
func last(name string, values <-chan float64) (decimal.Decimal, error) {
	out := helper.ChanToSlice(values)
	if len(out) == 0 {
		return decimal.Zero, errors.Errorf("%s produced no values", name)
	}

	v := out[len(out)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, errors.Errorf("%s is not finite", name)
	}

	return decimal.NewFromFloat(v), nil
}
