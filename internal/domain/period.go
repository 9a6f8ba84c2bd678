package domain

import (
	"github.com/shopspring/decimal"
)

// SeriesLength number of periods in an AssetSeries.
const SeriesLength = 3

// Period close/high/low snapshot of one hourly candle.
// low <= close <= high is assumed, not enforced.
type Period struct {
	Close decimal.Decimal `json:"close"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
}

// NewPeriod builds a Period from float prices.
func NewPeriod(close, high, low float64) Period {
	return Period{
		Close: decimal.NewFromFloat(close),
		High:  decimal.NewFromFloat(high),
		Low:   decimal.NewFromFloat(low),
	}
}

// AssetSeries the last three periods of one trading pair, oldest first.
type AssetSeries struct {
	Symbol  string   `json:"symbol"`
	Periods []Period `json:"periods"`
}

// NewAssetSeries builds and validates a series.
func NewAssetSeries(symbol string, periods ...Period) (AssetSeries, error) {
	s := AssetSeries{Symbol: symbol, Periods: periods}
	if err := s.Validate(); err != nil {
		return AssetSeries{}, err
	}
	return s, nil
}

// SeriesFromCandles takes the last three candles, which must be ordered oldest first.
func SeriesFromCandles(symbol string, candles []MarketCandle) (AssetSeries, error) {
	if len(candles) < SeriesLength {
		return AssetSeries{}, NewInvalidInputError(symbol, "need %d candles, got %d", SeriesLength, len(candles))
	}

	tail := candles[len(candles)-SeriesLength:]
	periods := make([]Period, 0, SeriesLength)
	for _, c := range tail {
		periods = append(periods, c.Period())
	}

	return NewAssetSeries(symbol, periods...)
}

// Validate checks the period count and that every price field is strictly positive.
func (s AssetSeries) Validate() error {
	if len(s.Periods) != SeriesLength {
		return NewInvalidInputError(s.Symbol, "expected %d periods, got %d", SeriesLength, len(s.Periods))
	}

	for i, p := range s.Periods {
		fields := []struct {
			name  string
			value decimal.Decimal
		}{
			{"close", p.Close},
			{"high", p.High},
			{"low", p.Low},
		}
		for _, f := range fields {
			if !f.value.IsPositive() {
				return NewInvalidInputError(s.Symbol, "period %d: %s must be positive, got %s", i+1, f.name, f.value.String())
			}
		}
	}

	return nil
}

// Closes returns the close prices oldest first.
func (s AssetSeries) Closes() []decimal.Decimal {
	return s.column(func(p Period) decimal.Decimal { return p.Close })
}

// Highs returns the high prices oldest first.
func (s AssetSeries) Highs() []decimal.Decimal {
	return s.column(func(p Period) decimal.Decimal { return p.High })
}

// Lows returns the low prices oldest first.
func (s AssetSeries) Lows() []decimal.Decimal {
	return s.column(func(p Period) decimal.Decimal { return p.Low })
}

func (s AssetSeries) column(pick func(Period) decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(s.Periods))
	for i, p := range s.Periods {
		out[i] = pick(p)
	}
	return out
}
