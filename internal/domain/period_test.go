package domain

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetSeries_Validate(t *testing.T) {
	valid := []Period{NewPeriod(100, 101, 99), NewPeriod(101, 102, 100), NewPeriod(102, 103, 101)}

	tests := []struct {
		name    string
		periods []Period
		wantErr bool
	}{
		{name: "valid", periods: valid},
		{name: "too few periods", periods: valid[:2], wantErr: true},
		{name: "too many periods", periods: append(append([]Period{}, valid...), NewPeriod(1, 1, 1)), wantErr: true},
		{name: "zero close", periods: []Period{NewPeriod(0, 101, 99), valid[1], valid[2]}, wantErr: true},
		{name: "negative low", periods: []Period{valid[0], valid[1], NewPeriod(102, 103, -1)}, wantErr: true},
		{name: "missing high", periods: []Period{valid[0], {Close: decimal.NewFromInt(1), Low: decimal.NewFromInt(1)}, valid[2]}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAssetSeries("ETH/USD", tt.periods...)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var invalid *InvalidInputError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, "ETH/USD", invalid.Symbol)
		})
	}
}

func TestSeriesFromCandles(t *testing.T) {
	base := time.Date(2024, 11, 29, 0, 0, 0, 0, time.UTC)
	candles := make([]MarketCandle, 0, 5)
	for i := 0; i < 5; i++ {
		price := decimal.NewFromInt(int64(100 + i))
		candles = append(candles, MarketCandle{
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     price,
			High:     price.Add(decimal.NewFromInt(1)),
			Low:      price.Sub(decimal.NewFromInt(1)),
			Close:    price,
		})
	}

	series, err := SeriesFromCandles("BTC/USD", candles)
	require.NoError(t, err)
	assert.Equal(t, "BTC/USD", series.Symbol)
	require.Len(t, series.Periods, SeriesLength)
	assert.True(t, series.Closes()[0].Equal(decimal.NewFromInt(102)))
	assert.True(t, series.Highs()[2].Equal(decimal.NewFromInt(105)))
	assert.True(t, series.Lows()[1].Equal(decimal.NewFromInt(102)))

	_, err = SeriesFromCandles("BTC/USD", candles[:2])
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewPair(t *testing.T) {
	p, err := NewPair("eth_usd")
	require.NoError(t, err)
	assert.Equal(t, Pair{From: "ETH", To: "USD"}, p)
	assert.Equal(t, "ETH/USD", p.Display())
	assert.Equal(t, "ETHUSD", p.Symbol())

	p, err = NewPair("SOL/USDT")
	require.NoError(t, err)
	assert.Equal(t, "SOL_USDT", p.String())

	_, err = NewPair("BTCUSD")
	assert.Error(t, err)
}
