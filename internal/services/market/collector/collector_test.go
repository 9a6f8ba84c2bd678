package collector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/trendsignal/internal/domain"
	"github.com/vadiminshakov/trendsignal/pkg/retrier"
	"go.uber.org/zap"
)

type fakeProvider struct {
	mu      sync.Mutex
	candles map[string][]domain.MarketCandle
	errs    []error
	calls   int
}

func (f *fakeProvider) GetKlines(_ context.Context, pair domain.Pair, _ string, _ int) ([]domain.MarketCandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.candles[pair.From], nil
}

func hourly(start time.Time, closes ...int64) []domain.MarketCandle {
	out := make([]domain.MarketCandle, 0, len(closes))
	for i, c := range closes {
		open := start.Add(time.Duration(i) * time.Hour)
		out = append(out, domain.MarketCandle{
			OpenTime:  open,
			Open:      decimal.NewFromInt(c),
			High:      decimal.NewFromInt(c + 1),
			Low:       decimal.NewFromInt(c - 1),
			Close:     decimal.NewFromInt(c),
			Volume:    decimal.NewFromInt(1),
			CloseTime: open.Add(time.Hour - time.Millisecond),
		})
	}
	return out
}

func reversed(in []domain.MarketCandle) []domain.MarketCandle {
	out := make([]domain.MarketCandle, len(in))
	for i := range in {
		out[len(in)-1-i] = in[i]
	}
	return out
}

var testNow = time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)

func newTestCollector(p KlineProvider) *MarketDataCollector {
	return NewMarketDataCollector(p, "USD", zap.NewNop(),
		WithClock(func() time.Time { return testNow }),
		WithRetrier(retrier.New(retrier.WithMaxRetries(2), retrier.WithInitialInterval(time.Millisecond), retrier.WithRetryIf(isRetryable))),
	)
}

func TestClosedCandles_SortsAndDropsOpenCandle(t *testing.T) {
	// 08:00 .. 12:00, the 12:00 candle is still open at 12:00:30
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	provider := &fakeProvider{candles: map[string][]domain.MarketCandle{
		"ETH": reversed(hourly(start, 100, 101, 102, 103, 104)),
	}}

	c := newTestCollector(provider)
	candles, err := c.ClosedCandles(context.Background(), c.Pair("ETH"), "1h", 3)
	require.NoError(t, err)
	require.Len(t, candles, 3)

	assert.Equal(t, "101", candles[0].Close.String())
	assert.Equal(t, "102", candles[1].Close.String())
	assert.Equal(t, "103", candles[2].Close.String())
}

func TestClosedCandles_NotEnough(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	provider := &fakeProvider{candles: map[string][]domain.MarketCandle{
		"ETH": hourly(start, 100, 101, 102),
	}}

	c := newTestCollector(provider)
	_, err := c.ClosedCandles(context.Background(), c.Pair("ETH"), "1h", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotEnoughCandles)
	assert.Equal(t, 1, provider.calls)
}

func TestClosedCandles_RetriesProviderErrors(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		candles: map[string][]domain.MarketCandle{"ETH": hourly(start, 100, 101, 102, 103)},
		errs:    []error{errors.New("connection reset")},
	}

	c := newTestCollector(provider)
	candles, err := c.ClosedCandles(context.Background(), c.Pair("ETH"), "1h", 3)
	require.NoError(t, err)
	assert.Len(t, candles, 3)
	assert.Equal(t, 2, provider.calls)
}

func TestClosedCandles_InvalidInterval(t *testing.T) {
	c := newTestCollector(&fakeProvider{})
	_, err := c.ClosedCandles(context.Background(), c.Pair("ETH"), "1x", 3)
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	start := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	provider := &fakeProvider{candles: map[string][]domain.MarketCandle{
		"ETH": hourly(start, 100, 101, 102, 103, 104, 105),
		"BTC": reversed(hourly(start, 200, 201, 202, 203, 204, 205)),
		"SOL": hourly(start, 10, 11, 12, 13, 14, 15),
	}}

	c := newTestCollector(provider)
	snap, err := c.Snapshot(context.Background(), "1h")
	require.NoError(t, err)

	assert.Equal(t, "ETH/USD", snap.ETH.Symbol)
	assert.Equal(t, "BTC/USD", snap.BTC.Symbol)
	assert.Equal(t, "SOL/USD", snap.SOL.Symbol)
	assert.Equal(t, "104", domain.LastClose(snap.ETH))
	assert.Equal(t, "204", domain.LastClose(snap.BTC))
	assert.Equal(t, "14", domain.LastClose(snap.SOL))
	assert.Equal(t, testNow, snap.CollectedAt)
}

func TestWindow_FailsWhenOneAssetFails(t *testing.T) {
	start := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	provider := &fakeProvider{candles: map[string][]domain.MarketCandle{
		"ETH": hourly(start, 100, 101, 102, 103, 104, 105),
		"BTC": hourly(start, 200, 201, 202, 203, 204, 205),
	}}

	c := newTestCollector(provider)
	_, err := c.Window(context.Background(), "1h", 3)
	assert.ErrorIs(t, err, ErrNotEnoughCandles)
}

func TestParseIntervalToDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{input: "1m", expected: time.Minute},
		{input: "15m", expected: 15 * time.Minute},
		{input: "1h", expected: time.Hour},
		{input: "4h", expected: 4 * time.Hour},
		{input: "1d", expected: 24 * time.Hour},
		{input: "1w", expected: 7 * 24 * time.Hour},
		{input: "", wantErr: true},
		{input: "h", wantErr: true},
		{input: "0h", wantErr: true},
		{input: "ah", wantErr: true},
		{input: "1y", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := parseIntervalToDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}
