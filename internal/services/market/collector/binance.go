package collector

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/trendsignal/internal/domain"
)

// BinanceKlineProvider implements KlineProvider for Binance exchange.
type BinanceKlineProvider struct {
	client *binance.Client
}

// NewBinanceKlineProvider creates a new Binance kline provider.
func NewBinanceKlineProvider(client *binance.Client) *BinanceKlineProvider {
	return &BinanceKlineProvider{client: client}
}

// GetKlines fetches kline data from Binance.
func (p *BinanceKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(pair.Symbol()).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", pair.String())
	}

	result := make([]domain.MarketCandle, len(klines))
	for i, k := range klines {
		raw := ohlcv{open: k.Open, high: k.High, low: k.Low, close: k.Close, volume: k.Volume}
		c, err := raw.candle(time.UnixMilli(k.OpenTime), time.UnixMilli(k.CloseTime))
		if err != nil {
			return nil, atIndex(err, i)
		}
		result[i] = c
	}

	return result, nil
}
