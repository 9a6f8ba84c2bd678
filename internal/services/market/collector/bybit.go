package collector

import (
	"context"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/trendsignal/internal/domain"
)

const (
	bybitMaxPerRequest = 200
	bybitPageDelay     = 100 * time.Millisecond
)

// BybitKlineProvider implements KlineProvider for Bybit spot market.
type BybitKlineProvider struct {
	client *bybit.Client
}

// NewBybitKlineProvider creates a new Bybit kline provider.
func NewBybitKlineProvider(client *bybit.Client) *BybitKlineProvider {
	return &BybitKlineProvider{client: client}
}

// GetKlines fetches kline data. Bybit returns klines newest first and at most
// 200 per call, so larger limits are paged backwards with the End parameter.
func (p *BybitKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	bybitInterval, err := convertIntervalToBybit(interval)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid interval: %s", interval)
	}
	dur, err := parseIntervalToDuration(interval)
	if err != nil {
		return nil, err
	}

	var (
		all       []domain.MarketCandle
		remaining = limit
		end       *int64
	)

	for remaining > 0 {
		batchSize := min(remaining, bybitMaxPerRequest)

		param := bybit.V5GetKlineParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   bybit.SymbolV5(pair.Symbol()),
			Interval: bybit.Interval(bybitInterval),
			Limit:    &batchSize,
			End:      end,
		}

		result, err := p.client.V5().Market().GetKline(param)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", pair.String())
		}
		if result == nil {
			return nil, errors.Errorf("empty result from Bybit API for %s", pair.String())
		}

		klines := result.Result.List
		if len(klines) == 0 {
			break
		}

		for i, k := range klines {
			openTime, err := parseTimestamp(k.StartTime)
			if err != nil {
				return nil, atIndex(err, len(all)+i)
			}
			raw := ohlcv{open: k.Open, high: k.High, low: k.Low, close: k.Close, volume: k.Volume}
			c, err := raw.candle(openTime, openTime.Add(dur-time.Millisecond))
			if err != nil {
				return nil, atIndex(err, len(all)+i)
			}
			all = append(all, c)
		}

		if len(klines) < batchSize {
			break
		}
		remaining -= len(klines)

		nextEnd := all[len(all)-1].OpenTime.UnixMilli() - 1
		end = &nextEnd

		if remaining > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(bybitPageDelay):
			}
		}
	}

	if len(all) == 0 {
		return nil, errors.Errorf("no kline data returned from Bybit for %s", pair.String())
	}

	return all, nil
}
