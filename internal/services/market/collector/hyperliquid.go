package collector

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/trendsignal/internal/domain"
)

// HyperliquidKlineProvider implements KlineProvider for Hyperliquid perpetuals.
// Hyperliquid quotes everything in USD, so only the base asset of the pair is used.
type HyperliquidKlineProvider struct {
	info *hyperliquid.Info
}

// NewHyperliquidKlineProvider creates a new Hyperliquid kline provider.
func NewHyperliquidKlineProvider(info *hyperliquid.Info) *HyperliquidKlineProvider {
	return &HyperliquidKlineProvider{info: info}
}

// GetKlines fetches kline data.
func (p *HyperliquidKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	if p.info == nil {
		return nil, errors.New("hyperliquid info is nil")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}
	dur, err := parseIntervalToDuration(interval)
	if err != nil {
		return nil, err
	}

	endMs := time.Now().UnixMilli()
	// two extra candles absorb rounding of the window edges
	startMs := endMs - (int64(limit)+2)*dur.Milliseconds()
	coin := strings.ToUpper(pair.From)

	candles, err := p.info.CandlesSnapshot(ctx, coin, interval, startMs, endMs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch candles from Hyperliquid for %s", coin)
	}
	if len(candles) == 0 {
		return nil, errors.Errorf("no candles from hyperliquid for %s %s", coin, interval)
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	out := make([]domain.MarketCandle, 0, len(candles))
	for i, c := range candles {
		raw := ohlcv{open: c.Open, high: c.High, low: c.Low, close: c.Close, volume: c.Volume}
		candle, err := raw.candle(time.UnixMilli(c.TimeOpen), time.UnixMilli(c.TimeClose))
		if err != nil {
			return nil, atIndex(err, i)
		}
		out = append(out, candle)
	}

	return out, nil
}
