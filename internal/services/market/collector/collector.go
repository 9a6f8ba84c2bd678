// Package collector provides utilities for collecting market data
// such as klines (candlestick data) from cryptocurrency exchanges.
package collector

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/trendsignal/internal/domain"
	"github.com/vadiminshakov/trendsignal/pkg/retrier"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const fetchTimeout = 30 * time.Second

// ErrNotEnoughCandles returned when the provider has fewer closed candles than requested.
var ErrNotEnoughCandles = errors.New("not enough closed candles")

// Assets base currencies tracked by the service, in decision order.
var Assets = [3]string{"ETH", "BTC", "SOL"}

// KlineProvider defines the interface for fetching kline (candlestick) data.
type KlineProvider interface {
	// GetKlines fetches historical kline data for a trading pair.
	// interval uses the "1m", "1h", "1d" notation.
	GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error)
}

// MarketDataCollector fetches closed candles of ETH, BTC and SOL against one quote currency.
type MarketDataCollector struct {
	provider KlineProvider
	quote    string
	logger   *zap.Logger
	retrier  *retrier.Retrier
	now      func() time.Time
}

// Option configures the MarketDataCollector.
type Option func(*MarketDataCollector)

// WithClock overrides the time source used to decide whether a candle has closed.
func WithClock(now func() time.Time) Option {
	return func(c *MarketDataCollector) {
		c.now = now
	}
}

// WithRetrier overrides the retry policy for provider calls.
func WithRetrier(r *retrier.Retrier) Option {
	return func(c *MarketDataCollector) {
		c.retrier = r
	}
}

// NewMarketDataCollector creates a new market data collector.
func NewMarketDataCollector(provider KlineProvider, quote string, logger *zap.Logger, opts ...Option) *MarketDataCollector {
	c := &MarketDataCollector{
		provider: provider,
		quote:    quote,
		logger:   logger,
		retrier: retrier.New(
			retrier.WithMaxRetries(3),
			retrier.WithRetryIf(isRetryable),
		),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pair returns the pair of the given base asset in the collector's quote currency.
func (c *MarketDataCollector) Pair(base string) domain.Pair {
	return domain.Pair{From: base, To: c.quote}
}

// ClosedCandles returns the last count fully closed candles of the pair, oldest first.
func (c *MarketDataCollector) ClosedCandles(ctx context.Context, pair domain.Pair, interval string, count int) ([]domain.MarketCandle, error) {
	dur, err := parseIntervalToDuration(interval)
	if err != nil {
		return nil, err
	}

	// one extra candle covers the still-open one most exchanges return last
	candles, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]domain.MarketCandle, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		return c.provider.GetKlines(fetchCtx, pair, interval, count+1)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines for %s", pair.String())
	}

	closed := filterClosed(candles, dur, c.now())
	if len(closed) < count {
		return nil, errors.Wrapf(ErrNotEnoughCandles, "%s %s: need %d, got %d", pair.String(), interval, count, len(closed))
	}

	c.logger.Debug("fetched closed candles",
		zap.String("pair", pair.String()),
		zap.String("interval", interval),
		zap.Int("count", count),
		zap.Time("last_open", closed[len(closed)-1].OpenTime))

	return closed[len(closed)-count:], nil
}

// Window fetches count closed candles of ETH, BTC and SOL concurrently.
func (c *MarketDataCollector) Window(ctx context.Context, interval string, count int) (domain.MarketWindow, error) {
	var assets [len(Assets)]domain.AssetCandles

	g, gctx := errgroup.WithContext(ctx)
	for i, base := range Assets {
		pair := c.Pair(base)
		g.Go(func() error {
			candles, err := c.ClosedCandles(gctx, pair, interval, count)
			if err != nil {
				return err
			}
			assets[i] = domain.AssetCandles{Pair: pair, Candles: candles}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.MarketWindow{}, err
	}

	w := domain.MarketWindow{ETH: assets[0], BTC: assets[1], SOL: assets[2], CollectedAt: c.now()}
	return w.Align(), nil
}

// Snapshot fetches the last three closed candles of every asset.
func (c *MarketDataCollector) Snapshot(ctx context.Context, interval string) (domain.MarketSnapshot, error) {
	w, err := c.Window(ctx, interval, domain.SeriesLength)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	return w.Snapshot()
}

// filterClosed sorts candles oldest first and drops those still open at now.
func filterClosed(candles []domain.MarketCandle, interval time.Duration, now time.Time) []domain.MarketCandle {
	sorted := make([]domain.MarketCandle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OpenTime.Before(sorted[j].OpenTime)
	})

	out := sorted[:0]
	for _, k := range sorted {
		if k.OpenTime.Add(interval).After(now) {
			continue
		}
		out = append(out, k)
	}
	return out
}

func isRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, ErrNotEnoughCandles)
}
