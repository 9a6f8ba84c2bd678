package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/trendsignal/internal/domain"
	"go.uber.org/zap"
)

// CachedKlineProvider keeps provider responses on disk as <BASE>_<interval>_data.json
// and serves them until they are older than maxAge. A zero maxAge never expires.
type CachedKlineProvider struct {
	provider KlineProvider
	dir      string
	maxAge   time.Duration
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewCachedKlineProvider creates a file-backed cache in dir.
func NewCachedKlineProvider(provider KlineProvider, dir string, maxAge time.Duration, logger *zap.Logger) (*CachedKlineProvider, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create cache dir %s", dir)
	}
	return &CachedKlineProvider{provider: provider, dir: dir, maxAge: maxAge, logger: logger}, nil
}

// GetKlines returns cached candles when the cache file is fresh and long enough,
// otherwise fetches from the wrapped provider and rewrites the file.
func (p *CachedKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	path := p.path(pair, interval)

	if candles, ok := p.load(path, limit); ok {
		p.logger.Debug("serving candles from cache", zap.String("file", path), zap.Int("count", len(candles)))
		return candles[len(candles)-limit:], nil
	}

	candles, err := p.provider.GetKlines(ctx, pair, interval, limit)
	if err != nil {
		return nil, err
	}

	if err := p.store(path, candles); err != nil {
		p.logger.Warn("failed to write candle cache", zap.String("file", path), zap.Error(err))
	}

	return candles, nil
}

func (p *CachedKlineProvider) path(pair domain.Pair, interval string) string {
	return filepath.Join(p.dir, fmt.Sprintf("%s_%s_data.json", pair.From, interval))
}

func (p *CachedKlineProvider) load(path string, limit int) ([]domain.MarketCandle, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if p.maxAge > 0 && time.Since(info.ModTime()) > p.maxAge {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var candles []domain.MarketCandle
	if err := json.Unmarshal(data, &candles); err != nil {
		p.logger.Warn("ignoring corrupt candle cache", zap.String("file", path), zap.Error(err))
		return nil, false
	}
	if len(candles) < limit {
		return nil, false
	}

	return candles, true
}

func (p *CachedKlineProvider) store(path string, candles []domain.MarketCandle) error {
	data, err := json.Marshal(candles)
	if err != nil {
		return errors.Wrap(err, "failed to encode candles")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write cache file")
	}
	return errors.Wrap(os.Rename(tmp, path), "failed to replace cache file")
}
