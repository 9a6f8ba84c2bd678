package collector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendsignal/internal/domain"
)

const (
	// CoinbaseBaseURL public Coinbase Exchange REST endpoint.
	CoinbaseBaseURL = "https://api.exchange.coinbase.com"

	coinbaseMaxCandles = 300
	coinbaseUserAgent  = "trendsignal/1.0"
)

// CoinbaseKlineProvider implements KlineProvider over the public Coinbase Exchange candles API.
type CoinbaseKlineProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinbaseKlineProvider creates a new Coinbase kline provider.
func NewCoinbaseKlineProvider(baseURL string, httpClient *http.Client) *CoinbaseKlineProvider {
	if baseURL == "" {
		baseURL = CoinbaseBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: fetchTimeout}
	}
	return &CoinbaseKlineProvider{baseURL: baseURL, httpClient: httpClient}
}

// GetKlines fetches up to 300 candles ending now.
// Each row of the response is [time, low, high, open, close, volume], newest first.
func (p *CoinbaseKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}
	if limit > coinbaseMaxCandles {
		return nil, errors.Errorf("coinbase serves at most %d candles per request, got %d", coinbaseMaxCandles, limit)
	}
	dur, err := parseIntervalToDuration(interval)
	if err != nil {
		return nil, err
	}

	end := time.Now().UTC().Truncate(dur).Add(dur)
	start := end.Add(-time.Duration(limit) * dur)

	query := url.Values{}
	query.Set("start", start.Format(time.RFC3339))
	query.Set("end", end.Format(time.RFC3339))
	query.Set("granularity", strconv.Itoa(int(dur/time.Second)))

	endpoint := p.baseURL + "/products/" + pair.From + "-" + pair.To + "/candles?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	// Coinbase rejects requests without a user agent
	req.Header.Set("User-Agent", coinbaseUserAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch candles from Coinbase for %s", pair.String())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("coinbase returned status %d for %s: %s", resp.StatusCode, pair.String(), string(body))
	}

	var rows [][]decimal.Decimal
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(err, "failed to decode coinbase candles")
	}

	out := make([]domain.MarketCandle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, atIndex(errors.Errorf("expected 6 fields, got %d", len(row)), i)
		}
		openTime := time.Unix(row[0].IntPart(), 0).UTC()
		out = append(out, domain.MarketCandle{
			OpenTime:  openTime,
			Low:       row[1],
			High:      row[2],
			Open:      row[3],
			Close:     row[4],
			Volume:    row[5],
			CloseTime: openTime.Add(dur - time.Millisecond),
		})
	}

	return out, nil
}
