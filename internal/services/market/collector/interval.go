package collector

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendsignal/internal/domain"
)

// parseIntervalToDuration supports "1m", "5m", "1h", "4h", "1d" and "1w".
func parseIntervalToDuration(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, errors.Errorf("invalid interval format: %q", interval)
	}

	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 0, errors.Errorf("invalid interval number: %q", interval)
	}

	switch interval[len(interval)-1] {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, errors.Errorf("unsupported interval unit: %q", interval)
	}
}

// convertIntervalToBybit converts standard interval format to Bybit format.
// Standard format: "1m", "5m", "15m", "1h", "4h", "1d", etc.
// Bybit format: "1", "5", "15", "60", "240", "D", etc.
func convertIntervalToBybit(interval string) (string, error) {
	dur, err := parseIntervalToDuration(interval)
	if err != nil {
		return "", err
	}

	switch interval[len(interval)-1] {
	case 'd':
		return "D", nil
	case 'w':
		return "W", nil
	default:
		return strconv.Itoa(int(dur / time.Minute)), nil
	}
}

// parseTimestamp converts a millisecond timestamp string to time.Time.
func parseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	msec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse timestamp: %s", ts)
	}

	return time.UnixMilli(msec), nil
}

// ohlcv raw string fields of one exchange kline.
type ohlcv struct {
	open, high, low, close, volume string
}

func (k ohlcv) candle(openTime, closeTime time.Time) (domain.MarketCandle, error) {
	fields := [5]string{k.open, k.high, k.low, k.close, k.volume}
	names := [5]string{"open", "high", "low", "close", "volume"}

	var values [5]decimal.Decimal
	for i, f := range fields {
		v, err := decimal.NewFromString(f)
		if err != nil {
			return domain.MarketCandle{}, errors.Wrapf(err, "failed to parse %s price", names[i])
		}
		values[i] = v
	}

	return domain.MarketCandle{
		OpenTime:  openTime,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		CloseTime: closeTime,
	}, nil
}

func atIndex(err error, i int) error {
	return errors.Wrapf(err, "kline %d", i)
}
