package domain

import "time"

// MarketSnapshot the three series consumed by one decision cycle.
type MarketSnapshot struct {
	ETH AssetSeries
	BTC AssetSeries
	SOL AssetSeries
	// CollectedAt time the candles were fetched.
	CollectedAt time.Time
}

// LastClose returns the most recent close of the series as a string, or "" when empty.
func LastClose(s AssetSeries) string {
	if len(s.Periods) == 0 {
		return ""
	}
	return s.Periods[len(s.Periods)-1].Close.String()
}

// AssetCandles closed candles of one pair, oldest first.
type AssetCandles struct {
	Pair    Pair
	Candles []MarketCandle
}

// Series converts the last three candles into an AssetSeries.
func (a AssetCandles) Series() (AssetSeries, error) {
	return SeriesFromCandles(a.Pair.Display(), a.Candles)
}

func (a AssetCandles) tail(n int) AssetCandles {
	if n >= len(a.Candles) {
		return a
	}
	return AssetCandles{Pair: a.Pair, Candles: a.Candles[len(a.Candles)-n:]}
}

// MarketWindow candle history of the three assets.
type MarketWindow struct {
	ETH         AssetCandles
	BTC         AssetCandles
	SOL         AssetCandles
	CollectedAt time.Time
}

// Len number of candles of the shortest asset; after Align every asset has this many.
func (w MarketWindow) Len() int {
	return min(len(w.ETH.Candles), len(w.BTC.Candles), len(w.SOL.Candles))
}

// Align keeps the candles whose OpenTime is present for every asset, then trims
// all assets to the same length, so that index i refers to the same hour for every asset.
func (w MarketWindow) Align() MarketWindow {
	assets := []AssetCandles{w.ETH, w.BTC, w.SOL}

	present := make(map[int64]int)
	for _, a := range assets {
		seen := make(map[int64]struct{}, len(a.Candles))
		for _, c := range a.Candles {
			seen[c.OpenTime.UnixMilli()] = struct{}{}
		}
		for k := range seen {
			present[k]++
		}
	}

	shared := func(a AssetCandles) AssetCandles {
		out := make([]MarketCandle, 0, len(a.Candles))
		for _, c := range a.Candles {
			if present[c.OpenTime.UnixMilli()] == len(assets) {
				out = append(out, c)
			}
		}
		return AssetCandles{Pair: a.Pair, Candles: out}
	}

	aligned := MarketWindow{ETH: shared(w.ETH), BTC: shared(w.BTC), SOL: shared(w.SOL), CollectedAt: w.CollectedAt}
	n := aligned.Len()
	return MarketWindow{
		ETH:         aligned.ETH.tail(n),
		BTC:         aligned.BTC.tail(n),
		SOL:         aligned.SOL.tail(n),
		CollectedAt: w.CollectedAt,
	}
}

// Slice returns candles [from, to) of an aligned window.
func (w MarketWindow) Slice(from, to int) MarketWindow {
	cut := func(a AssetCandles) AssetCandles {
		return AssetCandles{Pair: a.Pair, Candles: a.Candles[from:to]}
	}
	return MarketWindow{ETH: cut(w.ETH), BTC: cut(w.BTC), SOL: cut(w.SOL), CollectedAt: w.CollectedAt}
}

// Snapshot reduces the window to the three-period series the engine consumes.
func (w MarketWindow) Snapshot() (MarketSnapshot, error) {
	eth, err := w.ETH.Series()
	if err != nil {
		return MarketSnapshot{}, err
	}
	btc, err := w.BTC.Series()
	if err != nil {
		return MarketSnapshot{}, err
	}
	sol, err := w.SOL.Series()
	if err != nil {
		return MarketSnapshot{}, err
	}

	return MarketSnapshot{ETH: eth, BTC: btc, SOL: sol, CollectedAt: w.CollectedAt}, nil
}
