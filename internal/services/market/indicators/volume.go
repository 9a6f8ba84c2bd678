package indicators

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendsignal/internal/domain"
)

const (
	volumePeriod = 20
	// a candle whose volume exceeds 1.5x the average counts as a spike
	spikeFactor = "1.5"
)

// Volume activity of the last candle relative to the recent average.
type Volume struct {
	Current decimal.Decimal
	Average decimal.Decimal
	// Relative Current/Average, zero when there was no volume.
	Relative decimal.Decimal
	// Spikes indexes of candles above the spike threshold.
	Spikes []int
}

// AnalyzeVolume averages the volume of the last 20 candles (fewer when the window is
// shorter) and flags spikes across the whole window.
func AnalyzeVolume(candles []domain.MarketCandle) Volume {
	if len(candles) == 0 {
		return Volume{Current: decimal.Zero, Average: decimal.Zero, Relative: decimal.Zero}
	}

	period := min(volumePeriod, len(candles))
	sum := decimal.Zero
	for _, c := range candles[len(candles)-period:] {
		sum = sum.Add(c.Volume)
	}
	avg := sum.Div(decimal.NewFromInt(int64(period)))
	current := candles[len(candles)-1].Volume

	relative := decimal.Zero
	if avg.IsPositive() {
		relative = current.Div(avg)
	}

	threshold := avg.Mul(decimal.RequireFromString(spikeFactor))
	var spikes []int
	for i, c := range candles {
		if c.Volume.GreaterThan(threshold) {
			spikes = append(spikes, i)
		}
	}

	return Volume{Current: current, Average: avg, Relative: relative, Spikes: spikes}
}
