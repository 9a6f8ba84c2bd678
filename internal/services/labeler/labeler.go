// Package labeler assigns the ground-truth action to historical candles by looking
// one candle ahead.
package labeler

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendsignal/internal/domain"
)

// DefaultThreshold relative move of the next candle that makes a position worth taking.
var DefaultThreshold = decimal.RequireFromString("0.003")

// Labeler labels candles with the action that would have paid off over the next candle.
type Labeler struct {
	up   decimal.Decimal
	down decimal.Decimal
}

// New creates a Labeler for the given threshold.
func New(threshold decimal.Decimal) *Labeler {
	one := decimal.NewFromInt(1)
	return &Labeler{up: one.Add(threshold), down: one.Sub(threshold)}
}

// Label returns one action per candle. Candle i is long when candle i+1 reaches
// close*(1+threshold) and short when it touches close*(1-threshold). When both
// happen short wins. The last candle has no successor and is always none.
func (l *Labeler) Label(candles []domain.MarketCandle) []domain.Action {
	labels := make([]domain.Action, len(candles))
	for i := range candles {
		labels[i] = domain.ActionNone
		if i+1 >= len(candles) {
			continue
		}

		cur, next := candles[i], candles[i+1]
		hitUp := next.High.GreaterThanOrEqual(cur.Close.Mul(l.up))
		hitDown := next.Low.LessThanOrEqual(cur.Close.Mul(l.down))

		switch {
		case hitDown:
			labels[i] = domain.ActionShort
		case hitUp:
			labels[i] = domain.ActionLong
		}
	}
	return labels
}

// Label labels candles with DefaultThreshold.
func Label(candles []domain.MarketCandle) []domain.Action {
	return New(DefaultThreshold).Label(candles)
}
