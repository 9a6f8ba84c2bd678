package trend

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendsignal/internal/domain"
)

const (
	legCloses = "closes"
	legHighs  = "highs"
	legLows   = "lows"
)

var hundred = decimal.NewFromInt(100)

// Leg one price column (closes, highs or lows) across the three periods.
type Leg struct {
	Name   string
	Values []decimal.Decimal
	// Rising every step moved up by at least the margin.
	Rising bool
	// Falling every step moved down by at least the margin.
	Falling bool
}

// ChangePercents returns the percentage change of each consecutive step.
func (l Leg) ChangePercents() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(l.Values))
	for i := 1; i < len(l.Values); i++ {
		prev := l.Values[i-1]
		if prev.IsZero() {
			out = append(out, decimal.Zero)
			continue
		}
		out = append(out, l.Values[i].Sub(prev).Div(prev).Mul(hundred))
	}
	return out
}

// Classification trend of one series and the conditions that produced it.
type Classification struct {
	Symbol string
	Trend  domain.Trend
	Closes Leg
	Highs  Leg
	Lows   Leg
}

// ConditionA reports whether the closes moved in the direction of the trend.
func (c Classification) ConditionA() bool {
	switch c.Trend {
	case domain.TrendUp:
		return c.Closes.Rising
	case domain.TrendDown:
		return c.Closes.Falling
	}
	return false
}

// ConfirmingLegs returns the highs/lows legs that satisfied Condition B.
func (c Classification) ConfirmingLegs() []Leg {
	var legs []Leg
	for _, l := range []Leg{c.Highs, c.Lows} {
		if (c.Trend == domain.TrendUp && l.Rising) || (c.Trend == domain.TrendDown && l.Falling) {
			legs = append(legs, l)
		}
	}
	return legs
}
