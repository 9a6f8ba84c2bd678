// Package trend implements the rule-based trend classification of ETH, BTC and SOL
// hourly candles and the decision cascade that turns it into a long/short/none signal.
package trend

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendsignal/internal/domain"
)

// DefaultMargin minimum relative change (0.3%) for a move to count as significant.
var DefaultMargin = decimal.RequireFromString("0.003")

// Engine classifies asset series and decides the ETH action. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	margin decimal.Decimal
	up     decimal.Decimal
	down   decimal.Decimal
}

// Option configures the Engine.
type Option func(*Engine)

// WithMargin overrides the default 0.3% margin.
func WithMargin(m decimal.Decimal) Option {
	return func(e *Engine) {
		e.margin = m
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{margin: DefaultMargin}
	for _, opt := range opts {
		opt(e)
	}
	e.up = decimal.NewFromInt(1).Add(e.margin)
	e.down = decimal.NewFromInt(1).Sub(e.margin)
	return e
}

// Margin returns the configured margin.
func (e *Engine) Margin() decimal.Decimal {
	return e.margin
}

// Evaluation outcome of one Decide call with the facts behind it.
type Evaluation struct {
	Decision domain.Decision
	ETH      Classification
	// BTC and SOL are set only when ETH showed no clear trend.
	BTC *Classification
	SOL *Classification
}

// Secondary reports whether BTC and SOL decided the action.
func (ev *Evaluation) Secondary() bool {
	return ev.BTC != nil && ev.SOL != nil
}

// Decide returns the action for ETH.
func (e *Engine) Decide(eth, btc, sol domain.AssetSeries) (domain.Decision, error) {
	ev, err := e.Evaluate(eth, btc, sol)
	if err != nil {
		return domain.Decision{}, err
	}
	return ev.Decision, nil
}

// Evaluate validates all three series, classifies ETH and, when ETH has no clear
// trend, falls back to the BTC/SOL consensus.
func (e *Engine) Evaluate(eth, btc, sol domain.AssetSeries) (*Evaluation, error) {
	for _, s := range []domain.AssetSeries{eth, btc, sol} {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	ev := &Evaluation{ETH: e.classify(eth)}

	switch ev.ETH.Trend {
	case domain.TrendUp:
		ev.Decision.Action = domain.ActionLong
	case domain.TrendDown:
		ev.Decision.Action = domain.ActionShort
	default:
		btcClass := e.classify(btc)
		solClass := e.classify(sol)
		ev.BTC, ev.SOL = &btcClass, &solClass

		switch {
		case btcClass.Trend == domain.TrendUp && solClass.Trend == domain.TrendUp:
			ev.Decision.Action = domain.ActionLong
		case btcClass.Trend == domain.TrendDown && solClass.Trend == domain.TrendDown:
			ev.Decision.Action = domain.ActionShort
		default:
			ev.Decision.Action = domain.ActionNone
		}
	}

	ev.Decision.Rationale = e.rationale(ev)

	return ev, nil
}

// ClassifyTrend returns the trend of a single series.
func (e *Engine) ClassifyTrend(series domain.AssetSeries) (domain.Trend, error) {
	c, err := e.Classify(series)
	if err != nil {
		return domain.TrendNoClearTrend, err
	}
	return c.Trend, nil
}

// Classify returns the trend of a single series together with the condition facts.
func (e *Engine) Classify(series domain.AssetSeries) (Classification, error) {
	if err := series.Validate(); err != nil {
		return Classification{}, err
	}
	return e.classify(series), nil
}

func (e *Engine) classify(series domain.AssetSeries) Classification {
	c := Classification{
		Symbol: series.Symbol,
		Closes: e.leg(legCloses, series.Closes()),
		Highs:  e.leg(legHighs, series.Highs()),
		Lows:   e.leg(legLows, series.Lows()),
	}

	// A-up and A-down cannot both hold: the thresholds sit on opposite sides of each value.
	switch {
	case c.Closes.Rising && (c.Highs.Rising || c.Lows.Rising):
		c.Trend = domain.TrendUp
	case c.Closes.Falling && (c.Highs.Falling || c.Lows.Falling):
		c.Trend = domain.TrendDown
	default:
		c.Trend = domain.TrendNoClearTrend
	}

	return c
}

func (e *Engine) leg(name string, values []decimal.Decimal) Leg {
	l := Leg{Name: name, Values: values, Rising: true, Falling: true}
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		l.Rising = l.Rising && cur.GreaterThanOrEqual(prev.Mul(e.up))
		l.Falling = l.Falling && cur.LessThanOrEqual(prev.Mul(e.down))
	}
	return l
}
