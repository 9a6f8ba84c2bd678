package trend

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendsignal/internal/domain"
)

func (e *Engine) rationale(ev *Evaluation) string {
	var sb strings.Builder

	sb.WriteString(e.describe(ev.ETH))

	if !ev.Secondary() {
		fmt.Fprintf(&sb, " Action: %s.", ev.Decision.Action)
		return sb.String()
	}

	sb.WriteString(" Secondary analysis: ")
	sb.WriteString(e.describe(*ev.BTC))
	sb.WriteString(" ")
	sb.WriteString(e.describe(*ev.SOL))

	switch ev.Decision.Action {
	case domain.ActionLong:
		fmt.Fprintf(&sb, " %s and %s both show an uptrend. Action: long.", ev.BTC.Symbol, ev.SOL.Symbol)
	case domain.ActionShort:
		fmt.Fprintf(&sb, " %s and %s both show a downtrend. Action: short.", ev.BTC.Symbol, ev.SOL.Symbol)
	default:
		fmt.Fprintf(&sb, " %s (%s) and %s (%s) do not agree. Action: none.",
			ev.BTC.Symbol, ev.BTC.Trend, ev.SOL.Symbol, ev.SOL.Trend)
	}

	return sb.String()
}

// describe renders the satisfied comparisons of a classification as one sentence.
func (e *Engine) describe(c Classification) string {
	threshold := e.margin.Mul(hundred).String() + "%"

	switch c.Trend {
	case domain.TrendUp, domain.TrendDown:
		verb := "rose"
		if c.Trend == domain.TrendDown {
			verb = "fell"
		}

		confirm := make([]string, 0, 2)
		for _, l := range c.ConfirmingLegs() {
			confirm = append(confirm, formatLeg(l))
		}

		return fmt.Sprintf("%s %s: Condition A, %s %s by at least %s per hour; Condition B, %s.",
			c.Symbol, c.Trend, formatLeg(c.Closes), verb, threshold, strings.Join(confirm, " and "))
	}

	switch {
	case c.Closes.Rising:
		return fmt.Sprintf("%s shows no clear trend: %s rose by at least %s but neither %s nor %s confirmed.",
			c.Symbol, formatLeg(c.Closes), threshold, formatLeg(c.Highs), formatLeg(c.Lows))
	case c.Closes.Falling:
		return fmt.Sprintf("%s shows no clear trend: %s fell by at least %s but neither %s nor %s confirmed.",
			c.Symbol, formatLeg(c.Closes), threshold, formatLeg(c.Highs), formatLeg(c.Lows))
	default:
		return fmt.Sprintf("%s shows no clear trend: %s did not move %s in one direction on both steps.",
			c.Symbol, formatLeg(c.Closes), threshold)
	}
}

// formatLeg renders "highs 105 → 105.4 (+0.38%) → 105.9 (+0.47%)".
func formatLeg(l Leg) string {
	if len(l.Values) == 0 {
		return l.Name
	}

	var sb strings.Builder
	sb.WriteString(l.Name)
	sb.WriteString(" ")
	sb.WriteString(l.Values[0].String())

	for i, pct := range l.ChangePercents() {
		fmt.Fprintf(&sb, " → %s (%s)", l.Values[i+1].String(), formatPercent(pct))
	}

	return sb.String()
}

func formatPercent(pct decimal.Decimal) string {
	s := pct.StringFixed(2) + "%"
	if pct.IsPositive() {
		return "+" + s
	}
	return s
}
