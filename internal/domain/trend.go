package domain

// Trend qualitative direction of the last three periods of a series.
type Trend string

const (
	TrendUp           Trend = "uptrend"
	TrendDown         Trend = "downtrend"
	TrendNoClearTrend Trend = "no_clear_trend"
)

// Title returns a human-readable representation.
func (t Trend) Title() string {
	switch t {
	case TrendUp:
		return "Uptrend"
	case TrendDown:
		return "Downtrend"
	default:
		return "No clear trend"
	}
}
