// Package promptbuilder formats market data for LLM consumption.
package promptbuilder

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendsignal/internal/domain"
	"github.com/vadiminshakov/trendsignal/internal/services/market/indicators"
	"go.uber.org/zap"
)

// DataSectionHeader first line of every data section.
const DataSectionHeader = "Data provided (hourly candles, format: [timestamp, open, high, low, close, volume]):\n"

// PromptBuilder constructs user prompts from candle windows.
type PromptBuilder struct {
	logger     *zap.Logger
	indicators bool
}

// NewPromptBuilder creates a new PromptBuilder instance. With withIndicators set,
// windows long enough for EMA20 get an extra indicator line per asset.
func NewPromptBuilder(logger *zap.Logger, withIndicators bool) *PromptBuilder {
	return &PromptBuilder{logger: logger, indicators: withIndicators}
}

// BuildUserPrompt appends the data section of the window to the base prompt.
func (pb *PromptBuilder) BuildUserPrompt(base string, w domain.MarketWindow) string {
	var sb strings.Builder

	sb.WriteString(strings.TrimRight(base, "\n"))
	sb.WriteString("\n\n")
	sb.WriteString(BuildDataSection(w))

	if pb.indicators {
		sb.WriteString(pb.indicatorSection(w))
	}

	return sb.String()
}

// BuildDataSection renders the candles of ETH, BTC and SOL as
// "ETH: [[t,o,h,l,c,v],...]" lines, prices with two decimals and volume with six.
func BuildDataSection(w domain.MarketWindow) string {
	var sb strings.Builder

	sb.WriteString(DataSectionHeader)
	for _, a := range []domain.AssetCandles{w.ETH, w.BTC, w.SOL} {
		sb.WriteString(a.Pair.From)
		sb.WriteString(": ")
		sb.WriteString(formatCandles(a.Candles))
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatCandles(candles []domain.MarketCandle) string {
	var sb strings.Builder

	sb.WriteString("[")
	for i, c := range candles {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "[%s,%s,%s,%s,%s,%s]",
			decimal.NewFromInt(c.OpenTime.Unix()).StringFixed(2),
			c.Open.StringFixed(2),
			c.High.StringFixed(2),
			c.Low.StringFixed(2),
			c.Close.StringFixed(2),
			c.Volume.StringFixed(6),
		)
	}
	sb.WriteString("]")

	return sb.String()
}

func (pb *PromptBuilder) indicatorSection(w domain.MarketWindow) string {
	var lines []string
	for _, a := range []domain.AssetCandles{w.ETH, w.BTC, w.SOL} {
		if len(a.Candles) < indicators.MinCandles {
			continue
		}
		s, err := indicators.Summarize(a.Candles)
		if err != nil {
			pb.logger.Debug("skipping indicators", zap.String("pair", a.Pair.String()), zap.Error(err))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: EMA20=%s RSI14=%s ATR14=%s RVOL=%s",
			a.Pair.From, s.EMA20.StringFixed(2), s.RSI14.StringFixed(2), s.ATR14.StringFixed(2), s.RelVolume.StringFixed(2)))
	}

	if len(lines) == 0 {
		return ""
	}

	return "\nIndicators at the last candle:\n" + strings.Join(lines, "\n") + "\n"
}
