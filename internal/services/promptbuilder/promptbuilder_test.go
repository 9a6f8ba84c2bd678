package promptbuilder

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/vadiminshakov/trendsignal/internal/domain"
	"go.uber.org/zap"
)

func candle(ts int64, open, high, low, close, volume string) domain.MarketCandle {
	return domain.MarketCandle{
		OpenTime: time.Unix(ts, 0).UTC(),
		Open:     decimal.RequireFromString(open),
		High:     decimal.RequireFromString(high),
		Low:      decimal.RequireFromString(low),
		Close:    decimal.RequireFromString(close),
		Volume:   decimal.RequireFromString(volume),
	}
}

func testWindow() domain.MarketWindow {
	return domain.MarketWindow{
		ETH: domain.AssetCandles{Pair: domain.Pair{From: "ETH", To: "USD"}, Candles: []domain.MarketCandle{
			candle(1732845600, "3564.44", "3600", "3565.45", "3599.99", "4979.85077974"),
			candle(1732849200, "3591.36", "3603", "3599.99", "3594.88", "415.86094626"),
		}},
		BTC: domain.AssetCandles{Pair: domain.Pair{From: "BTC", To: "USD"}, Candles: []domain.MarketCandle{
			candle(1732849200, "50000", "50100", "49950", "50050", "2000"),
		}},
		SOL: domain.AssetCandles{Pair: domain.Pair{From: "SOL", To: "USD"}, Candles: []domain.MarketCandle{
			candle(1732849200, "150", "152", "149.5", "151", "10000"),
		}},
	}
}

func TestBuildDataSection(t *testing.T) {
	section := BuildDataSection(testWindow())

	lines := strings.Split(strings.TrimSuffix(section, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, strings.TrimSuffix(DataSectionHeader, "\n"), lines[0])
	assert.Equal(t, "ETH: [[1732845600.00,3564.44,3600.00,3565.45,3599.99,4979.850780],[1732849200.00,3591.36,3603.00,3599.99,3594.88,415.860946]]", lines[1])
	assert.Equal(t, "BTC: [[1732849200.00,50000.00,50100.00,49950.00,50050.00,2000.000000]]", lines[2])
	assert.Equal(t, "SOL: [[1732849200.00,150.00,152.00,149.50,151.00,10000.000000]]", lines[3])
}

func TestBuildUserPrompt(t *testing.T) {
	pb := NewPromptBuilder(zap.NewNop(), true)
	prompt := pb.BuildUserPrompt("base prompt\n\n", testWindow())

	assert.True(t, strings.HasPrefix(prompt, "base prompt\n\n"+DataSectionHeader))
	// windows shorter than the EMA period carry no indicator section
	assert.NotContains(t, prompt, "Indicators")
}

func TestBuildUserPrompt_WithIndicators(t *testing.T) {
	eth := make([]domain.MarketCandle, 0, 24)
	for i := range 24 {
		c := decimal.NewFromInt(int64(100 + i%2))
		eth = append(eth, domain.MarketCandle{
			OpenTime: time.Unix(int64(1732845600+i*3600), 0).UTC(),
			Open:     c,
			High:     c.Add(decimal.NewFromInt(1)),
			Low:      c.Sub(decimal.NewFromInt(1)),
			Close:    c,
			Volume:   decimal.NewFromInt(1),
		})
	}
	w := testWindow()
	w.ETH.Candles = eth

	prompt := NewPromptBuilder(zap.NewNop(), true).BuildUserPrompt(SystemPrompt, w)
	assert.Contains(t, prompt, "Indicators at the last candle:\nETH: EMA20=")
	assert.NotContains(t, prompt, "BTC: EMA20")

	plain := NewPromptBuilder(zap.NewNop(), false).BuildUserPrompt(SystemPrompt, w)
	assert.NotContains(t, plain, "Indicators")
}

func TestBuildImprovementPrompt(t *testing.T) {
	failures := make([]Failure, 0, 12)
	for i := range 12 {
		failures = append(failures, Failure{
			Window:    24 + i,
			Predicted: domain.ActionLong,
			Expected:  domain.ActionShort,
			Rationale: fmt.Sprintf("reason %d", i),
		})
	}
	history := []PromptScore{
		{Prompt: strings.Repeat("a", 40) + "\n" + strings.Repeat("b", 40), Score: 0.4583},
		{Prompt: "short", Score: 0.5},
	}

	prompt := BuildImprovementPrompt("BASE PROMPT", failures, history)

	assert.Equal(t, 10, strings.Count(prompt, "Window "))
	assert.Contains(t, prompt, "Window 24: Model predicted long, but the correct action was short. Model's rationale: reason 0\n")
	assert.Contains(t, prompt, "Window 33:")
	assert.NotContains(t, prompt, "Window 34:")
	assert.Contains(t, prompt, "- Prompt score: 45.83% | Prompt snippet: "+strings.Repeat("a", 40)+" "+strings.Repeat("b", 9)+"...\n")
	assert.Contains(t, prompt, "- Prompt score: 50.00% | Prompt snippet: short...\n")
	assert.Contains(t, prompt, "Original Prompt:\nBASE PROMPT\n")
}
