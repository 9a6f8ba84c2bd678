package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vadiminshakov/trendsignal/internal/domain"
	"github.com/vadiminshakov/trendsignal/internal/services/backtest"
	"github.com/vadiminshakov/trendsignal/internal/services/promptbuilder"
)

func TestDecisionCard(t *testing.T) {
	event := domain.DecisionEvent{
		Timestamp: time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC),
		Source:    domain.DecisionSourceEngine,
		Action:    domain.ActionLong,
		Rationale: "ETH uptrend.",
		ETHTrend:  domain.TrendUp,
		ETHClose:  "100.9",
		BTCClose:  "60000",
	}

	out := DecisionCard(event)

	assert.Contains(t, out, "LONG")
	assert.Contains(t, out, "2026-03-01 12:00 UTC")
	assert.Contains(t, out, "engine")
	assert.Contains(t, out, "100.9")
	assert.Contains(t, out, "Uptrend")
	assert.Contains(t, out, "60000")
	assert.NotContains(t, out, "SOL")
	assert.Contains(t, out, "ETH uptrend.")
}

func TestDecisionCard_LLMSource(t *testing.T) {
	out := DecisionCard(domain.DecisionEvent{
		Source:    domain.DecisionSourceLLM,
		Model:     "o1-mini",
		Action:    domain.ActionNone,
		Rationale: "flat",
	})

	assert.Contains(t, out, "NONE")
	assert.Contains(t, out, "llm (o1-mini)")
}

func TestBacktestSummary(t *testing.T) {
	assert.Contains(t, BacktestSummary(nil), "no backtest runs")

	out := BacktestSummary([]*backtest.Result{
		{RunID: 1, Total: 4, Correct: 1, Accuracy: 0.25, Improved: true},
		{RunID: 2, Total: 4, Correct: 3, Accuracy: 0.75, Failures: make([]promptbuilder.Failure, 1)},
	})

	assert.Contains(t, out, "#1  run 1  1/4 correct  25.00%  prompt improved")
	assert.Contains(t, out, "#2  run 2  3/4 correct  75.00%")
	assert.Contains(t, out, "75.00%")
	assert.Contains(t, out, "failures")
}
