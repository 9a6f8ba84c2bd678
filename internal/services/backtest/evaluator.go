package backtest

import (
	"context"

	"github.com/vadiminshakov/trendsignal/internal/domain"
	"github.com/vadiminshakov/trendsignal/internal/services/advisor"
	"github.com/vadiminshakov/trendsignal/internal/services/trend"
)

const (
	ModeEngine = "engine"
	ModeLLM    = "llm"
)

// Evaluator produces the decision for one backtest window.
type Evaluator interface {
	Mode() string
	Model() string
	Evaluate(ctx context.Context, w domain.MarketWindow) (domain.Decision, error)
}

// EngineEvaluator scores the trend engine on the last three candles of each window.
type EngineEvaluator struct {
	engine *trend.Engine
}

func NewEngineEvaluator(engine *trend.Engine) *EngineEvaluator {
	return &EngineEvaluator{engine: engine}
}

func (e *EngineEvaluator) Mode() string  { return ModeEngine }
func (e *EngineEvaluator) Model() string { return "" }

func (e *EngineEvaluator) Evaluate(_ context.Context, w domain.MarketWindow) (domain.Decision, error) {
	snap, err := w.Snapshot()
	if err != nil {
		return domain.Decision{}, err
	}
	return e.engine.Decide(snap.ETH, snap.BTC, snap.SOL)
}

// LLMEvaluator scores the LLM advisor on the whole window.
type LLMEvaluator struct {
	advisor *advisor.Advisor
}

func NewLLMEvaluator(a *advisor.Advisor) *LLMEvaluator {
	return &LLMEvaluator{advisor: a}
}

func (e *LLMEvaluator) Mode() string  { return ModeLLM }
func (e *LLMEvaluator) Model() string { return e.advisor.Model() }

func (e *LLMEvaluator) Evaluate(ctx context.Context, w domain.MarketWindow) (domain.Decision, error) {
	return e.advisor.Advise(ctx, w)
}
