// Package advisor asks an LLM for the ETH action given the same candles the trend
// engine sees.
package advisor

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/trendsignal/internal/clients"
	"github.com/vadiminshakov/trendsignal/internal/domain"
	"github.com/vadiminshakov/trendsignal/internal/services/promptbuilder"
	"go.uber.org/zap"
)

// PromptSource provides the current base prompt.
type PromptSource interface {
	Load() (string, error)
}

// staticPrompt serves a fixed prompt.
type staticPrompt string

func (p staticPrompt) Load() (string, error) { return string(p), nil }

// Advisor turns candle windows into LLM decisions.
type Advisor struct {
	llm     clients.LLMClient
	builder *promptbuilder.PromptBuilder
	prompts PromptSource
	logger  *zap.Logger
}

// NewAdvisor creates an Advisor. A nil prompt source uses promptbuilder.SystemPrompt.
func NewAdvisor(llm clients.LLMClient, builder *promptbuilder.PromptBuilder, prompts PromptSource, logger *zap.Logger) *Advisor {
	if prompts == nil {
		prompts = staticPrompt(promptbuilder.SystemPrompt)
	}
	return &Advisor{llm: llm, builder: builder, prompts: prompts, logger: logger}
}

// Model returns the LLM model identifier.
func (a *Advisor) Model() string {
	return a.llm.Model()
}

// Advise sends the base prompt followed by the window's data section as a single
// user message and parses the reply.
func (a *Advisor) Advise(ctx context.Context, w domain.MarketWindow) (domain.Decision, error) {
	base, err := a.prompts.Load()
	if err != nil {
		return domain.Decision{}, errors.Wrap(err, "failed to load base prompt")
	}

	reply, err := a.llm.Chat(ctx, "", a.builder.BuildUserPrompt(base, w))
	if err != nil {
		return domain.Decision{}, err
	}

	decision, err := domain.NewDecision(reply)
	if err != nil {
		a.logger.Warn("unparseable LLM reply", zap.String("reply", reply), zap.Error(err))
		return domain.Decision{}, errors.Wrap(err, "failed to parse LLM decision")
	}

	return *decision, nil
}

// Improve asks the LLM to rewrite base given the backtest failures and score history.
func (a *Advisor) Improve(ctx context.Context, base string, failures []promptbuilder.Failure, history []promptbuilder.PromptScore) (string, error) {
	reply, err := a.llm.Chat(ctx, "", promptbuilder.BuildImprovementPrompt(base, failures, history))
	if err != nil {
		return "", errors.Wrap(err, "failed to request improved prompt")
	}

	improved := strings.TrimSpace(strings.ReplaceAll(reply, "```", ""))
	if improved == "" {
		return "", errors.New("LLM returned an empty prompt")
	}

	return improved, nil
}
