package promptbuilder

import (
	"fmt"
	"strings"

	"github.com/vadiminshakov/trendsignal/internal/domain"
)

const (
	maxFailureExamples = 10
	snippetLength      = 50
)

// Failure backtest window where the predicted action differed from the label.
type Failure struct {
	Window    int
	Predicted domain.Action
	Expected  domain.Action
	Rationale string
}

// PromptScore accuracy of a prompt in one backtest run, 0..1.
type PromptScore struct {
	Prompt string
	Score  float64
}

// BuildImprovementPrompt asks the LLM to rewrite base using the first failures
// and the score history of earlier prompts.
func BuildImprovementPrompt(base string, failures []Failure, history []PromptScore) string {
	var sb strings.Builder

	sb.WriteString("You are an assistant that improves trading prompts.\n")
	sb.WriteString("We have a base prompt (below) that instructs the model to produce an action (long, short, or none) and a brief rationale based on provided ETH, BTC, and SOL market data.\n")
	sb.WriteString("We performed backtesting and found some instances where the model's predicted action did not match the correct action.\n\n")

	sb.WriteString("Below are some examples of these failures:\n")
	for _, f := range failures[:min(len(failures), maxFailureExamples)] {
		fmt.Fprintf(&sb, "Window %d: Model predicted %s, but the correct action was %s. Model's rationale: %s\n",
			f.Window, f.Predicted, f.Expected, f.Rationale)
	}

	sb.WriteString("\nWe also have a history of previous prompts and their overall accuracy scores:\n")
	for _, h := range history {
		fmt.Fprintf(&sb, "- Prompt score: %.2f%% | Prompt snippet: %s...\n", h.Score*100, snippet(h.Prompt))
	}

	sb.WriteString("\nWe need to improve the prompt so that:\n")
	sb.WriteString("- The model is more likely to produce correct 'action' decisions.\n")
	sb.WriteString("- The rationale remains concise and well-aligned with the chosen action.\n")
	sb.WriteString("- The model should not provide disclaimers or mention hypothetical scenarios.\n")
	sb.WriteString("- The model should consistently rely on patterns, correlations, and recent price changes from the data.\n")
	sb.WriteString("- The data is appended directly after the prompt.\n")

	sb.WriteString("\nOriginal Prompt:\n")
	sb.WriteString(base)
	sb.WriteString("\n\nPlease suggest an improved version of the prompt text (without adding any external formatting or code fences), incorporating the above improvements.\n")

	return sb.String()
}

// snippet flattens the prompt to one line and keeps its first 50 characters.
func snippet(prompt string) string {
	r := []rune(strings.ReplaceAll(prompt, "\n", " "))
	if len(r) > snippetLength {
		r = r[:snippetLength]
	}
	return string(r)
}
