package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DecisionSource producer of a decision.
type DecisionSource string

const (
	DecisionSourceEngine DecisionSource = "engine"
	DecisionSourceLLM    DecisionSource = "llm"
)

// DecisionEvent a decision emitted by the service together with the market context it saw.
type DecisionEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"ts"`
	Source    DecisionSource `json:"source"`
	Model     string         `json:"model,omitempty"`
	Action    Action         `json:"action"`
	Rationale string         `json:"rationale"`
	ETHTrend  Trend          `json:"eth_trend,omitempty"`
	BTCTrend  Trend          `json:"btc_trend,omitempty"`
	SOLTrend  Trend          `json:"sol_trend,omitempty"`
	ETHClose  string         `json:"eth_close,omitempty"`
	BTCClose  string         `json:"btc_close,omitempty"`
	SOLClose  string         `json:"sol_close,omitempty"`
}

// NewDecisionEvent creates a DecisionEvent for the snapshot.
func NewDecisionEvent(ts time.Time, source DecisionSource, model string, decision Decision, snapshot MarketSnapshot) DecisionEvent {
	return DecisionEvent{
		ID:        uuid.New().String(),
		Timestamp: ts,
		Source:    source,
		Model:     normalizeModelName(model),
		Action:    decision.Action,
		Rationale: decision.Rationale,
		ETHClose:  LastClose(snapshot.ETH),
		BTCClose:  LastClose(snapshot.BTC),
		SOLClose:  LastClose(snapshot.SOL),
	}
}

// Decision returns the decision carried by the event.
func (e DecisionEvent) Decision() Decision {
	return Decision{Action: e.Action, Rationale: e.Rationale}
}

// DecisionEventRecord bundles a decision event with its store index.
type DecisionEventRecord struct {
	Index uint64
	Event DecisionEvent
}

// normalizeModelName strips router prefixes such as "openai/" from model ids.
func normalizeModelName(model string) string {
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		return model[idx+1:]
	}
	return model
}
