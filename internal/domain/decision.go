package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Decision trading signal for ETH with a human-readable rationale.
type Decision struct {
	Action    Action `json:"action"`
	Rationale string `json:"rationale"`
}

type rawDecision struct {
	Action    *string `json:"action"`
	Rationale string  `json:"rationale"`
}

// NewDecision parses an LLM reply into a decision.
// The action field is required; an unrecognised action maps to none.
func NewDecision(raw string) (*Decision, error) {
	response := sanitizeDecisionPayload(raw)

	if !json.Valid([]byte(response)) {
		return nil, errors.Errorf("response is not valid JSON: %s", response)
	}

	var parsed rawDecision
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		return nil, errors.Wrap(err, "JSON unmarshal error")
	}

	if parsed.Action == nil {
		return nil, errors.New("missing 'action' field in response")
	}

	return &Decision{
		Action:    ParseAction(strings.ToLower(strings.TrimSpace(*parsed.Action))),
		Rationale: parsed.Rationale,
	}, nil
}

func sanitizeDecisionPayload(raw string) string {
	response := strings.ReplaceAll(raw, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}

// Validate validates the decision.
func (d *Decision) Validate() error {
	if !d.Action.IsValid() {
		return fmt.Errorf("invalid action: %q", d.Action)
	}
	return nil
}
