package decision

import (
	"encoding/json"
	"fmt"
	"strings"
)

type rawDecision struct {
	Action             *string  `json:"action"`
	Confidence         *float64 `json:"confidence"`
	Reasoning          *string  `json:"reasoning"`
	RequiresApproval   bool     `json:"requires_approval"`
	AlternativeActions []string `json:"alternative_actions"`
	RiskAssessment     string   `json:"risk_assessment"`
}

// parseDecision parses a model response into a Decision. Action, numeric
// confidence and reasoning are mandatory; anything missing or malformed is a
// hard failure. Confidence is clamped to [0,1].
func parseDecision(text string) (*Decision, error) {
	var raw rawDecision
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("decision not valid JSON: %w", err)
	}
	if raw.Action == nil || *raw.Action == "" {
		return nil, fmt.Errorf("decision missing action")
	}
	if raw.Confidence == nil {
		return nil, fmt.Errorf("decision missing confidence")
	}
	if raw.Reasoning == nil || *raw.Reasoning == "" {
		return nil, fmt.Errorf("decision missing reasoning")
	}
	return &Decision{
		Action:             *raw.Action,
		Confidence:         clamp01(*raw.Confidence),
		Reasoning:          *raw.Reasoning,
		RequiresApproval:   raw.RequiresApproval,
		AlternativeActions: raw.AlternativeActions,
		RiskAssessment:     raw.RiskAssessment,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// stripFences removes a surrounding markdown code fence, which models emit
// even when asked for bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
