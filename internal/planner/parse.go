package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// parsePlan extracts a Plan from model output. Models wrap JSON in prose
// and code fences more often than not, so the parser strips fences, falls
// back to the outermost object, and finally runs jsonrepair before giving
// up.
func parsePlan(raw string) (*Plan, error) {
	text := stripFences(raw)

	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	var plan Plan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(text)
		if repairErr != nil {
			return nil, fmt.Errorf("plan is not valid JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &plan); err != nil {
			return nil, fmt.Errorf("plan is not valid JSON after repair: %w", err)
		}
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
