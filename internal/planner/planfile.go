package planner

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FilePlanner serves a pre-written plan from a YAML file. Useful for
// deterministic runs and for driving the loop without a model.
type FilePlanner struct {
	path string
}

// NewFilePlanner creates a planner that loads the plan at path.
func NewFilePlanner(path string) *FilePlanner {
	return &FilePlanner{path: path}
}

// Plan implements Planner. The goal argument overrides an empty goal field
// in the file.
func (p *FilePlanner) Plan(_ context.Context, goal string) (*Plan, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, &PlanningError{Provider: "file", Err: fmt.Errorf("failed to read plan file: %w", err)}
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, &PlanningError{Provider: "file", Err: fmt.Errorf("failed to parse plan file: %w", err)}
	}
	if plan.Goal == "" {
		plan.Goal = goal
	}
	if err := plan.Validate(); err != nil {
		return nil, &PlanningError{Provider: "file", Err: err}
	}
	return &plan, nil
}
