// Package planner defines the planning collaborator consumed by the agent
// loop: something that turns a natural-language goal into an ordered,
// immutable plan of tool invocations.
package planner

import (
	"context"
	"fmt"
)

// Step is one planned tool invocation. The zero value of Optional marks the
// step critical: if its observation fails, the session fails. Steps flagged
// optional let the loop continue past a failure.
type Step struct {
	Description string         `json:"description" yaml:"description"`
	Tool        string         `json:"tool" yaml:"tool"`
	Args        map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
	Optional    bool           `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Plan is the ordered decomposition of a goal. Produced once per session;
// there is no mid-run re-planning.
type Plan struct {
	Goal      string `json:"goal" yaml:"goal"`
	Steps     []Step `json:"steps" yaml:"steps"`
	Reasoning string `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
}

// Validate rejects plans the loop cannot execute.
func (p *Plan) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan has no steps")
	}
	for i, step := range p.Steps {
		if step.Tool == "" {
			return fmt.Errorf("step %d has no tool", i)
		}
	}
	return nil
}

// Planner produces a plan for a goal, or fails with a *PlanningError.
type Planner interface {
	Plan(ctx context.Context, goal string) (*Plan, error)
}

// PlanningError is fatal to the session: it occurs before any step runs.
type PlanningError struct {
	Provider string
	Err      error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed (%s): %v", e.Provider, e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }
