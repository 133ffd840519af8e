package planner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParsePlan_PlainJSON(t *testing.T) {
	raw := `{"goal":"write a file","steps":[{"description":"write it","tool":"filesystem","args":{"operation":"write","path":"a.txt"}}],"reasoning":"one step"}`

	plan, err := parsePlan(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if plan.Goal != "write a file" {
		t.Errorf("goal = %q", plan.Goal)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Tool != "filesystem" {
		t.Errorf("unexpected steps: %+v", plan.Steps)
	}
}

func TestParsePlan_FencedWithProse(t *testing.T) {
	raw := "Here is the plan:\n```json\n" +
		`{"goal":"g","steps":[{"description":"d","tool":"codeact"}]}` +
		"\n```\nLet me know if you need changes."

	plan, err := parsePlan(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Tool != "codeact" {
		t.Errorf("unexpected steps: %+v", plan.Steps)
	}
}

func TestParsePlan_RepairsSloppyJSON(t *testing.T) {
	// Trailing comma, a classic model emission.
	raw := `{"goal":"g","steps":[{"description":"d","tool":"browser"},]}`

	plan, err := parsePlan(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(plan.Steps) != 1 {
		t.Errorf("got %d steps, want 1", len(plan.Steps))
	}
}

func TestParsePlan_RejectsEmptyPlan(t *testing.T) {
	if _, err := parsePlan(`{"goal":"g","steps":[]}`); err == nil {
		t.Error("expected error for plan with no steps")
	}
}

func TestParsePlan_RejectsStepWithoutTool(t *testing.T) {
	if _, err := parsePlan(`{"goal":"g","steps":[{"description":"d"}]}`); err == nil {
		t.Error("expected error for step without tool")
	}
}

func TestFilePlanner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	content := `goal: summarize the report
steps:
  - description: read the report
    tool: filesystem
    args:
      operation: read
      path: report.txt
  - description: search for context
    tool: web_search
    args:
      query: quarterly report conventions
    optional: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}

	plan, err := NewFilePlanner(path).Plan(context.Background(), "")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Goal != "summarize the report" {
		t.Errorf("goal = %q", plan.Goal)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(plan.Steps))
	}
	if plan.Steps[0].Optional {
		t.Error("first step should be critical")
	}
	if !plan.Steps[1].Optional {
		t.Error("second step should be optional")
	}
	if op := plan.Steps[0].Args["operation"]; op != "read" {
		t.Errorf("args not preserved: %v", plan.Steps[0].Args)
	}
}

func TestFilePlanner_MissingFileIsPlanningError(t *testing.T) {
	_, err := NewFilePlanner(filepath.Join(t.TempDir(), "nope.yaml")).Plan(context.Background(), "g")
	var perr *PlanningError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PlanningError, got %v", err)
	}
	if perr.Provider != "file" {
		t.Errorf("provider = %q", perr.Provider)
	}
}
