package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the type of a stream event.
type Kind string

// Event kinds, in the order a healthy run produces them.
const (
	KindGoal        Kind = "goal"
	KindPlan        Kind = "plan"
	KindAction      Kind = "action"
	KindObservation Kind = "observation"
	KindError       Kind = "error"
	KindCompleted   Kind = "completed"
	KindCancelled   Kind = "cancelled"
)

// Event is a single immutable record in the stream. Sequence numbers are
// assigned by the stream itself, starting at 0 with no gaps. Payload stays
// raw JSON so readers tolerate fields written by newer versions.
type Event struct {
	Sequence  uint64          `json:"seq"`
	Timestamp time.Time       `json:"ts"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// GoalPayload opens a session's log.
type GoalPayload struct {
	Goal string `json:"goal"`
}

// PlanStep is the logged form of a plan step.
type PlanStep struct {
	Description string         `json:"description"`
	Tool        string         `json:"tool"`
	Args        map[string]any `json:"args,omitempty"`
	Optional    bool           `json:"optional,omitempty"`
}

// PlanPayload records the plan produced by the planner, verbatim. The plan
// is immutable for the rest of the run.
type PlanPayload struct {
	Goal      string     `json:"goal"`
	Steps     []PlanStep `json:"steps"`
	Reasoning string     `json:"reasoning,omitempty"`
}

// ActionPayload is written before a tool runs, so a crash mid-execution
// still leaves a record of what was attempted.
type ActionPayload struct {
	ID          string         `json:"id"`
	Step        int            `json:"step"`
	Description string         `json:"description"`
	Tool        string         `json:"tool"`
	Args        map[string]any `json:"args,omitempty"`
	IssuedAt    time.Time      `json:"issued_at"`
}

// ToolError is the structured failure carried by an unsuccessful observation.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// ObservationPayload closes an action/observation pair.
type ObservationPayload struct {
	ActionID  string     `json:"action_id"`
	Step      int        `json:"step"`
	Success   bool       `json:"success"`
	Result    string     `json:"result,omitempty"`
	Artifacts []string   `json:"artifacts,omitempty"`
	Error     *ToolError `json:"error,omitempty"`
}

// ErrorPayload records a step or stage failure.
type ErrorPayload struct {
	Stage   string `json:"stage"` // planning, step, append
	Step    int    `json:"step,omitempty"`
	Message string `json:"message"`
}

// CompletedPayload is the terminal event of a successful run.
type CompletedPayload struct {
	Steps   int `json:"steps"`
	Skipped int `json:"skipped,omitempty"`
}

// CancelledPayload is the terminal event of an operator abort.
type CancelledPayload struct {
	Reason string `json:"reason,omitempty"`
}

// Decode unmarshals the event payload into dst. Unknown fields in the
// payload are ignored so older readers accept newer logs.
func (e Event) Decode(dst any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %d (%s): empty payload", e.Sequence, e.Kind)
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("event %d (%s): %w", e.Sequence, e.Kind, err)
	}
	return nil
}
