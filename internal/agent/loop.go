// Package agent drives the Analyze→Plan→Execute→Observe cycle over a
// session's event stream and folds finished streams into summaries.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/stridelabs/stride/internal/planner"
	"github.com/stridelabs/stride/internal/session"
	"github.com/stridelabs/stride/internal/tool"
)

// State is the loop's position in its lifecycle. Completed, Failed,
// Exhausted and Cancelled are terminal.
type State string

const (
	StatePlanning   State = "planning"
	StateExecuting  State = "executing"
	StateObserving  State = "observing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateExhausted  State = "exhausted"
	StateCancelled  State = "cancelled"
	StateInProgress State = "in_progress" // derived by readers of partial logs
)

// Terminal reports whether s is a terminal state.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateExhausted, StateCancelled:
		return true
	}
	return false
}

// DefaultMaxActions bounds total loop execution regardless of plan length.
const DefaultMaxActions = 20

// DefaultStepTimeout bounds each tool invocation so a stuck tool cannot
// stall the session.
const DefaultStepTimeout = 2 * time.Minute

// ErrLoopActive is returned when a second Run is attempted while one is in
// flight. One loop instance exclusively owns one session's stream.
var ErrLoopActive = errors.New("agent loop already running for this session")

// Result is the terminal outcome of a run. The full record lives in the
// event stream; Result carries only what a caller needs immediately.
type Result struct {
	State   State
	Actions int    // actions dispatched
	Skipped int    // optional steps that failed and were skipped
	Message string // failure explanation, empty on success
}

// Loop executes one session's plan step by step, writing every transition
// to the event stream before and after it happens.
type Loop struct {
	sess     *session.Session
	stream   *session.Stream
	planner  planner.Planner
	registry *tool.Registry

	maxActions  int
	stepTimeout time.Duration
	logger      *slog.Logger

	running atomic.Bool
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxActions overrides the iteration ceiling.
func WithMaxActions(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxActions = n
		}
	}
}

// WithStepTimeout overrides the per-invocation timeout.
func WithStepTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.stepTimeout = d
		}
	}
}

// WithLogger sets the loop's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// NewLoop creates a loop bound to one session and its stream.
func NewLoop(sess *session.Session, stream *session.Stream, p planner.Planner, registry *tool.Registry, opts ...Option) *Loop {
	l := &Loop{
		sess:        sess,
		stream:      stream,
		planner:     p,
		registry:    registry,
		maxActions:  DefaultMaxActions,
		stepTimeout: DefaultStepTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes the loop for goal until a terminal state. The returned
// error is non-nil only for unrecoverable engine faults (event stream IO);
// planning and step failures are normal terminal Results.
func (l *Loop) Run(ctx context.Context, goal string) (*Result, error) {
	if !l.running.CompareAndSwap(false, true) {
		return nil, ErrLoopActive
	}
	defer l.running.Store(false)

	ctx, span := startLoopSpan(ctx, l.sess.ID, goal)
	res, err := l.run(ctx, goal)
	endLoopSpan(span, res, err)
	return res, err
}

func (l *Loop) run(ctx context.Context, goal string) (*Result, error) {
	logger := l.logger.With("session", l.sess.ID)

	if _, err := l.stream.Append(session.KindGoal, session.GoalPayload{Goal: goal}); err != nil {
		return nil, err
	}

	// Planning.
	logger.Info("planning", "goal", goal)
	plan, err := l.planner.Plan(ctx, goal)
	if err != nil {
		logger.Error("planning failed", "error", err)
		if _, aerr := l.stream.Append(session.KindError, session.ErrorPayload{
			Stage:   "planning",
			Message: err.Error(),
		}); aerr != nil {
			return nil, aerr
		}
		return &Result{State: StateFailed, Message: err.Error()}, nil
	}

	if _, err := l.stream.Append(session.KindPlan, planEventPayload(plan)); err != nil {
		return nil, err
	}
	logger.Info("plan ready", "steps", len(plan.Steps))

	var actions, succeeded, skipped int
	for i, step := range plan.Steps {
		// Cancellation is honored between steps only; an in-flight tool
		// invocation is atomic from the loop's perspective.
		if cerr := ctx.Err(); cerr != nil {
			if _, aerr := l.stream.Append(session.KindCancelled, session.CancelledPayload{
				Reason: cerr.Error(),
			}); aerr != nil {
				return nil, aerr
			}
			logger.Warn("run cancelled", "after_actions", actions)
			return &Result{State: StateCancelled, Actions: actions, Skipped: skipped, Message: cerr.Error()}, nil
		}

		if actions >= l.maxActions {
			// Deliberate backstop, not an error: the log keeps exactly the
			// ceiling's worth of action/observation pairs.
			logger.Warn("iteration ceiling reached", "ceiling", l.maxActions)
			return &Result{
				State:   StateExhausted,
				Actions: actions,
				Skipped: skipped,
				Message: fmt.Sprintf("iteration ceiling of %d actions reached", l.maxActions),
			}, nil
		}

		obs, aerr := l.executeStep(ctx, i, step, logger)
		if aerr != nil {
			return nil, aerr
		}
		actions++

		if obs.Success {
			succeeded++
			continue
		}

		message := "step failed"
		if obs.Error != nil {
			message = obs.Error.Message
		}
		if _, aerr := l.stream.Append(session.KindError, session.ErrorPayload{
			Stage:   "step",
			Step:    i,
			Message: message,
		}); aerr != nil {
			return nil, aerr
		}

		if step.Optional {
			skipped++
			logger.Warn("optional step failed, continuing", "step", i, "error", message)
			continue
		}
		logger.Error("critical step failed", "step", i, "error", message)
		return &Result{State: StateFailed, Actions: actions, Skipped: skipped, Message: message}, nil
	}

	if _, err := l.stream.Append(session.KindCompleted, session.CompletedPayload{
		Steps:   succeeded,
		Skipped: skipped,
	}); err != nil {
		return nil, err
	}
	logger.Info("run completed", "steps", succeeded, "skipped", skipped)
	return &Result{State: StateCompleted, Actions: actions, Skipped: skipped}, nil
}

// executeStep appends the action record, dispatches the tool, and appends
// the closing observation. Tool failures of any kind come back inside the
// observation; the returned error is stream IO only.
func (l *Loop) executeStep(ctx context.Context, index int, step planner.Step, logger *slog.Logger) (*session.ObservationPayload, error) {
	actionID := uuid.NewString()

	// Declared intent goes to the log before the tool runs, so a crash
	// mid-execution still shows what was attempted.
	if _, err := l.stream.Append(session.KindAction, session.ActionPayload{
		ID:          actionID,
		Step:        index,
		Description: step.Description,
		Tool:        step.Tool,
		Args:        step.Args,
		IssuedAt:    time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	res := l.invoke(ctx, step)

	obs := session.ObservationPayload{
		ActionID:  actionID,
		Step:      index,
		Success:   res.Success,
		Result:    res.Output,
		Artifacts: res.Artifacts,
		Error:     res.Error,
	}
	if _, err := l.stream.Append(session.KindObservation, obs); err != nil {
		return nil, err
	}
	logger.Info("step observed", "step", index, "tool", step.Tool, "success", res.Success)
	return &obs, nil
}

func (l *Loop) invoke(ctx context.Context, step planner.Step) tool.Result {
	t, err := l.registry.Resolve(step.Tool)
	if err != nil {
		return tool.Fail(tool.CodeUnknownTool, "%v", err)
	}

	invokeCtx, cancel := context.WithTimeout(ctx, l.stepTimeout)
	defer cancel()

	invokeCtx, span := startToolSpan(invokeCtx, step.Tool, step.Description)
	res := t.Invoke(invokeCtx, step.Args)
	endToolSpan(span, res)
	return res
}

func planEventPayload(p *planner.Plan) session.PlanPayload {
	steps := make([]session.PlanStep, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = session.PlanStep{
			Description: s.Description,
			Tool:        s.Tool,
			Args:        s.Args,
			Optional:    s.Optional,
		}
	}
	return session.PlanPayload{Goal: p.Goal, Steps: steps, Reasoning: p.Reasoning}
}
