package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stridelabs/stride/internal/planner"
	"github.com/stridelabs/stride/internal/session"
	"github.com/stridelabs/stride/internal/tool"
)

type stubPlanner struct {
	plan *planner.Plan
	err  error
}

func (s *stubPlanner) Plan(_ context.Context, goal string) (*planner.Plan, error) {
	if s.err != nil {
		return nil, s.err
	}
	p := *s.plan
	p.Goal = goal
	return &p, nil
}

type stubTool struct {
	name   string
	invoke func(ctx context.Context, args map[string]any) tool.Result
}

func (s *stubTool) Name() string               { return s.name }
func (s *stubTool) Description() string        { return "stub" }
func (s *stubTool) Parameters() map[string]any { return nil }
func (s *stubTool) Invoke(ctx context.Context, args map[string]any) tool.Result {
	return s.invoke(ctx, args)
}

func okTool(name string) tool.Tool {
	return &stubTool{name: name, invoke: func(context.Context, map[string]any) tool.Result {
		return tool.Ok("done")
	}}
}

func failTool(name string) tool.Tool {
	return &stubTool{name: name, invoke: func(context.Context, map[string]any) tool.Result {
		return tool.Fail(tool.CodeInternal, "boom")
	}}
}

func newTestLoop(t *testing.T, p planner.Planner, reg *tool.Registry, opts ...Option) (*Loop, *session.Stream) {
	t.Helper()
	sess, err := session.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	stream, err := session.OpenStream(sess.EventsPath())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { stream.Close() })
	return NewLoop(sess, stream, p, reg, opts...), stream
}

func steps(tools ...string) []planner.Step {
	out := make([]planner.Step, len(tools))
	for i, name := range tools {
		out[i] = planner.Step{Description: "step", Tool: name}
	}
	return out
}

func kinds(events []session.Event) []session.Kind {
	out := make([]session.Kind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func wantKinds(t *testing.T, got, want []session.Kind) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d events %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: got %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestRunThreeStepSuccessAppendsNineEvents(t *testing.T) {
	reg := tool.NewRegistry()
	reg.Register(okTool("echo"))
	p := &stubPlanner{plan: &planner.Plan{Steps: steps("echo", "echo", "echo")}}
	loop, stream := newTestLoop(t, p, reg)

	res, err := loop.Run(context.Background(), "count to three")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateCompleted {
		t.Fatalf("state = %s, want %s", res.State, StateCompleted)
	}
	if res.Actions != 3 {
		t.Fatalf("actions = %d, want 3", res.Actions)
	}

	events, err := stream.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	wantKinds(t, kinds(events), []session.Kind{
		session.KindGoal,
		session.KindPlan,
		session.KindAction, session.KindObservation,
		session.KindAction, session.KindObservation,
		session.KindAction, session.KindObservation,
		session.KindCompleted,
	})
}

func TestRunCriticalFailureStopsWithErrorEvent(t *testing.T) {
	reg := tool.NewRegistry()
	reg.Register(okTool("echo"))
	reg.Register(failTool("broken"))
	p := &stubPlanner{plan: &planner.Plan{Steps: steps("echo", "broken", "echo")}}
	loop, stream := newTestLoop(t, p, reg)

	res, err := loop.Run(context.Background(), "goal")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateFailed {
		t.Fatalf("state = %s, want %s", res.State, StateFailed)
	}
	if res.Message != "boom" {
		t.Fatalf("message = %q, want %q", res.Message, "boom")
	}

	events, err := stream.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// The third step never runs.
	wantKinds(t, kinds(events), []session.Kind{
		session.KindGoal,
		session.KindPlan,
		session.KindAction, session.KindObservation,
		session.KindAction, session.KindObservation,
		session.KindError,
	})
}

func TestRunOptionalFailureContinues(t *testing.T) {
	reg := tool.NewRegistry()
	reg.Register(okTool("echo"))
	reg.Register(failTool("broken"))
	p := &stubPlanner{plan: &planner.Plan{Steps: []planner.Step{
		{Description: "a", Tool: "echo"},
		{Description: "b", Tool: "broken", Optional: true},
		{Description: "c", Tool: "echo"},
	}}}
	loop, stream := newTestLoop(t, p, reg)

	res, err := loop.Run(context.Background(), "goal")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateCompleted {
		t.Fatalf("state = %s, want %s", res.State, StateCompleted)
	}
	if res.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", res.Skipped)
	}

	events, err := stream.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	wantKinds(t, kinds(events), []session.Kind{
		session.KindGoal,
		session.KindPlan,
		session.KindAction, session.KindObservation,
		session.KindAction, session.KindObservation, session.KindError,
		session.KindAction, session.KindObservation,
		session.KindCompleted,
	})

	var done session.CompletedPayload
	if err := events[len(events)-1].Decode(&done); err != nil {
		t.Fatal(err)
	}
	if done.Steps != 2 || done.Skipped != 1 {
		t.Fatalf("completed payload = %+v, want 2 steps / 1 skipped", done)
	}
}

func TestRunCeilingExhaustsWithNoTerminalEvent(t *testing.T) {
	reg := tool.NewRegistry()
	reg.Register(okTool("echo"))
	p := &stubPlanner{plan: &planner.Plan{Steps: steps("echo", "echo", "echo", "echo", "echo")}}
	loop, stream := newTestLoop(t, p, reg, WithMaxActions(3))

	res, err := loop.Run(context.Background(), "goal")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateExhausted {
		t.Fatalf("state = %s, want %s", res.State, StateExhausted)
	}
	if res.Actions != 3 {
		t.Fatalf("actions = %d, want 3", res.Actions)
	}

	events, err := stream.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// Goal, Plan, then exactly ceiling action/observation pairs. No terminal
	// event: an exhausted log is indistinguishable from a crashed one.
	wantKinds(t, kinds(events), []session.Kind{
		session.KindGoal,
		session.KindPlan,
		session.KindAction, session.KindObservation,
		session.KindAction, session.KindObservation,
		session.KindAction, session.KindObservation,
	})
}

func TestRunCancelledBeforeFirstStep(t *testing.T) {
	reg := tool.NewRegistry()
	reg.Register(okTool("echo"))
	p := &stubPlanner{plan: &planner.Plan{Steps: steps("echo", "echo")}}
	loop, stream := newTestLoop(t, p, reg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := loop.Run(ctx, "goal")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateCancelled {
		t.Fatalf("state = %s, want %s", res.State, StateCancelled)
	}

	events, err := stream.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	wantKinds(t, kinds(events), []session.Kind{
		session.KindGoal,
		session.KindPlan,
		session.KindCancelled,
	})
}

func TestRunCancelledBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	reg := tool.NewRegistry()
	reg.Register(&stubTool{name: "once", invoke: func(context.Context, map[string]any) tool.Result {
		cancel() // operator abort lands while the first step runs
		return tool.Ok("done")
	}})
	p := &stubPlanner{plan: &planner.Plan{Steps: steps("once", "once")}}
	loop, stream := newTestLoop(t, p, reg)

	res, err := loop.Run(ctx, "goal")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateCancelled {
		t.Fatalf("state = %s, want %s", res.State, StateCancelled)
	}
	if res.Actions != 1 {
		t.Fatalf("actions = %d, want 1", res.Actions)
	}

	events, err := stream.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	wantKinds(t, kinds(events), []session.Kind{
		session.KindGoal,
		session.KindPlan,
		session.KindAction, session.KindObservation,
		session.KindCancelled,
	})
}

func TestRunUnknownToolFailsObservation(t *testing.T) {
	reg := tool.NewRegistry()
	p := &stubPlanner{plan: &planner.Plan{Steps: steps("no_such_tool")}}
	loop, stream := newTestLoop(t, p, reg)

	res, err := loop.Run(context.Background(), "goal")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateFailed {
		t.Fatalf("state = %s, want %s", res.State, StateFailed)
	}

	events, err := stream.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	wantKinds(t, kinds(events), []session.Kind{
		session.KindGoal,
		session.KindPlan,
		session.KindAction, session.KindObservation,
		session.KindError,
	})

	var obs session.ObservationPayload
	if err := events[3].Decode(&obs); err != nil {
		t.Fatal(err)
	}
	if obs.Success {
		t.Fatal("observation for unknown tool should not succeed")
	}
	if obs.Error == nil || obs.Error.Code != tool.CodeUnknownTool {
		t.Fatalf("observation error = %+v, want code %s", obs.Error, tool.CodeUnknownTool)
	}
}

func TestRunPlanningFailure(t *testing.T) {
	reg := tool.NewRegistry()
	p := &stubPlanner{err: errors.New("model unavailable")}
	loop, stream := newTestLoop(t, p, reg)

	res, err := loop.Run(context.Background(), "goal")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateFailed {
		t.Fatalf("state = %s, want %s", res.State, StateFailed)
	}

	events, err := stream.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	wantKinds(t, kinds(events), []session.Kind{session.KindGoal, session.KindError})

	var p2 session.ErrorPayload
	if err := events[1].Decode(&p2); err != nil {
		t.Fatal(err)
	}
	if p2.Stage != "planning" {
		t.Fatalf("error stage = %q, want planning", p2.Stage)
	}
}

func TestRunObservationsLinkToTheirActions(t *testing.T) {
	reg := tool.NewRegistry()
	reg.Register(okTool("echo"))
	p := &stubPlanner{plan: &planner.Plan{Steps: steps("echo", "echo")}}
	loop, stream := newTestLoop(t, p, reg)

	if _, err := loop.Run(context.Background(), "goal"); err != nil {
		t.Fatal(err)
	}

	events, err := stream.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(events)-1; i++ {
		if events[i].Kind != session.KindAction {
			continue
		}
		var act session.ActionPayload
		if err := events[i].Decode(&act); err != nil {
			t.Fatal(err)
		}
		var obs session.ObservationPayload
		if err := events[i+1].Decode(&obs); err != nil {
			t.Fatal(err)
		}
		if obs.ActionID != act.ID {
			t.Fatalf("observation action_id %q does not match action id %q", obs.ActionID, act.ID)
		}
		if !strings.Contains(act.ID, "-") {
			t.Fatalf("action id %q does not look like a UUID", act.ID)
		}
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	reg := tool.NewRegistry()
	reg.Register(&stubTool{name: "block", invoke: func(context.Context, map[string]any) tool.Result {
		close(started)
		<-release
		return tool.Ok("done")
	}})
	p := &stubPlanner{plan: &planner.Plan{Steps: steps("block")}}
	loop, _ := newTestLoop(t, p, reg)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := loop.Run(context.Background(), "goal"); err != nil {
			t.Error(err)
		}
	}()

	<-started
	if _, err := loop.Run(context.Background(), "goal"); !errors.Is(err, ErrLoopActive) {
		t.Fatalf("second run error = %v, want ErrLoopActive", err)
	}
	close(release)
	wg.Wait()
}
