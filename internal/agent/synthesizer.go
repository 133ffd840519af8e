package agent

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/stridelabs/stride/internal/session"
)

// Summary is the condensed outcome of a run, derived entirely from its
// event log. Folding the same log always yields the same Summary.
type Summary struct {
	Goal      string
	Status    State
	PlanSteps int
	Actions   int
	Succeeded int
	Failed    int
	Skipped   int
	Artifacts []string
	Results   []string
	LastError string
}

// SynthOption adjusts a synthesis.
type SynthOption func(*Summary)

// WithStatus overrides the derived status. The live runner uses it to
// report Exhausted, which a log alone cannot distinguish from in-progress.
func WithStatus(s State) SynthOption {
	return func(sum *Summary) { sum.Status = s }
}

// maxResultLen keeps notable results readable in a terminal summary.
const maxResultLen = 200

// Synthesize folds an event log into a Summary. Events it does not
// recognize are skipped, so newer logs remain summarizable.
func Synthesize(events []session.Event, opts ...SynthOption) Summary {
	sum := Summary{Status: StateInProgress}
	var lastKind session.Kind

	for _, ev := range events {
		lastKind = ev.Kind
		switch ev.Kind {
		case session.KindGoal:
			var p session.GoalPayload
			if ev.Decode(&p) == nil {
				sum.Goal = p.Goal
			}
		case session.KindPlan:
			var p session.PlanPayload
			if ev.Decode(&p) == nil {
				sum.PlanSteps = len(p.Steps)
			}
		case session.KindAction:
			sum.Actions++
		case session.KindObservation:
			var p session.ObservationPayload
			if ev.Decode(&p) != nil {
				continue
			}
			if p.Success {
				sum.Succeeded++
				if r := strings.TrimSpace(p.Result); r != "" {
					sum.Results = append(sum.Results, truncate(r, maxResultLen))
				}
			} else {
				sum.Failed++
			}
			sum.Artifacts = append(sum.Artifacts, p.Artifacts...)
		case session.KindError:
			var p session.ErrorPayload
			if ev.Decode(&p) == nil {
				sum.LastError = p.Message
			}
		case session.KindCompleted:
			var p session.CompletedPayload
			if ev.Decode(&p) == nil {
				sum.Skipped = p.Skipped
			}
			sum.Status = StateCompleted
		case session.KindCancelled:
			sum.Status = StateCancelled
		}
	}

	// A log whose final record is an error belongs to a run that aborted.
	if sum.Status == StateInProgress && lastKind == session.KindError {
		sum.Status = StateFailed
	}

	for _, opt := range opts {
		opt(&sum)
	}
	return sum
}

// Render formats the summary for a terminal.
func (s Summary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal:    %s\n", s.Goal)
	fmt.Fprintf(&b, "Status:  %s\n", s.Status)
	fmt.Fprintf(&b, "Steps:   %d planned, %d succeeded, %d failed, %d skipped\n",
		s.PlanSteps, s.Succeeded, s.Failed, s.Skipped)
	if s.LastError != "" {
		fmt.Fprintf(&b, "Error:   %s\n", s.LastError)
	}
	if len(s.Artifacts) > 0 {
		b.WriteString("Artifacts:\n")
		for _, a := range s.Artifacts {
			fmt.Fprintf(&b, "  %s\n", a)
		}
	}
	if len(s.Results) > 0 {
		b.WriteString("Results:\n")
		for _, r := range s.Results {
			fmt.Fprintf(&b, "  - %s\n", firstLine(r))
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary so the cut never splits a multi-byte rune.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
