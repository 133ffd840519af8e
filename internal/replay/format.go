package replay

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/stridelabs/stride/internal/agent"
	"github.com/stridelabs/stride/internal/session"
)

// Formatter renders an event log as a human-readable timeline.
type Formatter struct {
	output  io.Writer
	verbose bool
}

// NewFormatter creates a Formatter writing to output. Verbose mode prints
// full payload detail instead of one line per event.
func NewFormatter(output io.Writer, verbose bool) *Formatter {
	return &Formatter{output: output, verbose: verbose}
}

// Format writes the timeline for a session's events.
func (f *Formatter) Format(sessionID string, events []session.Event) error {
	sum := agent.Synthesize(events)

	header := fmt.Sprintf("SESSION %s", sessionID)
	if sum.Goal != "" {
		header += "  ·  " + sum.Goal
	}
	fmt.Fprintln(f.output, headerStyle.Render(header))
	fmt.Fprintf(f.output, "%s\n", ruleStyle.Render(strings.Repeat("─", 72)))
	fmt.Fprintf(f.output, "TIMELINE (%d events)\n\n", len(events))

	lastAction := make(map[string]time.Time)

	for _, ev := range events {
		if err := f.formatEvent(ev, lastAction); err != nil {
			return err
		}
	}

	fmt.Fprintf(f.output, "\n%s\n", ruleStyle.Render(strings.Repeat("─", 72)))
	switch sum.Status {
	case agent.StateCompleted:
		fmt.Fprintln(f.output, okStyle.Render(fmt.Sprintf("✓ COMPLETED (%d steps, %d skipped)", sum.Succeeded, sum.Skipped)))
	case agent.StateFailed:
		fmt.Fprintln(f.output, errStyle.Render("✗ FAILED: "+sum.LastError))
	case agent.StateCancelled:
		fmt.Fprintln(f.output, warnStyle.Render("◼ CANCELLED"))
	default:
		fmt.Fprintln(f.output, dimStyle.Render("⋯ IN PROGRESS"))
	}
	if len(sum.Artifacts) > 0 {
		fmt.Fprintln(f.output, "Artifacts:")
		for _, a := range sum.Artifacts {
			fmt.Fprintf(f.output, "  %s\n", a)
		}
	}
	return nil
}

func (f *Formatter) formatEvent(ev session.Event, lastAction map[string]time.Time) error {
	ts := ev.Timestamp.Format("15:04:05.000")
	prefix := fmt.Sprintf("%4d │ %s │", ev.Sequence, ts)

	switch ev.Kind {
	case session.KindGoal:
		var p session.GoalPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		fmt.Fprintf(f.output, "%s ▶ GOAL: %s\n", prefix, p.Goal)

	case session.KindPlan:
		var p session.PlanPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		fmt.Fprintf(f.output, "%s ☰ PLAN: %d steps\n", prefix, len(p.Steps))
		for i, s := range p.Steps {
			marker := ""
			if s.Optional {
				marker = " (optional)"
			}
			fmt.Fprintf(f.output, "     │              │   %d. [%s] %s%s\n", i+1, s.Tool, s.Description, marker)
		}
		if f.verbose && p.Reasoning != "" {
			f.indented(clip(p.Reasoning, 300))
		}

	case session.KindAction:
		var p session.ActionPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		lastAction[p.ID] = ev.Timestamp
		fmt.Fprintf(f.output, "%s 🔧 ACTION %d: %s — %s\n", prefix, p.Step+1, toolStyle.Render(p.Tool), p.Description)
		if f.verbose && len(p.Args) > 0 {
			f.indented(formatArgs(p.Args))
		}

	case session.KindObservation:
		var p session.ObservationPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		status := okStyle.Render("✓")
		if !p.Success {
			status = errStyle.Render("✗")
		}
		elapsed := ""
		if issued, ok := lastAction[p.ActionID]; ok {
			elapsed = fmt.Sprintf(" (%s)", ev.Timestamp.Sub(issued).Round(time.Millisecond))
		}
		fmt.Fprintf(f.output, "%s %s OBSERVATION %d%s\n", prefix, status, p.Step+1, elapsed)
		if p.Error != nil {
			f.indented(errStyle.Render(p.Error.Error()))
		} else if f.verbose && p.Result != "" {
			f.indented(clip(p.Result, 200))
		}
		for _, a := range p.Artifacts {
			f.indented("artifact: " + a)
		}

	case session.KindError:
		var p session.ErrorPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		fmt.Fprintf(f.output, "%s ⚠ ERROR [%s]: %s\n", prefix, p.Stage, p.Message)

	case session.KindCompleted:
		var p session.CompletedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		fmt.Fprintf(f.output, "%s ◼ COMPLETED: %d steps, %d skipped\n", prefix, p.Steps, p.Skipped)

	case session.KindCancelled:
		var p session.CancelledPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		fmt.Fprintf(f.output, "%s ◼ CANCELLED: %s\n", prefix, p.Reason)

	default:
		fmt.Fprintf(f.output, "%s ⬛ %s\n", prefix, ev.Kind)
	}
	return nil
}

func (f *Formatter) indented(text string) {
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			fmt.Fprintf(f.output, "     │              │     %s\n", line)
		}
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func formatArgs(args map[string]any) string {
	parts := make([]string, 0, len(args))
	for _, k := range sortedKeys(args) {
		v := fmt.Sprintf("%v", args[k])
		parts = append(parts, fmt.Sprintf("%s=%s", k, clip(v, 50)))
	}
	return strings.Join(parts, ", ")
}
