package replay

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stridelabs/stride/internal/session"
)

// ToolStats aggregates invocations of one tool across a run.
type ToolStats struct {
	Invocations int
	Failures    int
	Total       time.Duration
}

// Stats are aggregate figures over one event log.
type Stats struct {
	Events  int
	Actions int
	Wall    time.Duration
	ByTool  map[string]ToolStats
}

// Collect computes Stats for an event log. Action durations are measured
// from the action record to its matching observation.
func Collect(events []session.Event) (Stats, error) {
	st := Stats{Events: len(events), ByTool: make(map[string]ToolStats)}
	if len(events) == 0 {
		return st, nil
	}
	st.Wall = events[len(events)-1].Timestamp.Sub(events[0].Timestamp)

	type issued struct {
		tool string
		at   time.Time
	}
	open := make(map[string]issued)

	for _, ev := range events {
		switch ev.Kind {
		case session.KindAction:
			var p session.ActionPayload
			if err := ev.Decode(&p); err != nil {
				return st, err
			}
			st.Actions++
			open[p.ID] = issued{tool: p.Tool, at: ev.Timestamp}

		case session.KindObservation:
			var p session.ObservationPayload
			if err := ev.Decode(&p); err != nil {
				return st, err
			}
			act, ok := open[p.ActionID]
			if !ok {
				continue
			}
			delete(open, p.ActionID)
			ts := st.ByTool[act.tool]
			ts.Invocations++
			ts.Total += ev.Timestamp.Sub(act.at)
			if !p.Success {
				ts.Failures++
			}
			st.ByTool[act.tool] = ts
		}
	}
	return st, nil
}

// Render formats the stats as a small table.
func (s Stats) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d events, %d actions, %s wall time\n", s.Events, s.Actions, s.Wall.Round(time.Millisecond))
	if len(s.ByTool) == 0 {
		return b.String()
	}

	names := make([]string, 0, len(s.ByTool))
	for name := range s.ByTool {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ts := s.ByTool[name]
		fmt.Fprintf(&b, "  %-14s %3d calls  %3d failed  %s\n",
			name, ts.Invocations, ts.Failures, ts.Total.Round(time.Millisecond))
	}
	return b.String()
}
