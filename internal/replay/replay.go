// Package replay reconstructs and visualizes sessions from their event
// logs for forensic analysis.
package replay

import (
	"fmt"
	"time"

	"github.com/stridelabs/stride/internal/agent"
	"github.com/stridelabs/stride/internal/session"
)

// Snapshot is the agent's state immediately after one event was applied.
// Slices are owned by the snapshot; mutating one snapshot never changes
// another.
type Snapshot struct {
	Sequence  uint64
	Timestamp time.Time
	Kind      session.Kind

	State        agent.State
	Goal         string
	Plan         *session.PlanPayload
	Step         int
	Pending      *session.ActionPayload
	Observations []session.ObservationPayload
	Artifacts    []string
	LastError    string
}

// Reconstruct folds an event log into one Snapshot per event. The same
// log always reconstructs to the same snapshots.
func Reconstruct(events []session.Event) ([]Snapshot, error) {
	snaps := make([]Snapshot, 0, len(events))
	cur := Snapshot{State: agent.StatePlanning}

	for _, ev := range events {
		cur.Sequence = ev.Sequence
		cur.Timestamp = ev.Timestamp
		cur.Kind = ev.Kind

		switch ev.Kind {
		case session.KindGoal:
			var p session.GoalPayload
			if err := ev.Decode(&p); err != nil {
				return nil, err
			}
			cur.Goal = p.Goal
			cur.State = agent.StatePlanning

		case session.KindPlan:
			var p session.PlanPayload
			if err := ev.Decode(&p); err != nil {
				return nil, err
			}
			cur.Plan = &p
			cur.State = agent.StateExecuting

		case session.KindAction:
			var p session.ActionPayload
			if err := ev.Decode(&p); err != nil {
				return nil, err
			}
			cur.Pending = &p
			cur.Step = p.Step
			cur.State = agent.StateExecuting

		case session.KindObservation:
			var p session.ObservationPayload
			if err := ev.Decode(&p); err != nil {
				return nil, err
			}
			cur.Pending = nil
			cur.Step = p.Step
			cur.Observations = append(cur.Observations, p)
			cur.Artifacts = append(cur.Artifacts, p.Artifacts...)
			cur.State = agent.StateObserving

		case session.KindError:
			var p session.ErrorPayload
			if err := ev.Decode(&p); err != nil {
				return nil, err
			}
			cur.LastError = p.Message
			// The run is failed as of this record; a following Action (an
			// optional step was skipped) flips the state back to executing.
			cur.State = agent.StateFailed

		case session.KindCompleted:
			cur.State = agent.StateCompleted

		case session.KindCancelled:
			cur.State = agent.StateCancelled

		default:
			// Kinds written by newer versions are carried but not interpreted.
		}

		snaps = append(snaps, cloneSnapshot(cur))
	}
	return snaps, nil
}

// At returns the snapshot for a given sequence number.
func At(snaps []Snapshot, seq uint64) (Snapshot, error) {
	for _, s := range snaps {
		if s.Sequence == seq {
			return s, nil
		}
	}
	return Snapshot{}, fmt.Errorf("no snapshot for sequence %d", seq)
}

func cloneSnapshot(s Snapshot) Snapshot {
	out := s
	if s.Plan != nil {
		p := *s.Plan
		p.Steps = append([]session.PlanStep(nil), s.Plan.Steps...)
		out.Plan = &p
	}
	if s.Pending != nil {
		a := *s.Pending
		out.Pending = &a
	}
	out.Observations = append([]session.ObservationPayload(nil), s.Observations...)
	out.Artifacts = append([]string(nil), s.Artifacts...)
	return out
}
