package tasks

import (
	"fmt"
	"sort"
	"strings"

	"roomsim/internal/protocol"
	"roomsim/internal/sim/graph"
)

// Verifier evaluates tasks against live graph state. Completion is
// monotonic: once a task id is recorded complete it is never re-evaluated,
// even if the underlying state is later toggled back.
type Verifier struct {
	completed map[string]bool
}

func NewVerifier() *Verifier {
	return &Verifier{completed: map[string]bool{}}
}

// IsComplete reports the cached completion status without re-evaluating.
func (v *Verifier) IsComplete(t Task) bool {
	return v.completed[t.ID()]
}

// CompletedIDs returns the cached completed task ids, for persistence.
func (v *Verifier) CompletedIDs() []string {
	out := make([]string, 0, len(v.completed))
	for id := range v.completed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RestoreCompleted marks task ids complete without evaluation, so a resumed
// episode keeps its monotonic history.
func (v *Verifier) RestoreCompleted(ids []string) {
	for _, id := range ids {
		v.completed[id] = true
	}
}

// Verify evaluates one task. Already-complete tasks short-circuit to true.
func (v *Verifier) Verify(t Task, g *graph.Graph) bool {
	id := t.ID()
	if v.completed[id] {
		return true
	}
	coop := t.Cooperative()
	for _, c := range t.Checks {
		if !checkPasses(c, coop, g) {
			return false
		}
	}
	v.completed[id] = true
	return true
}

// VerifyAll evaluates every task and returns one report per task. A panic
// inside one task's evaluation is caught and surfaced on that report rather
// than propagated.
func (v *Verifier) VerifyAll(list []Task, g *graph.Graph) ([]protocol.TaskReport, bool) {
	reports := make([]protocol.TaskReport, 0, len(list))
	all := true
	for _, t := range list {
		r := protocol.TaskReport{
			TaskID:      t.ID(),
			Description: t.Description,
			Category:    t.Category,
		}
		done, err := v.verifySafe(t, g)
		if err != nil {
			r.Error = err.Error()
			all = false
		} else {
			r.Done = done
			if !done {
				all = false
			}
		}
		reports = append(reports, r)
	}
	return reports, all
}

func (v *Verifier) verifySafe(t Task, g *graph.Graph) (done bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("verification error: %v", rec)
		}
	}()
	return v.Verify(t, g), nil
}

func checkPasses(c Check, coop bool, g *graph.Graph) bool {
	n := g.NodeByID(c.ObjectID)
	if n == nil {
		return false
	}
	if c.IsLocation() {
		return locationMatches(n.LocationID, c.LocationID)
	}
	key := strings.TrimSpace(c.State)
	if key == "" {
		return false
	}
	val, ok := n.States[key]
	if !ok || val != c.Value {
		return false
	}
	if coop && !n.IsCoopModified(key) {
		return false
	}
	return true
}

// locationMatches compares a live location against an expected one. An
// expected value with a preposition ("in:fridge_1") must match exactly; an
// expected value without one matches either preposition or a bare room id.
func locationMatches(got, want string) bool {
	got = strings.ToLower(strings.TrimSpace(got))
	want = strings.ToLower(strings.TrimSpace(want))
	if got == want {
		return true
	}
	if strings.Contains(want, ":") {
		return false
	}
	return strings.TrimPrefix(strings.TrimPrefix(got, "in:"), "on:") == want
}
