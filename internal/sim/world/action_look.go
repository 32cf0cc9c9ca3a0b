package world

import (
	"fmt"
	"sort"
	"strings"

	"roomsim/internal/protocol"
	"roomsim/internal/sim/graph"
)

func (w *World) validateLook(act *Action) protocol.Result {
	if act.TargetID == "" {
		return protocol.Success("")
	}
	a := w.agents[act.AgentID]
	n := w.g.NodeByID(act.TargetID)
	if n == nil {
		return protocol.Invalid(protocol.ErrNotFound, fmt.Sprintf("%s does not exist", act.TargetID))
	}
	if w.g.IsRoom(w.g.Lookup(act.TargetID)) {
		return protocol.Success("")
	}
	if !n.Discovered {
		return protocol.Invalid(protocol.ErrNotDiscovered, fmt.Sprintf("%s has not been discovered", act.TargetID))
	}
	if !a.Near(act.TargetID) {
		return protocol.Invalid(protocol.ErrNotNearby, fmt.Sprintf("%s is not within reach of %s", act.TargetID, a.ID))
	}
	return protocol.Success("")
}

// executeLook is read-only: it reports the discovered contents of a
// container, or of the agent's current room when no target is given.
func (w *World) executeLook(act *Action) protocol.Result {
	a := w.agents[act.AgentID]
	scope := act.TargetID
	if scope == "" {
		scope = a.LocationID
	}

	var visible []string
	if w.g.IsRoom(w.g.Lookup(scope)) {
		for _, id := range w.g.ObjectsInRoom(scope, false) {
			if w.g.NodeByID(id).Discovered {
				visible = append(visible, id)
			}
		}
	} else {
		// Peeking into a closed container reveals nothing.
		n := w.g.NodeByID(scope)
		if open, exists := n.States["open"]; exists && !open {
			return protocol.Success(fmt.Sprintf("%s is closed", scope))
		}
		for _, h := range w.g.Children(w.g.Lookup(scope)) {
			ch := w.g.Node(h)
			if ch.Discovered && ch.Kind != graph.KindAgent {
				visible = append(visible, ch.ID)
			}
		}
		sort.Strings(visible)
	}

	res := protocol.Success(describeContents(scope, visible))
	res.Payload = map[string]any{"scope": scope, "objects": visible}
	return res
}

func describeContents(scope string, ids []string) string {
	if len(ids) == 0 {
		return fmt.Sprintf("%s contains nothing of note", scope)
	}
	return fmt.Sprintf("%s contains: %s", scope, strings.Join(ids, ", "))
}
