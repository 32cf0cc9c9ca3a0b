package world

import "roomsim/internal/sim/graph"

// updateProximity recomputes the agent's reachable set from scratch: its
// inventory and current room are always reachable; a discovered target adds
// either the room itself (room target) or the target's furniture anchor with
// every discovered object in that anchor's subtree. Standing at a workbench
// means reaching everything on or in the workbench, not just the piece the
// agent walked to.
func (w *World) updateProximity(a *Agent, targetID string) {
	a.NearObjects = map[string]struct{}{a.LocationID: {}}
	for _, held := range a.Inventory {
		a.NearObjects[held] = struct{}{}
	}
	if targetID == "" {
		return
	}
	n := w.g.NodeByID(targetID)
	if n == nil || !n.Discovered {
		return
	}
	if w.g.IsRoom(w.g.Lookup(targetID)) {
		a.NearObjects[targetID] = struct{}{}
		return
	}
	anchor, ok := w.g.FurnitureAnchor(targetID)
	if !ok {
		a.NearObjects[targetID] = struct{}{}
		return
	}
	a.NearObjects[anchor] = struct{}{}
	for _, id := range w.g.Descendants(anchor) {
		d := w.g.NodeByID(id)
		if d != nil && d.Discovered && d.Kind != graph.KindAgent {
			a.NearObjects[id] = struct{}{}
		}
	}
}
