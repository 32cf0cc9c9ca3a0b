package world

import (
	"fmt"

	"roomsim/internal/protocol"
	"roomsim/internal/sim/graph"
)

func (w *World) validateGrab(act *Action) protocol.Result {
	a := w.agents[act.AgentID]
	n := w.g.NodeByID(act.TargetID)
	if n == nil {
		return protocol.Invalid(protocol.ErrNotFound, fmt.Sprintf("%s does not exist", act.TargetID))
	}
	if !n.Discovered {
		return protocol.Invalid(protocol.ErrNotDiscovered, fmt.Sprintf("%s has not been discovered", act.TargetID))
	}
	// A held object leaves its owner's proximity set, so the holder check
	// must come first to report the real reason.
	if holder := w.heldBy(act.TargetID); holder != nil {
		return protocol.Invalid(protocol.ErrOccupied,
			fmt.Sprintf("%s is already held by %s", act.TargetID, holder.ID))
	}
	if !a.Near(act.TargetID) {
		return protocol.Invalid(protocol.ErrNotNearby, fmt.Sprintf("%s is not within reach of %s", act.TargetID, a.ID))
	}
	if n.Kind != graph.KindGrabbable && n.Kind != graph.KindItem {
		return protocol.Invalid(protocol.ErrWrongState, fmt.Sprintf("%s cannot be picked up", act.TargetID))
	}
	h := w.g.Lookup(act.TargetID)
	if p, rel, ok := w.g.Parent(h); ok && rel == graph.RelIn {
		parent := w.g.Node(p)
		if !w.g.IsRoom(p) {
			if open, exists := parent.States["open"]; exists && !open {
				return protocol.Invalid(protocol.ErrContainerShut,
					fmt.Sprintf("%s is closed", parent.ID))
			}
		}
	}
	// Contents ride along; anything resting on top does not.
	if on := w.g.ChildrenByRel(h, graph.RelOn); len(on) > 0 {
		return protocol.Invalid(protocol.ErrOccupied,
			fmt.Sprintf("%s has objects on it", act.TargetID))
	}
	if len(a.Inventory) >= a.MaxGraspLimit {
		return protocol.Invalid(protocol.ErrCapacity,
			fmt.Sprintf("%s is already holding %d objects", a.ID, len(a.Inventory)))
	}
	if a.CurrentWeight+w.grabWeight(a, act.TargetID) > a.MaxWeight {
		return protocol.Invalid(protocol.ErrWeightLimit, "weight limit exceeded")
	}
	return protocol.Success("")
}

// executeGrab applies the agent-side bookkeeping first, then rewrites the
// containment edge. A graph failure rolls the agent back so inventory and
// graph never disagree.
func (w *World) executeGrab(act *Action) protocol.Result {
	a := w.agents[act.AgentID]
	src := w.holderOf(act.TargetID)

	a.Inventory = append(a.Inventory, act.TargetID)
	fresh := w.grantAbilities(a, act.TargetID)

	if err := w.g.Attach(act.TargetID, graph.RelIn, a.ID); err != nil {
		a.removeFromInventory(act.TargetID)
		w.rollbackAbilities(a, act.TargetID, fresh)
		return protocol.Failure(protocol.ErrInconsistent, err.Error())
	}
	// Grabbing out of a held container changes that carrier's load too.
	w.syncWeight(a)
	if src != nil && src != a {
		w.syncWeight(src)
	}
	// The agent has not moved; whatever was reachable still is.
	return protocol.Success(fmt.Sprintf("%s picked up %s", a.ID, act.TargetID))
}
