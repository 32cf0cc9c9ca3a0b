package world

import (
	"fmt"

	"roomsim/internal/protocol"
	"roomsim/internal/sim/graph"
)

func (w *World) validateGoto(act *Action) protocol.Result {
	n := w.g.NodeByID(act.TargetID)
	if n == nil {
		return protocol.Invalid(protocol.ErrNotFound, fmt.Sprintf("%s does not exist", act.TargetID))
	}
	a := w.agents[act.AgentID]
	if w.g.IsRoom(w.g.Lookup(act.TargetID)) {
		if w.g.FindPath(a.LocationID, act.TargetID) == nil {
			return protocol.Invalid(protocol.ErrNoPath,
				fmt.Sprintf("no path from %s to %s", a.LocationID, act.TargetID))
		}
		return protocol.Success("")
	}
	if !n.Discovered {
		return protocol.Invalid(protocol.ErrNotDiscovered, fmt.Sprintf("%s has not been discovered", act.TargetID))
	}
	if w.g.RoomOf(act.TargetID) != a.LocationID {
		return protocol.Invalid(protocol.ErrNotNearby,
			fmt.Sprintf("%s is not in %s", act.TargetID, a.LocationID))
	}
	return protocol.Success("")
}

// executeGoto moves the agent between rooms, or walks it up to an object in
// its current room. Object targets never change location_id, only proximity.
func (w *World) executeGoto(act *Action) protocol.Result {
	a := w.agents[act.AgentID]
	if w.g.IsRoom(w.g.Lookup(act.TargetID)) {
		if err := w.g.Attach(a.ID, graph.RelIn, act.TargetID); err != nil {
			return protocol.Failure(protocol.ErrInconsistent, err.Error())
		}
		a.LocationID = act.TargetID
		w.updateProximity(a, "")
		return protocol.Success(fmt.Sprintf("%s moved to %s", a.ID, act.TargetID))
	}
	w.updateProximity(a, act.TargetID)
	return protocol.Success(fmt.Sprintf("%s is now near %s", a.ID, act.TargetID))
}
