package world

import (
	"fmt"

	"roomsim/internal/protocol"
	"roomsim/internal/sim/graph"
)

func (w *World) validatePlace(act *Action) protocol.Result {
	a := w.agents[act.AgentID]
	if !a.Holds(act.TargetID) {
		return protocol.Invalid(protocol.ErrWrongState,
			fmt.Sprintf("%s is not holding %s", a.ID, act.TargetID))
	}
	dest := w.g.NodeByID(act.DestinationID)
	if dest == nil {
		return protocol.Invalid(protocol.ErrNotFound, fmt.Sprintf("%s does not exist", act.DestinationID))
	}
	destIsRoom := w.g.IsRoom(w.g.Lookup(act.DestinationID))
	if !destIsRoom && !a.Near(act.DestinationID) {
		return protocol.Invalid(protocol.ErrNotNearby,
			fmt.Sprintf("%s is not within reach of %s", act.DestinationID, a.ID))
	}
	if destIsRoom && act.DestinationID != a.LocationID {
		return protocol.Invalid(protocol.ErrNotNearby,
			fmt.Sprintf("%s is not in %s", a.ID, act.DestinationID))
	}
	switch act.Relation {
	case graph.RelIn:
		if !destIsRoom {
			if !dest.IsContainer() {
				return protocol.Invalid(protocol.ErrWrongState,
					fmt.Sprintf("%s is not a container", act.DestinationID))
			}
			if open, exists := dest.States["open"]; exists && !open {
				return protocol.Invalid(protocol.ErrContainerShut,
					fmt.Sprintf("%s is closed", act.DestinationID))
			}
		}
	case graph.RelOn:
		if destIsRoom {
			return protocol.Invalid(protocol.ErrBadArguments,
				fmt.Sprintf("cannot place on a room: %s", act.DestinationID))
		}
	}
	// Placing into or onto a held item loads whoever holds it.
	if holder := w.heldBy(act.DestinationID); holder != nil {
		own, _ := w.g.NodeByID(act.TargetID).PropFloat("weight")
		prospective := holder.CurrentWeight + own
		if holder == a {
			prospective -= w.carriedWeight(act.TargetID)
		}
		if prospective > holder.MaxWeight {
			return protocol.Invalid(protocol.ErrWeightLimit, "weight limit exceeded")
		}
	}
	return protocol.Success("")
}

// executePlace reverses the grab bookkeeping then rewrites containment. The
// graph write can still fail (placing a container into its own contents);
// the agent side is restored before reporting that.
func (w *World) executePlace(act *Action) protocol.Result {
	a := w.agents[act.AgentID]

	a.removeFromInventory(act.TargetID)
	w.revokeAbilities(a, act.TargetID)

	if err := w.g.Attach(act.TargetID, act.Relation, act.DestinationID); err != nil {
		a.Inventory = append(a.Inventory, act.TargetID)
		w.grantAbilities(a, act.TargetID)
		return protocol.Failure(protocol.ErrInconsistent, err.Error())
	}
	// The target may have landed inside another carried subtree; recompute
	// both loads from inventory.
	w.syncWeight(a)
	if dst := w.holderOf(act.TargetID); dst != nil && dst != a {
		w.syncWeight(dst)
	}
	return protocol.Success(fmt.Sprintf("%s placed %s %s %s",
		a.ID, act.TargetID, act.Relation, act.DestinationID))
}
