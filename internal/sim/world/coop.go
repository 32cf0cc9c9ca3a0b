package world

import (
	"fmt"
	"sort"
	"strings"

	"roomsim/internal/protocol"
	"roomsim/internal/sim/graph"
)

// pendingCoop is a cooperative command waiting for its participants. One
// instance is shared by every listed agent; the command fires when the last
// of them issues the identical text.
type pendingCoop struct {
	command      string
	participants []string
	issued       map[string]bool
}

func normalizeCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	fields[0] = strings.ToUpper(fields[0])
	return strings.Join(fields, " ")
}

func (w *World) dropGroup(p *pendingCoop) {
	for _, id := range p.participants {
		if w.pending[id] == p {
			delete(w.pending, id)
		}
	}
}

// breakPendingUnless abandons the agent's pending cooperative group when it
// issues anything other than the command the group is waiting on. Changing
// your mind cancels the whole group, not just your own slot.
func (w *World) breakPendingUnless(agentID, command string) {
	p := w.pending[agentID]
	if p != nil && p.command != normalizeCommand(command) {
		w.dropGroup(p)
	}
}

// syncCoop joins or creates the pending group for this command. ready is
// true only when every participant has issued it; earlier issuers WAIT.
func (w *World) syncCoop(act *Action, command string) (protocol.Result, bool) {
	norm := normalizeCommand(command)
	p := w.pending[act.AgentID]
	if p == nil || p.command != norm {
		p = &pendingCoop{
			command:      norm,
			participants: act.Participants,
			issued:       map[string]bool{},
		}
		for _, id := range act.Participants {
			if old := w.pending[id]; old != nil && old != p {
				w.dropGroup(old)
			}
			w.pending[id] = p
		}
	}
	p.issued[act.AgentID] = true

	var missing []string
	for _, id := range p.participants {
		if !p.issued[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return protocol.Waiting(fmt.Sprintf("waiting for %s", strings.Join(missing, ", "))), false
	}
	w.dropGroup(p)
	return protocol.Result{Status: protocol.StatusSuccess}, true
}

func (w *World) validateCoop(act *Action) protocol.Result {
	initiatorListed := false
	for _, id := range act.Participants {
		if w.agents[id] == nil {
			return protocol.Invalid(protocol.ErrNotFound, fmt.Sprintf("unknown agent: %s", id))
		}
		if id == act.AgentID {
			initiatorListed = true
		}
	}
	if !initiatorListed {
		return protocol.Invalid(protocol.ErrBadArguments,
			fmt.Sprintf("%s must be listed among the participants", act.AgentID))
	}

	switch act.Kind {
	case ActCoopGoto:
		return w.validateCoopGoto(act)
	case ActCoopGrab:
		return w.validateCoopGrab(act)
	case ActCoopPlace:
		return w.validateCoopPlace(act)
	case ActCoopAttr:
		return w.validateCoopAttr(act)
	}
	return protocol.Invalid(protocol.ErrInternal, "unhandled action kind")
}

func (w *World) validateCoopGoto(act *Action) protocol.Result {
	if !w.g.IsRoom(w.g.Lookup(act.TargetID)) {
		return protocol.Invalid(protocol.ErrNotFound, fmt.Sprintf("%s does not exist", act.TargetID))
	}
	initiator := w.agents[act.AgentID]
	for _, id := range act.Participants {
		if w.agents[id].LocationID != initiator.LocationID {
			return protocol.Invalid(protocol.ErrNotNearby,
				fmt.Sprintf("%s is not in %s", id, initiator.LocationID))
		}
	}
	if w.g.FindPath(initiator.LocationID, act.TargetID) == nil {
		return protocol.Invalid(protocol.ErrNoPath,
			fmt.Sprintf("no path from %s to %s", initiator.LocationID, act.TargetID))
	}
	return protocol.Success("")
}

// validateCoopGrab mirrors the solo grab checks except the per-agent weight
// limit: the load is shared, so only grasp capacity binds the initiator.
func (w *World) validateCoopGrab(act *Action) protocol.Result {
	n := w.g.NodeByID(act.TargetID)
	if n == nil {
		return protocol.Invalid(protocol.ErrNotFound, fmt.Sprintf("%s does not exist", act.TargetID))
	}
	if !n.Discovered {
		return protocol.Invalid(protocol.ErrNotDiscovered, fmt.Sprintf("%s has not been discovered", act.TargetID))
	}
	if n.Kind != graph.KindGrabbable && n.Kind != graph.KindItem {
		return protocol.Invalid(protocol.ErrWrongState, fmt.Sprintf("%s cannot be picked up", act.TargetID))
	}
	if holder := w.heldBy(act.TargetID); holder != nil {
		return protocol.Invalid(protocol.ErrOccupied,
			fmt.Sprintf("%s is already held by %s", act.TargetID, holder.ID))
	}
	for _, id := range act.Participants {
		a := w.agents[id]
		if a.Mode != ModeFree {
			return protocol.Invalid(protocol.ErrCoopMode,
				fmt.Sprintf("%s is already carrying %s cooperatively", id, a.CoopObjectID))
		}
		if !a.Near(act.TargetID) {
			return protocol.Invalid(protocol.ErrNotNearby,
				fmt.Sprintf("%s is not within reach of %s", act.TargetID, id))
		}
	}
	h := w.g.Lookup(act.TargetID)
	if p, rel, ok := w.g.Parent(h); ok && rel == graph.RelIn && !w.g.IsRoom(p) {
		parent := w.g.Node(p)
		if open, exists := parent.States["open"]; exists && !open {
			return protocol.Invalid(protocol.ErrContainerShut, fmt.Sprintf("%s is closed", parent.ID))
		}
	}
	if on := w.g.ChildrenByRel(h, graph.RelOn); len(on) > 0 {
		return protocol.Invalid(protocol.ErrOccupied, fmt.Sprintf("%s has objects on it", act.TargetID))
	}
	// The first listed participant is the carrier, regardless of which
	// member issued the command last.
	carrier := w.agents[act.Participants[0]]
	if len(carrier.Inventory) >= carrier.MaxGraspLimit {
		return protocol.Invalid(protocol.ErrCapacity,
			fmt.Sprintf("%s is already holding %d objects", carrier.ID, len(carrier.Inventory)))
	}
	return protocol.Success("")
}

func (w *World) validateCoopPlace(act *Action) protocol.Result {
	holder := w.coopHolder(act)
	if holder == nil {
		return protocol.Invalid(protocol.ErrWrongState,
			fmt.Sprintf("no participant is holding %s", act.TargetID))
	}
	for _, id := range act.Participants {
		a := w.agents[id]
		if a.Mode == ModeCooperating && a.CoopObjectID != act.TargetID {
			return protocol.Invalid(protocol.ErrCoopMode,
				fmt.Sprintf("%s is carrying %s, not %s", id, a.CoopObjectID, act.TargetID))
		}
	}
	// The destination rules are the solo ones, checked from the holder.
	probe := *act
	probe.Kind = ActPlace
	probe.AgentID = holder.ID
	return w.validatePlace(&probe)
}

// coopHolder finds the participant whose inventory contains the shared
// object.
func (w *World) coopHolder(act *Action) *Agent {
	for _, id := range act.Participants {
		if a := w.agents[id]; a != nil && a.Holds(act.TargetID) {
			return a
		}
	}
	return nil
}

func (w *World) validateCoopAttr(act *Action) protocol.Result {
	row, ok := w.attrs[act.Verb]
	if !ok {
		return protocol.Invalid(protocol.ErrUnknownCommand, fmt.Sprintf("unknown command: %s", act.Verb))
	}
	n := w.g.NodeByID(act.TargetID)
	if n == nil {
		return protocol.Invalid(protocol.ErrNotFound, fmt.Sprintf("%s does not exist", act.TargetID))
	}
	if !n.Discovered {
		return protocol.Invalid(protocol.ErrNotDiscovered, fmt.Sprintf("%s has not been discovered", act.TargetID))
	}
	for _, id := range act.Participants {
		a := w.agents[id]
		if !a.Near(act.TargetID) {
			return protocol.Invalid(protocol.ErrNotNearby,
				fmt.Sprintf("%s is not within reach of %s", act.TargetID, id))
		}
		if row.RequiresTool && !a.HasAbility(act.Verb) {
			return protocol.Invalid(protocol.ErrMissingAbility,
				fmt.Sprintf("%s requires every participant to hold a tool providing %s", act.Verb, act.Verb))
		}
	}
	if n.States[row.Attribute] != row.ExpectedValue {
		return protocol.Invalid(protocol.ErrWrongState,
			fmt.Sprintf("%s is not %s=%t", act.TargetID, row.Attribute, row.ExpectedValue))
	}
	return protocol.Success("")
}

// executeCoopGoto moves the whole group (and whatever it carries) in one
// step; partial movement would strand a shared load between rooms.
func (w *World) executeCoopGoto(act *Action) protocol.Result {
	for _, id := range act.Participants {
		a := w.agents[id]
		if err := w.g.Attach(a.ID, graph.RelIn, act.TargetID); err != nil {
			return protocol.Failure(protocol.ErrInconsistent, err.Error())
		}
		a.LocationID = act.TargetID
		w.updateProximity(a, "")
	}
	return protocol.Success(fmt.Sprintf("%s moved to %s",
		strings.Join(act.Participants, ", "), act.TargetID))
}

// executeCoopGrab puts the object in the first participant's inventory (the
// weight invariant needs exactly one holder) and flips every participant
// into cooperating mode.
func (w *World) executeCoopGrab(act *Action) protocol.Result {
	carrier := w.agents[act.Participants[0]]
	src := w.holderOf(act.TargetID)

	carrier.Inventory = append(carrier.Inventory, act.TargetID)
	fresh := w.grantAbilities(carrier, act.TargetID)

	if err := w.g.Attach(act.TargetID, graph.RelIn, carrier.ID); err != nil {
		carrier.removeFromInventory(act.TargetID)
		w.rollbackAbilities(carrier, act.TargetID, fresh)
		return protocol.Failure(protocol.ErrInconsistent, err.Error())
	}
	w.syncWeight(carrier)
	if src != nil && src != carrier {
		w.syncWeight(src)
	}

	for _, id := range act.Participants {
		a := w.agents[id]
		a.Mode = ModeCooperating
		a.CoopObjectID = act.TargetID
	}
	return protocol.Success(fmt.Sprintf("%s are carrying %s together",
		strings.Join(act.Participants, ", "), act.TargetID))
}

// executeCoopPlace sets the shared load down and frees everyone who was
// carrying it.
func (w *World) executeCoopPlace(act *Action) protocol.Result {
	holder := w.coopHolder(act)
	if holder == nil {
		return protocol.Failure(protocol.ErrInconsistent,
			fmt.Sprintf("no participant is holding %s", act.TargetID))
	}
	probe := *act
	probe.Kind = ActPlace
	probe.AgentID = holder.ID
	res := w.executePlace(&probe)
	if res.Status != protocol.StatusSuccess {
		return res
	}
	for _, id := range act.Participants {
		a := w.agents[id]
		if a.CoopObjectID == act.TargetID {
			a.Mode = ModeFree
			a.CoopObjectID = ""
		}
	}
	return res
}

// executeCoopAttr flips the attribute and records it as jointly modified,
// which cooperative task checks require.
func (w *World) executeCoopAttr(act *Action) protocol.Result {
	row := w.attrs[act.Verb]
	n := w.g.NodeByID(act.TargetID)
	if n.States == nil {
		n.States = map[string]bool{}
	}
	n.States[row.Attribute] = !row.ExpectedValue
	n.MarkCoopModified(row.Attribute)
	return protocol.Success(fmt.Sprintf("%s: %s now has %s=%t (joint)",
		act.Verb, act.TargetID, row.Attribute, !row.ExpectedValue))
}
