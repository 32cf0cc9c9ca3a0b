package world

import (
	"fmt"

	"roomsim/internal/protocol"
)

func (w *World) validateAttr(act *Action) protocol.Result {
	row, ok := w.attrs[act.Verb]
	if !ok {
		return protocol.Invalid(protocol.ErrUnknownCommand, fmt.Sprintf("unknown command: %s", act.Verb))
	}
	a := w.agents[act.AgentID]
	n := w.g.NodeByID(act.TargetID)
	if n == nil {
		return protocol.Invalid(protocol.ErrNotFound, fmt.Sprintf("%s does not exist", act.TargetID))
	}
	if !n.Discovered {
		return protocol.Invalid(protocol.ErrNotDiscovered, fmt.Sprintf("%s has not been discovered", act.TargetID))
	}
	if !a.Near(act.TargetID) {
		return protocol.Invalid(protocol.ErrNotNearby, fmt.Sprintf("%s is not within reach of %s", act.TargetID, a.ID))
	}
	if row.RequiresTool && !a.HasAbility(act.Verb) {
		return protocol.Invalid(protocol.ErrMissingAbility,
			fmt.Sprintf("%s requires a tool providing %s", act.Verb, act.Verb))
	}
	if n.States[row.Attribute] != row.ExpectedValue {
		return protocol.Invalid(protocol.ErrWrongState,
			fmt.Sprintf("%s is not %s=%t", act.TargetID, row.Attribute, row.ExpectedValue))
	}
	return protocol.Success("")
}

// executeAttr flips the verb's attribute. A solo toggle also clears the
// cooperative marker: the last writer decides whether the change counts as
// joint work.
func (w *World) executeAttr(act *Action) protocol.Result {
	row := w.attrs[act.Verb]
	n := w.g.NodeByID(act.TargetID)
	if n.States == nil {
		n.States = map[string]bool{}
	}
	n.States[row.Attribute] = !row.ExpectedValue
	n.ClearCoopModified(row.Attribute)
	return protocol.Success(fmt.Sprintf("%s: %s now has %s=%t",
		act.Verb, act.TargetID, row.Attribute, !row.ExpectedValue))
}
