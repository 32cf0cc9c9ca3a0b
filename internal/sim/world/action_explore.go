package world

import (
	"fmt"
	"math"

	"roomsim/internal/config"
	"roomsim/internal/protocol"
)

func (w *World) validateExplore(act *Action) protocol.Result {
	a := w.agents[act.AgentID]
	if act.RoomID == "" {
		return protocol.Success("")
	}
	if !w.g.IsRoom(w.g.Lookup(act.RoomID)) {
		return protocol.Invalid(protocol.ErrNotFound, fmt.Sprintf("%s does not exist", act.RoomID))
	}
	if act.RoomID != a.LocationID {
		return protocol.Invalid(protocol.ErrNotNearby,
			fmt.Sprintf("%s is in %s, not %s", a.ID, a.LocationID, act.RoomID))
	}
	return protocol.Success("")
}

// executeExplore reveals undiscovered objects in the agent's room. A
// thorough pass reveals everything; otherwise a randomized slice within the
// configured bounds, reporting PARTIAL while candidates remain.
func (w *World) executeExplore(act *Action) protocol.Result {
	a := w.agents[act.AgentID]
	room := act.RoomID
	if room == "" {
		room = a.LocationID
	}

	var candidates []string
	for _, id := range w.g.ObjectsInRoom(room, true) {
		if !w.g.NodeByID(id).Discovered {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return protocol.Success(fmt.Sprintf("nothing left to discover in %s", room))
	}

	thorough := act.Thorough || w.cfg.ExplorationMode == config.ExploreThorough
	count := len(candidates)
	if !thorough {
		frac := w.cfg.PartialMin + w.rng.Float64()*(w.cfg.PartialMax-w.cfg.PartialMin)
		count = int(math.Ceil(frac * float64(len(candidates))))
		if count < 1 {
			count = 1
		}
		if count > len(candidates) {
			count = len(candidates)
		}
	}

	found := make([]string, 0, count)
	for _, i := range w.rng.Perm(len(candidates))[:count] {
		id := candidates[i]
		w.g.NodeByID(id).Discovered = true
		found = append(found, id)
	}

	msg := fmt.Sprintf("%s discovered %d object(s) in %s", a.ID, len(found), room)
	res := protocol.Success(msg)
	if len(found) < len(candidates) {
		res = protocol.Partial(msg)
	}
	res.Payload = map[string]any{"room": room, "discovered": found}
	return res
}
