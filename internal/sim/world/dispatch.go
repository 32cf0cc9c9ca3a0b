package world

import (
	"fmt"
	"strings"

	"roomsim/internal/protocol"
	"roomsim/internal/sim/graph"
)

// ActionKind tags the concrete action a verb resolved to.
type ActionKind uint8

const (
	ActGoto ActionKind = iota
	ActGrab
	ActPlace
	ActLook
	ActExplore
	ActAttr
	ActCoopGoto
	ActCoopGrab
	ActCoopPlace
	ActCoopAttr
)

const coopPrefix = "CORP_"

// Action is the parsed form of one command. Built fresh per command and
// discarded after execution.
type Action struct {
	Kind    ActionKind
	AgentID string

	TargetID string

	// Place only.
	Relation      graph.Relation
	DestinationID string

	// Explore / Look scope.
	RoomID   string
	Thorough bool

	// Attribute actions.
	Verb string

	// Cooperative kinds: all participating agent ids, initiator included.
	Participants []string
}

func (w *World) registerGlobalVerbs() {
	w.global["GOTO"] = ActGoto
	w.global["GRAB"] = ActGrab
	w.global["PLACE"] = ActPlace
	w.global["LOOK"] = ActLook
	w.global["EXPLORE"] = ActExplore
	w.global[coopPrefix+"GOTO"] = ActCoopGoto
	w.global[coopPrefix+"GRAB"] = ActCoopGrab
	w.global[coopPrefix+"PLACE"] = ActCoopPlace
	for verb, row := range w.attrs {
		if row.RequiresTool {
			continue
		}
		w.global[verb] = ActAttr
		w.global[coopPrefix+verb] = ActCoopAttr
	}
}

// registerToolVerb makes an ability-gated verb (and its cooperative form)
// resolvable for one agent. The capability table is per-world state; no two
// worlds share registrations.
func (w *World) registerToolVerb(agentID, ability string) {
	if _, ok := w.attrs[ability]; !ok {
		return
	}
	set := w.caps[agentID]
	if set == nil {
		set = map[string]struct{}{}
		w.caps[agentID] = set
	}
	set[ability] = struct{}{}
	set[coopPrefix+ability] = struct{}{}
}

func (w *World) unregisterToolVerb(agentID, ability string) {
	set := w.caps[agentID]
	if set == nil {
		return
	}
	delete(set, ability)
	delete(set, coopPrefix+ability)
	if len(set) == 0 {
		delete(w.caps, agentID)
	}
}

// resolveVerb checks the agent's capability table before the global
// registry, so tool-granted verbs shadow nothing and vanish with the tool.
func (w *World) resolveVerb(agentID, verb string) (ActionKind, bool) {
	if set := w.caps[agentID]; set != nil {
		if _, ok := set[verb]; ok {
			if strings.HasPrefix(verb, coopPrefix) {
				return ActCoopAttr, true
			}
			return ActAttr, true
		}
	}
	kind, ok := w.global[verb]
	return kind, ok
}

// allowedInMode is the single cooperative-mode policy gate: an agent engaged
// in a joint carry may only steer it or set it down.
func allowedInMode(kind ActionKind, mode Mode) bool {
	if mode == ModeFree {
		return true
	}
	return kind == ActCoopGoto || kind == ActCoopPlace
}

// Process runs one command for one agent through parse, validate and
// execute. It rejects concurrent entry outright: the world is synchronous
// and a second in-flight command means the caller broke the contract.
func (w *World) Process(agentID, command string) protocol.Result {
	if !w.busy.CompareAndSwap(false, true) {
		return protocol.Invalid(protocol.ErrSessionBusy, "another command is in progress")
	}
	defer w.busy.Store(false)

	w.seq++
	res := w.process(agentID, command)
	if w.cmdLog != nil {
		_ = w.cmdLog.WriteCommand(CommandLogEntry{
			Seq:     w.seq,
			AgentID: agentID,
			Command: command,
			Status:  res.Status,
			Code:    res.Code,
			Message: res.Message,
			Digest:  w.Digest(),
		})
	}
	return res
}

func (w *World) process(agentID, command string) protocol.Result {
	agent := w.agents[agentID]
	if agent == nil {
		return protocol.Invalid(protocol.ErrNotFound, fmt.Sprintf("unknown agent: %s", agentID))
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return protocol.Invalid(protocol.ErrBadArguments, "empty command")
	}
	verb := strings.ToUpper(fields[0])
	kind, ok := w.resolveVerb(agentID, verb)
	if !ok {
		return protocol.Invalid(protocol.ErrUnknownCommand, fmt.Sprintf("unknown command: %s", verb))
	}
	if !allowedInMode(kind, agent.Mode) {
		return protocol.Invalid(protocol.ErrCoopMode,
			fmt.Sprintf("%s is carrying %s cooperatively and may only %sGOTO or %sPLACE",
				agentID, agent.CoopObjectID, coopPrefix, coopPrefix))
	}

	act, res := w.parse(kind, verb, agentID, fields[1:])
	if act == nil {
		return res
	}

	// A coop group member issuing anything other than its pending command
	// walks away from that group.
	w.breakPendingUnless(agentID, command)

	if res := w.validate(act); res.Status != protocol.StatusSuccess {
		return res
	}
	if isCoopKind(act.Kind) {
		if res, ready := w.syncCoop(act, command); !ready {
			return res
		}
	}
	return w.execute(act)
}

func isCoopKind(kind ActionKind) bool {
	switch kind {
	case ActCoopGoto, ActCoopGrab, ActCoopPlace, ActCoopAttr:
		return true
	}
	return false
}

func (w *World) parse(kind ActionKind, verb, agentID string, args []string) (*Action, protocol.Result) {
	act := &Action{Kind: kind, AgentID: agentID}
	badArgs := func(usage string) (*Action, protocol.Result) {
		return nil, protocol.Invalid(protocol.ErrBadArguments, "usage: "+usage)
	}
	switch kind {
	case ActGoto:
		if len(args) != 1 {
			return badArgs("GOTO <id>")
		}
		act.TargetID = args[0]
	case ActGrab:
		if len(args) != 1 {
			return badArgs("GRAB <id>")
		}
		act.TargetID = args[0]
	case ActPlace:
		if len(args) != 3 {
			return badArgs("PLACE <id> <in|on> <id>")
		}
		rel, ok := graph.ParseRelation(strings.ToLower(args[1]))
		if !ok || rel == graph.RelConnected {
			return badArgs("PLACE <id> <in|on> <id>")
		}
		act.TargetID, act.Relation, act.DestinationID = args[0], rel, args[2]
	case ActLook:
		if len(args) > 1 {
			return badArgs("LOOK [<id>|AROUND]")
		}
		if len(args) == 1 && !strings.EqualFold(args[0], "AROUND") {
			act.TargetID = args[0]
		}
	case ActExplore:
		if len(args) > 1 {
			return badArgs("EXPLORE [<roomId>|THOROUGH]")
		}
		if len(args) == 1 {
			if strings.EqualFold(args[0], "THOROUGH") {
				act.Thorough = true
			} else {
				act.RoomID = args[0]
			}
		}
	case ActAttr:
		if len(args) != 1 {
			return badArgs(verb + " <id>")
		}
		act.Verb, act.TargetID = verb, args[0]
	case ActCoopGoto, ActCoopGrab, ActCoopAttr:
		if len(args) != 2 {
			return badArgs(verb + " <agentId,agentId,...> <id>")
		}
		parts, ok := parseParticipants(args[0])
		if !ok {
			return badArgs(verb + " <agentId,agentId,...> <id>")
		}
		act.Participants, act.TargetID = parts, args[1]
		act.Verb = strings.TrimPrefix(verb, coopPrefix)
	case ActCoopPlace:
		if len(args) != 4 {
			return badArgs(verb + " <agentId,agentId,...> <id> <in|on> <id>")
		}
		parts, ok := parseParticipants(args[0])
		if !ok {
			return badArgs(verb + " <agentId,agentId,...> <id> <in|on> <id>")
		}
		rel, relOK := graph.ParseRelation(strings.ToLower(args[2]))
		if !relOK || rel == graph.RelConnected {
			return badArgs(verb + " <agentId,agentId,...> <id> <in|on> <id>")
		}
		act.Participants, act.TargetID, act.Relation, act.DestinationID = parts, args[1], rel, args[3]
	default:
		return nil, protocol.Invalid(protocol.ErrInternal, "unhandled action kind")
	}
	return act, protocol.Result{Status: protocol.StatusSuccess}
}

func parseParticipants(arg string) ([]string, bool) {
	raw := strings.Split(arg, ",")
	seen := map[string]struct{}{}
	out := make([]string, 0, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, false
		}
		if _, dup := seen[id]; dup {
			return nil, false
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) < 2 {
		return nil, false
	}
	return out, true
}

func (w *World) validate(act *Action) protocol.Result {
	switch act.Kind {
	case ActGoto:
		return w.validateGoto(act)
	case ActGrab:
		return w.validateGrab(act)
	case ActPlace:
		return w.validatePlace(act)
	case ActLook:
		return w.validateLook(act)
	case ActExplore:
		return w.validateExplore(act)
	case ActAttr:
		return w.validateAttr(act)
	case ActCoopGoto, ActCoopGrab, ActCoopPlace, ActCoopAttr:
		return w.validateCoop(act)
	}
	return protocol.Invalid(protocol.ErrInternal, "unhandled action kind")
}

func (w *World) execute(act *Action) protocol.Result {
	switch act.Kind {
	case ActGoto:
		return w.executeGoto(act)
	case ActGrab:
		return w.executeGrab(act)
	case ActPlace:
		return w.executePlace(act)
	case ActLook:
		return w.executeLook(act)
	case ActExplore:
		return w.executeExplore(act)
	case ActAttr:
		return w.executeAttr(act)
	case ActCoopGoto:
		return w.executeCoopGoto(act)
	case ActCoopGrab:
		return w.executeCoopGrab(act)
	case ActCoopPlace:
		return w.executeCoopPlace(act)
	case ActCoopAttr:
		return w.executeCoopAttr(act)
	}
	return protocol.Invalid(protocol.ErrInternal, "unhandled action kind")
}
