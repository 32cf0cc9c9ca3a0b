package world

import (
	"fmt"
	"math/rand"
	"sort"
	"sync/atomic"

	"roomsim/internal/config"
	"roomsim/internal/protocol"
	"roomsim/internal/scene"
	"roomsim/internal/sim/graph"
)

// World owns one scenario's graph and agents. It is synchronous and
// single-threaded: one command is parsed, validated and executed to
// completion before the next is accepted. A second caller entering Process
// while one is in flight is rejected, never raced.
type World struct {
	cfg   config.Settings
	g     *graph.Graph
	attrs scene.AttributeTable

	agents map[string]*Agent

	// global maps always-available verbs to action kinds; caps is the
	// per-agent capability table for tool-gated verbs, updated as abilities
	// come and go.
	global map[string]ActionKind
	caps   map[string]map[string]struct{}

	pending map[string]*pendingCoop

	rng  *rand.Rand
	busy atomic.Bool
	seq  uint64

	cmdLog CommandLogger
}

// CommandLogger receives one entry per processed command. Implemented in
// internal/persistence; may be nil.
type CommandLogger interface {
	WriteCommand(entry CommandLogEntry) error
}

type CommandLogEntry struct {
	Seq     uint64          `json:"seq"`
	AgentID string          `json:"agent_id"`
	Command string          `json:"command"`
	Status  protocol.Status `json:"status"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message"`
	Digest  string          `json:"digest"`
}

func New(g *graph.Graph, settings config.Settings, attrs scene.AttributeTable) *World {
	w := &World{
		cfg:     settings,
		g:       g,
		attrs:   attrs,
		agents:  map[string]*Agent{},
		global:  map[string]ActionKind{},
		caps:    map[string]map[string]struct{}{},
		pending: map[string]*pendingCoop{},
		rng:     rand.New(rand.NewSource(settings.Seed)),
	}
	w.registerGlobalVerbs()
	return w
}

// FromScene builds the graph from a scene document and adds its agents.
func FromScene(doc scene.Doc, settings config.Settings, attrs scene.AttributeTable) (*World, scene.Report, error) {
	g, rep, err := scene.Build(doc, settings)
	if err != nil {
		return nil, rep, err
	}
	w := New(g, settings, attrs)
	for _, def := range doc.Agents {
		if err := w.AddAgent(def); err != nil {
			return nil, rep, err
		}
	}
	return w, rep, nil
}

func (w *World) Graph() *graph.Graph { return w.g }

func (w *World) Agent(id string) *Agent { return w.agents[id] }

func (w *World) AgentIDs() []string {
	out := make([]string, 0, len(w.agents))
	for id := range w.agents {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (w *World) SetCommandLogger(l CommandLogger) { w.cmdLog = l }

// AddAgent creates the agent record and its graph mirror node, attached to
// its starting room.
func (w *World) AddAgent(def scene.AgentDef) error {
	if _, ok := w.agents[def.ID]; ok {
		return fmt.Errorf("duplicate agent id: %s", def.ID)
	}
	if !w.g.IsRoom(w.g.Lookup(def.LocationID)) {
		return fmt.Errorf("agent %s: %q is not a room", def.ID, def.LocationID)
	}
	name := def.Name
	if name == "" {
		name = def.ID
	}
	_, err := w.g.AddNode(graph.Node{
		ID:         def.ID,
		Name:       name,
		Kind:       graph.KindAgent,
		Discovered: true,
	})
	if err != nil {
		return fmt.Errorf("agent %s: %w", def.ID, err)
	}
	if err := w.g.Attach(def.ID, graph.RelIn, def.LocationID); err != nil {
		return fmt.Errorf("agent %s: %w", def.ID, err)
	}
	a := &Agent{
		ID:            def.ID,
		Name:          name,
		LocationID:    def.LocationID,
		MaxWeight:     def.MaxWeight,
		MaxGraspLimit: def.MaxGraspLimit,
	}
	a.initDefaults()
	w.agents[def.ID] = a
	w.updateProximity(a, "")
	return nil
}

// carriedWeight is the effective weight of picking up an object: its own
// weight plus the weight of its direct children, when it has any (a loaded
// container is carried contents and all).
func (w *World) carriedWeight(objectID string) float64 {
	n := w.g.NodeByID(objectID)
	if n == nil {
		return 0
	}
	total, _ := n.PropFloat("weight")
	for _, ch := range w.g.Children(w.g.Lookup(objectID)) {
		cw, _ := w.g.Node(ch).PropFloat("weight")
		total += cw
	}
	return total
}

func (w *World) heldBy(objectID string) *Agent {
	for _, a := range w.agents {
		if a.Holds(objectID) {
			return a
		}
	}
	return nil
}

// holderOf walks the containment chain upward and reports the agent whose
// carried subtree contains objectID, if any. Unlike heldBy it also finds
// objects sitting inside a held container.
func (w *World) holderOf(objectID string) *Agent {
	h := w.g.Lookup(objectID)
	for {
		p, _, ok := w.g.Parent(h)
		if !ok {
			return nil
		}
		n := w.g.Node(p)
		if n.Kind == graph.KindAgent {
			return w.agents[n.ID]
		}
		if w.g.IsRoom(p) {
			return nil
		}
		h = p
	}
}

// syncWeight recomputes current_weight from the inventory, the invariant
// every grab and place must leave true. Moving an object into or out of a
// held container changes that container's carried weight, so deltas cannot
// be tracked per command.
func (w *World) syncWeight(a *Agent) {
	var total float64
	for _, id := range a.Inventory {
		total += w.carriedWeight(id)
	}
	a.CurrentWeight = total
}

// grabWeight is the weight a grab would add to the agent. When the target
// sits directly inside one of the agent's own held items its weight is
// already counted there, so only the target's children are new load.
func (w *World) grabWeight(a *Agent, targetID string) float64 {
	weight := w.carriedWeight(targetID)
	if p, _, ok := w.g.Parent(w.g.Lookup(targetID)); ok {
		if pn := w.g.Node(p); pn != nil && a.Holds(pn.ID) {
			own, _ := w.g.NodeByID(targetID).PropFloat("weight")
			weight -= own
		}
	}
	return weight
}

// grantAbilities adds every ability the object provides and registers the
// matching tool verbs (and their cooperative forms) for this agent alone.
// Ability names are normalized once here so the source bookkeeping and the
// verb registry agree on casing. Returns the abilities that became newly
// present, for rollback.
func (w *World) grantAbilities(a *Agent, objectID string) []string {
	n := w.g.NodeByID(objectID)
	var fresh []string
	for _, ab := range n.PropStrings("provides_abilities") {
		ab = normalizeAbility(ab)
		if a.addAbilitySource(ab, objectID) {
			fresh = append(fresh, ab)
		}
		w.registerToolVerb(a.ID, ab)
	}
	return fresh
}

func (w *World) revokeAbilities(a *Agent, objectID string) {
	n := w.g.NodeByID(objectID)
	for _, ab := range n.PropStrings("provides_abilities") {
		ab = normalizeAbility(ab)
		if a.removeAbilitySource(ab, objectID) {
			w.unregisterToolVerb(a.ID, ab)
		}
	}
}

// rollbackAbilities undoes grantAbilities after a failed execution.
func (w *World) rollbackAbilities(a *Agent, objectID string, fresh []string) {
	n := w.g.NodeByID(objectID)
	for _, ab := range n.PropStrings("provides_abilities") {
		a.removeAbilitySource(ab, objectID)
	}
	for _, ab := range fresh {
		w.unregisterToolVerb(a.ID, ab)
	}
}
