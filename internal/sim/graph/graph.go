package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Handle is an opaque reference into the node arena. Handles are stable for
// the lifetime of a Graph; nodes are never removed except on full teardown.
type Handle int32

const InvalidHandle Handle = -1

type Kind uint8

const (
	KindRoom Kind = iota + 1
	KindFurniture
	KindItem
	KindInteractable
	KindGrabbable
	KindStatic
	KindAgent
)

func (k Kind) String() string {
	switch k {
	case KindRoom:
		return "ROOM"
	case KindFurniture:
		return "FURNITURE"
	case KindItem:
		return "ITEM"
	case KindInteractable:
		return "INTERACTABLE"
	case KindGrabbable:
		return "GRABBABLE"
	case KindStatic:
		return "STATIC"
	case KindAgent:
		return "AGENT"
	}
	return "UNKNOWN"
}

func ParseKind(s string) (Kind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ROOM":
		return KindRoom, true
	case "FURNITURE":
		return KindFurniture, true
	case "ITEM":
		return KindItem, true
	case "INTERACTABLE":
		return KindInteractable, true
	case "GRABBABLE":
		return KindGrabbable, true
	case "STATIC":
		return KindStatic, true
	case "AGENT":
		return KindAgent, true
	}
	return 0, false
}

type Relation uint8

const (
	RelIn Relation = iota + 1
	RelOn
	RelConnected
)

func (r Relation) String() string {
	switch r {
	case RelIn:
		return "in"
	case RelOn:
		return "on"
	case RelConnected:
		return "connected"
	}
	return "unknown"
}

func ParseRelation(s string) (Relation, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in":
		return RelIn, true
	case "on":
		return RelOn, true
	case "connected":
		return RelConnected, true
	}
	return 0, false
}

// Containment reports whether the relation places one node inside/atop another.
func (r Relation) Containment() bool { return r == RelIn || r == RelOn }

// Node is one arena entry: a room, an object, or an agent mirror.
type Node struct {
	ID   string
	Name string
	Kind Kind

	// Free-form declarative properties (weight, size, is_container,
	// provides_abilities, ...). Never mutated by actions.
	Properties map[string]any

	// Mutable boolean states (open, powered, ...). Toggled by actions.
	States map[string]bool

	Discovered bool

	// LocationID mirrors the containment edge: "<in|on>:<containerID>" for
	// nested objects, a bare room id for room-resident nodes and agents.
	LocationID string

	// CoopModified lists state keys whose current value was last set by a
	// cooperative action. A solo toggle of the same key clears it.
	CoopModified []string
}

func (n *Node) PropFloat(key string) (float64, bool) {
	if n == nil || n.Properties == nil {
		return 0, false
	}
	switch v := n.Properties[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (n *Node) PropBool(key string) bool {
	if n == nil || n.Properties == nil {
		return false
	}
	v, _ := n.Properties[key].(bool)
	return v
}

func (n *Node) PropStrings(key string) []string {
	if n == nil || n.Properties == nil {
		return nil
	}
	switch v := n.Properties[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (n *Node) IsContainer() bool { return n.PropBool("is_container") }

func (n *Node) MarkCoopModified(key string) {
	for _, k := range n.CoopModified {
		if k == key {
			return
		}
	}
	n.CoopModified = append(n.CoopModified, key)
}

func (n *Node) ClearCoopModified(key string) {
	out := n.CoopModified[:0]
	for _, k := range n.CoopModified {
		if k != key {
			out = append(out, k)
		}
	}
	n.CoopModified = out
}

func (n *Node) IsCoopModified(key string) bool {
	for _, k := range n.CoopModified {
		if k == key {
			return true
		}
	}
	return false
}

type Edge struct {
	From Handle
	To   Handle
	Rel  Relation
}

// Graph is a directed labeled multigraph over an arena of typed nodes.
// Containment edges run container -> contained child and form a forest:
// a node has at most one containment edge pointing at it, and inserting an
// edge that would close a containment cycle is rejected. "connected" edges
// join rooms and are kept symmetric.
//
// Read operations on unknown ids return zero values; callers must check.
type Graph struct {
	nodes []Node
	byID  map[string]Handle
	out   map[Handle][]Edge
	in    map[Handle][]Edge
	rooms []Handle
}

func New() *Graph {
	return &Graph{
		byID: map[string]Handle{},
		out:  map[Handle][]Edge{},
		in:   map[Handle][]Edge{},
	}
}

func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) AddNode(n Node) (Handle, error) {
	id := strings.TrimSpace(n.ID)
	if id == "" {
		return InvalidHandle, fmt.Errorf("node id must not be empty")
	}
	if _, ok := g.byID[id]; ok {
		return InvalidHandle, fmt.Errorf("duplicate node id: %s", id)
	}
	n.ID = id
	if n.Properties == nil {
		n.Properties = map[string]any{}
	}
	if n.States == nil {
		n.States = map[string]bool{}
	}
	h := Handle(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.byID[id] = h
	if n.Kind == KindRoom {
		g.rooms = append(g.rooms, h)
	}
	return h, nil
}

func (g *Graph) Lookup(id string) Handle {
	h, ok := g.byID[id]
	if !ok {
		return InvalidHandle
	}
	return h
}

func (g *Graph) valid(h Handle) bool { return h >= 0 && int(h) < len(g.nodes) }

// Node returns the arena entry for h, or nil for an invalid handle.
func (g *Graph) Node(h Handle) *Node {
	if !g.valid(h) {
		return nil
	}
	return &g.nodes[h]
}

// NodeByID returns the node with the given external id, or nil.
func (g *Graph) NodeByID(id string) *Node {
	return g.Node(g.Lookup(id))
}

func (g *Graph) IsRoom(h Handle) bool {
	n := g.Node(h)
	return n != nil && n.Kind == KindRoom
}

// Rooms returns the sorted external ids of every room node.
func (g *Graph) Rooms() []string {
	out := make([]string, 0, len(g.rooms))
	for _, h := range g.rooms {
		out = append(out, g.nodes[h].ID)
	}
	sort.Strings(out)
	return out
}

// NodeIDs returns every node id in sorted order (for digests and reports).
func (g *Graph) NodeIDs() []string {
	out := make([]string, 0, len(g.nodes))
	for i := range g.nodes {
		out = append(out, g.nodes[i].ID)
	}
	sort.Strings(out)
	return out
}

// AddEdge inserts a relation from -> to. Containment relations enforce the
// single-parent invariant (any existing containment edge into to is removed
// first) and reject edges that would close a containment cycle. Connected
// relations require two rooms and are inserted in both directions.
func (g *Graph) AddEdge(fromID, toID string, rel Relation) error {
	from, to := g.Lookup(fromID), g.Lookup(toID)
	if !g.valid(from) {
		return fmt.Errorf("unknown node: %s", fromID)
	}
	if !g.valid(to) {
		return fmt.Errorf("unknown node: %s", toID)
	}
	if from == to {
		return fmt.Errorf("self edge on %s", fromID)
	}
	switch {
	case rel.Containment():
		if g.wouldCycle(from, to) {
			return fmt.Errorf("containment cycle: %s -> %s", fromID, toID)
		}
		g.detach(to)
		g.insert(Edge{From: from, To: to, Rel: rel})
	case rel == RelConnected:
		if !g.IsRoom(from) || !g.IsRoom(to) {
			return fmt.Errorf("connected edge requires two rooms: %s -> %s", fromID, toID)
		}
		if !g.hasEdge(from, to, RelConnected) {
			g.insert(Edge{From: from, To: to, Rel: RelConnected})
		}
		if !g.hasEdge(to, from, RelConnected) {
			g.insert(Edge{From: to, To: from, Rel: RelConnected})
		}
	default:
		return fmt.Errorf("unknown relation")
	}
	return nil
}

// RemoveEdge removes a single relation. Removing a connected edge removes
// both directions.
func (g *Graph) RemoveEdge(fromID, toID string, rel Relation) {
	from, to := g.Lookup(fromID), g.Lookup(toID)
	if !g.valid(from) || !g.valid(to) {
		return
	}
	g.remove(from, to, rel)
	if rel == RelConnected {
		g.remove(to, from, rel)
	}
}

// Edges returns the outgoing edges of the named node.
func (g *Graph) Edges(fromID string) []Edge {
	from := g.Lookup(fromID)
	if !g.valid(from) {
		return nil
	}
	return append([]Edge(nil), g.out[from]...)
}

// IncomingEdges returns the edges pointing at the named node.
func (g *Graph) IncomingEdges(toID string) []Edge {
	to := g.Lookup(toID)
	if !g.valid(to) {
		return nil
	}
	return append([]Edge(nil), g.in[to]...)
}

// Parent returns the containment parent of h, if any.
func (g *Graph) Parent(h Handle) (Handle, Relation, bool) {
	if !g.valid(h) {
		return InvalidHandle, 0, false
	}
	for _, e := range g.in[h] {
		if e.Rel.Containment() {
			return e.From, e.Rel, true
		}
	}
	return InvalidHandle, 0, false
}

// Children returns the handles contained directly in/on h.
func (g *Graph) Children(h Handle) []Handle {
	if !g.valid(h) {
		return nil
	}
	var out []Handle
	for _, e := range g.out[h] {
		if e.Rel.Containment() {
			out = append(out, e.To)
		}
	}
	return out
}

// ChildrenByRel returns the handles contained in h via one specific relation.
func (g *Graph) ChildrenByRel(h Handle, rel Relation) []Handle {
	if !g.valid(h) {
		return nil
	}
	var out []Handle
	for _, e := range g.out[h] {
		if e.Rel == rel {
			out = append(out, e.To)
		}
	}
	return out
}

func (g *Graph) hasEdge(from, to Handle, rel Relation) bool {
	for _, e := range g.out[from] {
		if e.To == to && e.Rel == rel {
			return true
		}
	}
	return false
}

func (g *Graph) insert(e Edge) {
	g.out[e.From] = append(g.out[e.From], e)
	g.in[e.To] = append(g.in[e.To], e)
}

func (g *Graph) remove(from, to Handle, rel Relation) {
	outs := g.out[from][:0]
	for _, e := range g.out[from] {
		if !(e.To == to && e.Rel == rel) {
			outs = append(outs, e)
		}
	}
	g.out[from] = outs
	ins := g.in[to][:0]
	for _, e := range g.in[to] {
		if !(e.From == from && e.Rel == rel) {
			ins = append(ins, e)
		}
	}
	g.in[to] = ins
}

// detach removes every containment edge pointing at h.
func (g *Graph) detach(h Handle) {
	for _, e := range append([]Edge(nil), g.in[h]...) {
		if e.Rel.Containment() {
			g.remove(e.From, e.To, e.Rel)
		}
	}
}

// wouldCycle reports whether making to a containment child of from would
// close a cycle, i.e. whether to is already a containment ancestor of from.
func (g *Graph) wouldCycle(from, to Handle) bool {
	cur := from
	for steps := 0; steps <= len(g.nodes); steps++ {
		if cur == to {
			return true
		}
		p, _, ok := g.Parent(cur)
		if !ok {
			return false
		}
		cur = p
	}
	return true
}

// Attach rewrites the containment edge for objectID so its single parent is
// containerID, and updates the node's LocationID mirror. Attaching to a room
// records the bare room id; nesting records "<rel>:<containerID>".
func (g *Graph) Attach(objectID string, rel Relation, containerID string) error {
	if !rel.Containment() {
		return fmt.Errorf("attach requires a containment relation")
	}
	if err := g.AddEdge(containerID, objectID, rel); err != nil {
		return err
	}
	n := g.NodeByID(objectID)
	if g.IsRoom(g.Lookup(containerID)) {
		n.LocationID = containerID
	} else {
		n.LocationID = rel.String() + ":" + containerID
	}
	return nil
}

// Detach removes objectID's containment edge, leaving it parentless.
// The LocationID mirror is cleared; callers re-Attach or set it themselves.
func (g *Graph) Detach(objectID string) {
	h := g.Lookup(objectID)
	if !g.valid(h) {
		return
	}
	g.detach(h)
	g.nodes[h].LocationID = ""
}
