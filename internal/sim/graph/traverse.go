package graph

import "sort"

// RoomOf walks containment edges upward from the named node until a room is
// reached. Returns "" when the node is unknown or has no room ancestor.
// The walk is bounds-guarded even though insertion keeps containment acyclic.
func (g *Graph) RoomOf(id string) string {
	cur := g.Lookup(id)
	if !g.valid(cur) {
		return ""
	}
	for steps := 0; steps <= len(g.nodes); steps++ {
		if g.IsRoom(cur) {
			return g.nodes[cur].ID
		}
		p, _, ok := g.Parent(cur)
		if !ok {
			return ""
		}
		cur = p
	}
	return ""
}

// ObjectsInRoom returns the ids of objects contained in the room, direct
// children only or the full containment subtree. Agents and rooms are never
// included. Results are sorted for determinism.
func (g *Graph) ObjectsInRoom(roomID string, recursive bool) []string {
	root := g.Lookup(roomID)
	if !g.IsRoom(root) {
		return nil
	}
	var out []string
	seen := map[Handle]bool{root: true}
	queue := g.Children(root)
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if seen[h] {
			continue
		}
		seen[h] = true
		n := g.Node(h)
		if n.Kind != KindRoom && n.Kind != KindAgent {
			out = append(out, n.ID)
		}
		if recursive {
			queue = append(queue, g.Children(h)...)
		}
	}
	sort.Strings(out)
	return out
}

// Descendants returns the full containment subtree below the named node,
// excluding the node itself. Sorted for determinism.
func (g *Graph) Descendants(id string) []string {
	root := g.Lookup(id)
	if !g.valid(root) {
		return nil
	}
	var out []string
	seen := map[Handle]bool{root: true}
	queue := g.Children(root)
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, g.Node(h).ID)
		queue = append(queue, g.Children(h)...)
	}
	sort.Strings(out)
	return out
}

// FurnitureAnchor walks containment edges upward from the named node and
// returns the first ancestor (or the node itself) whose kind is furniture.
// ok is false when no furniture lies on the path to the root.
func (g *Graph) FurnitureAnchor(id string) (string, bool) {
	cur := g.Lookup(id)
	if !g.valid(cur) {
		return "", false
	}
	for steps := 0; steps <= len(g.nodes); steps++ {
		n := g.Node(cur)
		if n.Kind == KindFurniture {
			return n.ID, true
		}
		p, _, ok := g.Parent(cur)
		if !ok {
			return "", false
		}
		cur = p
	}
	return "", false
}

// FindPath runs BFS over "connected" edges from startRoom to endRoom and
// returns the room id sequence including both endpoints, or nil when either
// id is not a room or no path exists.
func (g *Graph) FindPath(startRoom, endRoom string) []string {
	start, end := g.Lookup(startRoom), g.Lookup(endRoom)
	if !g.IsRoom(start) || !g.IsRoom(end) {
		return nil
	}
	if start == end {
		return []string{g.nodes[start].ID}
	}
	prev := map[Handle]Handle{start: start}
	queue := []Handle{start}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		// Deterministic order: neighbors sorted by id.
		var nbrs []Handle
		for _, e := range g.out[h] {
			if e.Rel == RelConnected {
				nbrs = append(nbrs, e.To)
			}
		}
		sort.Slice(nbrs, func(i, j int) bool { return g.nodes[nbrs[i]].ID < g.nodes[nbrs[j]].ID })
		for _, nb := range nbrs {
			if _, ok := prev[nb]; ok {
				continue
			}
			prev[nb] = h
			if nb == end {
				return g.buildPath(prev, start, end)
			}
			queue = append(queue, nb)
		}
	}
	return nil
}

func (g *Graph) buildPath(prev map[Handle]Handle, start, end Handle) []string {
	var rev []string
	for cur := end; ; cur = prev[cur] {
		rev = append(rev, g.nodes[cur].ID)
		if cur == start {
			break
		}
	}
	out := make([]string, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}
