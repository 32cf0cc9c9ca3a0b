package scene

import (
	"fmt"
	"strings"

	"roomsim/internal/config"
	"roomsim/internal/sim/graph"
)

// Report describes what the loader did beyond the happy path.
type Report struct {
	SceneName     string
	Rooms         int
	Objects       int
	Passes        int
	ForceAttached []string
}

// Build constructs a world graph from a scene document. Rooms are loaded and
// inter-connected first; room-resident objects attach immediately; nested
// objects attach in repeated passes as their containers become available, so
// declaration order never matters. Objects whose container never resolves
// fail the load, unless settings allow the lossy fallback of force-attaching
// them to the first room (recorded in the report).
func Build(doc Doc, settings config.Settings) (*graph.Graph, Report, error) {
	rep := Report{SceneName: doc.Name, Rooms: len(doc.Rooms), Objects: len(doc.Objects)}
	g := graph.New()

	for _, r := range doc.Rooms {
		name := r.Name
		if name == "" {
			name = r.ID
		}
		_, err := g.AddNode(graph.Node{
			ID:         r.ID,
			Name:       name,
			Kind:       graph.KindRoom,
			Properties: r.Properties,
			Discovered: true,
			LocationID: r.ID,
		})
		if err != nil {
			return nil, rep, fmt.Errorf("room %s: %w", r.ID, err)
		}
	}
	for _, r := range doc.Rooms {
		for _, other := range r.Connected {
			if err := g.AddEdge(r.ID, other, graph.RelConnected); err != nil {
				return nil, rep, fmt.Errorf("room %s: %w", r.ID, err)
			}
		}
	}

	// All object nodes exist before any containment is resolved.
	for _, o := range doc.Objects {
		kind, ok := graph.ParseKind(o.Type)
		if !ok || kind == graph.KindRoom || kind == graph.KindAgent {
			return nil, rep, fmt.Errorf("object %s: bad type %q", o.ID, o.Type)
		}
		name := o.Name
		if name == "" {
			name = o.ID
		}
		states := map[string]bool{}
		for k, v := range o.States {
			states[k] = v
		}
		_, err := g.AddNode(graph.Node{
			ID:         o.ID,
			Name:       name,
			Kind:       kind,
			Properties: o.Properties,
			States:     states,
			Discovered: settings.ObserveAll,
		})
		if err != nil {
			return nil, rep, fmt.Errorf("object %s: %w", o.ID, err)
		}
	}

	resident, nested := partition(g, doc.Objects)
	for _, o := range resident {
		if err := attachObject(g, o); err != nil {
			return nil, rep, err
		}
	}

	passes := settings.AttachPasses
	if passes <= 0 {
		passes = 1
	}
	for pass := 0; pass < passes && len(nested) > 0; pass++ {
		rep.Passes = pass + 1
		var still []ObjectDef
		for _, o := range nested {
			_, containerID, _ := splitLocation(o.LocationID)
			if g.RoomOf(containerID) == "" {
				still = append(still, o)
				continue
			}
			if err := attachObject(g, o); err != nil {
				return nil, rep, err
			}
		}
		if len(still) == len(nested) {
			nested = still
			break
		}
		nested = still
	}

	if len(nested) > 0 {
		if !settings.AllowUnresolved || len(doc.Rooms) == 0 {
			ids := make([]string, 0, len(nested))
			for _, o := range nested {
				ids = append(ids, o.ID)
			}
			return nil, rep, fmt.Errorf("unresolved containers for objects: %s", strings.Join(ids, ", "))
		}
		// Lossy fallback: park the orphans in the first room.
		room := doc.Rooms[0].ID
		for _, o := range nested {
			if err := g.Attach(o.ID, graph.RelIn, room); err != nil {
				return nil, rep, fmt.Errorf("force attach %s: %w", o.ID, err)
			}
			rep.ForceAttached = append(rep.ForceAttached, o.ID)
		}
	}

	return g, rep, nil
}

func partition(g *graph.Graph, objects []ObjectDef) (resident, nested []ObjectDef) {
	for _, o := range objects {
		_, containerID, _ := splitLocation(o.LocationID)
		if g.IsRoom(g.Lookup(containerID)) {
			resident = append(resident, o)
		} else {
			nested = append(nested, o)
		}
	}
	return resident, nested
}

func attachObject(g *graph.Graph, o ObjectDef) error {
	rel, containerID, err := splitLocation(o.LocationID)
	if err != nil {
		return fmt.Errorf("object %s: %w", o.ID, err)
	}
	container := g.NodeByID(containerID)
	if container == nil {
		return fmt.Errorf("object %s: unknown container %s", o.ID, containerID)
	}
	if rel == graph.RelIn && container.Kind != graph.KindRoom && !container.IsContainer() {
		return fmt.Errorf("object %s: container %s is not is_container", o.ID, containerID)
	}
	if err := g.Attach(o.ID, rel, containerID); err != nil {
		return fmt.Errorf("object %s: %w", o.ID, err)
	}
	return nil
}

// splitLocation parses "<in|on>:<id>" or a bare id (implicitly "in").
func splitLocation(loc string) (graph.Relation, string, error) {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return 0, "", fmt.Errorf("empty location_id")
	}
	prefix, rest, found := strings.Cut(loc, ":")
	if !found {
		return graph.RelIn, loc, nil
	}
	rel, ok := graph.ParseRelation(prefix)
	if !ok || !rel.Containment() {
		return 0, "", fmt.Errorf("bad location prefix %q", prefix)
	}
	if strings.TrimSpace(rest) == "" {
		return 0, "", fmt.Errorf("empty container in %q", loc)
	}
	return rel, strings.TrimSpace(rest), nil
}
