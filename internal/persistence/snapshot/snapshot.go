package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"roomsim/internal/config"
	"roomsim/internal/scene"
	"roomsim/internal/sim/graph"
	"roomsim/internal/sim/tasks"
	"roomsim/internal/sim/world"
)

type Header struct {
	Version   int    `json:"version"`
	SessionID string `json:"session_id"`
	Seq       uint64 `json:"seq"`
	SceneName string `json:"scene_name,omitempty"`
	CreatedAt string `json:"created_at"`
}

// SnapshotV1 captures a full episode: the world graph, agent records and the
// verifier's completed-task cache. Enough to resume or replay from here.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed  int64    `json:"seed"`
	Nodes []NodeV1 `json:"nodes"`
	Edges []EdgeV1 `json:"edges"`

	Agents []world.AgentState `json:"agents"`

	CompletedTasks []string `json:"completed_tasks,omitempty"`
}

type NodeV1 struct {
	ID           string          `json:"id"`
	Name         string          `json:"name,omitempty"`
	Kind         string          `json:"kind"`
	Properties   map[string]any  `json:"properties,omitempty"`
	States       map[string]bool `json:"states,omitempty"`
	Discovered   bool            `json:"discovered"`
	LocationID   string          `json:"location_id,omitempty"`
	CoopModified []string        `json:"coop_modified,omitempty"`
}

type EdgeV1 struct {
	From string `json:"from"`
	To   string `json:"to"`
	Rel  string `json:"rel"`
}

// Export builds a snapshot of the session's current state.
func Export(s *world.Session, sessionID string, seq uint64, sceneName string) SnapshotV1 {
	w := s.World
	g := w.Graph()
	snap := SnapshotV1{
		Header: Header{
			Version:   1,
			SessionID: sessionID,
			Seq:       seq,
			SceneName: sceneName,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
		Agents:         w.ExportAgents(),
		CompletedTasks: s.Verifier().CompletedIDs(),
	}
	for _, id := range g.NodeIDs() {
		n := g.NodeByID(id)
		snap.Nodes = append(snap.Nodes, NodeV1{
			ID:           n.ID,
			Name:         n.Name,
			Kind:         n.Kind.String(),
			Properties:   n.Properties,
			States:       n.States,
			Discovered:   n.Discovered,
			LocationID:   n.LocationID,
			CoopModified: append([]string(nil), n.CoopModified...),
		})
		for _, e := range g.Edges(id) {
			from, to := g.Node(e.From).ID, g.Node(e.To).ID
			// Connected edges are symmetric; keep one direction.
			if e.Rel == graph.RelConnected && from > to {
				continue
			}
			snap.Edges = append(snap.Edges, EdgeV1{From: from, To: to, Rel: e.Rel.String()})
		}
	}
	return snap
}

// Import rebuilds a session from a snapshot. The attribute table and task
// list are external inputs and must be supplied again.
func Import(snap SnapshotV1, settings config.Settings, attrs scene.AttributeTable, taskList []tasks.Task) (*world.Session, error) {
	g := graph.New()
	for _, n := range snap.Nodes {
		kind, ok := graph.ParseKind(n.Kind)
		if !ok {
			return nil, fmt.Errorf("node %s: bad kind %q", n.ID, n.Kind)
		}
		_, err := g.AddNode(graph.Node{
			ID:           n.ID,
			Name:         n.Name,
			Kind:         kind,
			Properties:   n.Properties,
			States:       n.States,
			Discovered:   n.Discovered,
			LocationID:   n.LocationID,
			CoopModified: append([]string(nil), n.CoopModified...),
		})
		if err != nil {
			return nil, err
		}
	}
	for _, e := range snap.Edges {
		rel, ok := graph.ParseRelation(e.Rel)
		if !ok {
			return nil, fmt.Errorf("edge %s -> %s: bad relation %q", e.From, e.To, e.Rel)
		}
		if err := g.AddEdge(e.From, e.To, rel); err != nil {
			return nil, err
		}
	}

	settings.Seed = snap.Seed
	w := world.New(g, settings, attrs)
	if err := w.RestoreAgents(snap.Agents); err != nil {
		return nil, err
	}

	s := world.NewSession(w, taskList)
	s.Verifier().RestoreCompleted(snap.CompletedTasks)
	return s, nil
}

// WriteSnapshot writes a header line followed by the zstd-compressed JSON
// body, so tooling can inspect the header without decoding the whole file.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := json.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("snapshot encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Skip the header line; the body repeats it.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, err
	}
	if err := json.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("snapshot decode: %w", err)
	}
	return snap, nil
}
