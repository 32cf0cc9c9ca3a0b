package world

import "fmt"

// AgentState is the persistable part of an agent. Abilities and the
// capability table are derived from the inventory on restore; proximity
// falls back to inventory plus current room.
type AgentState struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	LocationID    string  `json:"location_id"`
	Inventory     []string `json:"inventory,omitempty"`
	CurrentWeight float64 `json:"current_weight"`
	MaxWeight     float64 `json:"max_weight"`
	MaxGraspLimit int     `json:"max_grasp_limit"`
	Mode          Mode    `json:"mode"`
	CoopObjectID  string  `json:"coop_object_id,omitempty"`
}

func (w *World) ExportAgents() []AgentState {
	out := make([]AgentState, 0, len(w.agents))
	for _, id := range w.AgentIDs() {
		a := w.agents[id]
		out = append(out, AgentState{
			ID:            a.ID,
			Name:          a.Name,
			LocationID:    a.LocationID,
			Inventory:     append([]string(nil), a.Inventory...),
			CurrentWeight: a.CurrentWeight,
			MaxWeight:     a.MaxWeight,
			MaxGraspLimit: a.MaxGraspLimit,
			Mode:          a.Mode,
			CoopObjectID:  a.CoopObjectID,
		})
	}
	return out
}

// RestoreAgents rebuilds agent records whose graph mirror nodes already
// exist. Tool abilities and verb registrations are re-derived from the
// restored inventories.
func (w *World) RestoreAgents(states []AgentState) error {
	for _, st := range states {
		if w.g.NodeByID(st.ID) == nil {
			return fmt.Errorf("agent %s has no graph node", st.ID)
		}
		if _, ok := w.agents[st.ID]; ok {
			return fmt.Errorf("duplicate agent id: %s", st.ID)
		}
		a := &Agent{
			ID:            st.ID,
			Name:          st.Name,
			LocationID:    st.LocationID,
			Inventory:     append([]string(nil), st.Inventory...),
			CurrentWeight: st.CurrentWeight,
			MaxWeight:     st.MaxWeight,
			MaxGraspLimit: st.MaxGraspLimit,
			Mode:          st.Mode,
			CoopObjectID:  st.CoopObjectID,
		}
		a.initDefaults()
		w.agents[st.ID] = a
		for _, held := range a.Inventory {
			if w.g.NodeByID(held) == nil {
				return fmt.Errorf("agent %s holds unknown object %s", st.ID, held)
			}
			w.grantAbilities(a, held)
		}
		w.updateProximity(a, "")
	}
	return nil
}
