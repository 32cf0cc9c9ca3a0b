package scene

import (
	"encoding/json"
	"fmt"
	"os"

	"roomsim/internal/sim/tasks"
)

// Doc is the declarative scene input: rooms, their connections, objects and
// (optionally) the agents that inhabit them.
type Doc struct {
	Name    string      `json:"name,omitempty"`
	Rooms   []RoomDef   `json:"rooms"`
	Objects []ObjectDef `json:"objects"`
	Agents  []AgentDef  `json:"agents,omitempty"`
}

type RoomDef struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Connected  []string       `json:"connected,omitempty"`
}

type ObjectDef struct {
	ID         string          `json:"id"`
	Name       string          `json:"name,omitempty"`
	Type       string          `json:"type"`
	LocationID string          `json:"location_id"`
	Properties map[string]any  `json:"properties,omitempty"`
	States     map[string]bool `json:"states,omitempty"`
}

type AgentDef struct {
	ID            string  `json:"id"`
	Name          string  `json:"name,omitempty"`
	LocationID    string  `json:"location_id"`
	MaxWeight     float64 `json:"max_weight,omitempty"`
	MaxGraspLimit int     `json:"max_grasp_limit,omitempty"`
}

// LoadScene reads, schema-validates and decodes a scene document.
func LoadScene(path string) (Doc, error) {
	var doc Doc
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := validateDoc(schemaScene, raw); err != nil {
		return doc, fmt.Errorf("%s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// LoadTasks reads, schema-validates and decodes a task document.
func LoadTasks(path string) ([]tasks.Task, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validateDoc(schemaTasks, raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var doc tasks.Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc.Tasks, nil
}
