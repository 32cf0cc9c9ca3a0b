package tasks

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Check is one declarative condition: either an expected location for an
// object, or an expected boolean state value.
type Check struct {
	ObjectID   string `json:"object_id"`
	LocationID string `json:"location_id,omitempty"`
	State      string `json:"state,omitempty"`
	Value      bool   `json:"value,omitempty"`
}

func (c Check) IsLocation() bool { return strings.TrimSpace(c.LocationID) != "" }

// Task is a declarative goal: every check must pass for the task to count
// as complete.
type Task struct {
	Description string  `json:"task_description"`
	Category    string  `json:"task_category"`
	Checks      []Check `json:"validation_checks"`
}

// ID derives a stable content-based identifier for the task.
func (t Task) ID() string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// Cooperative reports whether this task requires joint completion: either
// the category tag or the description marks it as a collaboration goal.
func (t Task) Cooperative() bool {
	cat := strings.ToLower(t.Category)
	if strings.Contains(cat, "coop") || strings.Contains(cat, "collab") {
		return true
	}
	desc := strings.ToLower(t.Description)
	return strings.Contains(desc, "together") || strings.Contains(desc, "cooperat") || strings.Contains(desc, "collaborat")
}

// Doc is the external task input document.
type Doc struct {
	Tasks []Task `json:"tasks"`
}
