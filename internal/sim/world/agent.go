package world

import (
	"sort"
	"strings"
)

// Mode is the agent's cooperative state. While cooperating (jointly carrying
// an object) only cooperative goto/place commands are accepted.
type Mode uint8

const (
	ModeFree Mode = iota
	ModeCooperating
)

const (
	defaultMaxWeight  = 10.0
	defaultGraspLimit = 2
)

type Agent struct {
	ID   string
	Name string

	// LocationID is always a bare room id.
	LocationID string

	// Inventory holds the ids of grabbed objects, in grab order.
	Inventory     []string
	CurrentWeight float64
	MaxWeight     float64
	MaxGraspLimit int

	// NearObjects is derived from the graph, never authoritative.
	NearObjects map[string]struct{}

	Mode         Mode
	CoopObjectID string

	// abilitySources maps ability -> the held object ids granting it. An
	// ability exists iff its source set is non-empty.
	abilitySources map[string]map[string]struct{}
}

func (a *Agent) initDefaults() {
	if a.MaxWeight <= 0 {
		a.MaxWeight = defaultMaxWeight
	}
	if a.MaxGraspLimit <= 0 {
		a.MaxGraspLimit = defaultGraspLimit
	}
	if a.NearObjects == nil {
		a.NearObjects = map[string]struct{}{}
	}
	if a.abilitySources == nil {
		a.abilitySources = map[string]map[string]struct{}{}
	}
}

func (a *Agent) Holds(objectID string) bool {
	for _, id := range a.Inventory {
		if id == objectID {
			return true
		}
	}
	return false
}

func (a *Agent) Near(objectID string) bool {
	_, ok := a.NearObjects[objectID]
	return ok
}

func (a *Agent) HasAbility(name string) bool {
	srcs := a.abilitySources[normalizeAbility(name)]
	return len(srcs) > 0
}

func (a *Agent) Abilities() []string {
	out := make([]string, 0, len(a.abilitySources))
	for ab, srcs := range a.abilitySources {
		if len(srcs) > 0 {
			out = append(out, ab)
		}
	}
	sort.Strings(out)
	return out
}

// addAbilitySource reference-counts one granting object. Reports whether the
// ability is newly present.
func (a *Agent) addAbilitySource(ability, objectID string) bool {
	ability = normalizeAbility(ability)
	srcs := a.abilitySources[ability]
	fresh := len(srcs) == 0
	if srcs == nil {
		srcs = map[string]struct{}{}
		a.abilitySources[ability] = srcs
	}
	srcs[objectID] = struct{}{}
	return fresh
}

// removeAbilitySource drops one granting object. Reports whether the ability
// is now gone entirely.
func (a *Agent) removeAbilitySource(ability, objectID string) bool {
	ability = normalizeAbility(ability)
	srcs := a.abilitySources[ability]
	if srcs == nil {
		return false
	}
	delete(srcs, objectID)
	if len(srcs) == 0 {
		delete(a.abilitySources, ability)
		return true
	}
	return false
}

func (a *Agent) removeFromInventory(objectID string) bool {
	for i, id := range a.Inventory {
		if id == objectID {
			a.Inventory = append(a.Inventory[:i], a.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

func normalizeAbility(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
