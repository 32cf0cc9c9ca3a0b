package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Exploration modes.
const (
	ExploreThorough = "thorough"
	ExplorePartial  = "partial"
)

// Settings holds the externally supplied simulator settings. Scene, task and
// attribute-action documents are separate inputs; this file only carries the
// knobs that change runtime behavior.
type Settings struct {
	// ObserveAll marks every loaded object as already discovered.
	ObserveAll bool `yaml:"observe_all"`

	// ExplorationMode selects how EXPLORE discovers objects: "thorough"
	// reveals everything, "partial" reveals a randomized slice.
	ExplorationMode string `yaml:"exploration_mode"`

	// PartialMin/PartialMax bound the fraction revealed by a partial pass.
	PartialMin float64 `yaml:"partial_min"`
	PartialMax float64 `yaml:"partial_max"`

	// AllowUnresolved force-attaches objects whose container never resolves
	// to the first room instead of failing the load.
	AllowUnresolved bool `yaml:"allow_unresolved"`

	// AttachPasses bounds the nested-object resolution retries.
	AttachPasses int `yaml:"attach_passes"`

	Seed int64 `yaml:"seed"`

	DataDir string `yaml:"data_dir"`
}

func Defaults() Settings {
	return Settings{
		ObserveAll:      false,
		ExplorationMode: ExploreThorough,
		PartialMin:      0.50,
		PartialMax:      0.80,
		AllowUnresolved: false,
		AttachPasses:    5,
		Seed:            1337,
		DataDir:         "./data",
	}
}

func Load(path string) (Settings, error) {
	s := Defaults()
	if strings.TrimSpace(path) == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("sim.yaml: %w", err)
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("sim.yaml: %w", err)
	}
	return s, nil
}

func (s *Settings) Normalize() {
	if s == nil {
		return
	}
	s.ExplorationMode = strings.ToLower(strings.TrimSpace(s.ExplorationMode))
	if s.ExplorationMode == "" {
		s.ExplorationMode = ExploreThorough
	}
	if s.PartialMin == 0 && s.PartialMax == 0 {
		s.PartialMin, s.PartialMax = 0.50, 0.80
	}
	if s.AttachPasses <= 0 {
		s.AttachPasses = 5
	}
	if strings.TrimSpace(s.DataDir) == "" {
		s.DataDir = "./data"
	}
}

func (s Settings) Validate() error {
	switch s.ExplorationMode {
	case ExploreThorough, ExplorePartial:
	default:
		return fmt.Errorf("exploration_mode must be %q or %q", ExploreThorough, ExplorePartial)
	}
	if s.PartialMin <= 0 || s.PartialMin > 1 {
		return fmt.Errorf("partial_min must be in (0, 1]")
	}
	if s.PartialMax < s.PartialMin || s.PartialMax > 1 {
		return fmt.Errorf("partial_max must be in [partial_min, 1]")
	}
	return nil
}
