package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.ExplorationMode != ExploreThorough {
		t.Fatalf("exploration_mode = %q, want thorough", s.ExplorationMode)
	}
	if s.AttachPasses != 5 {
		t.Fatalf("attach_passes = %d, want 5", s.AttachPasses)
	}
}

func TestLoad_FileOverridesAndValidates(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sim.yaml")
	body := "exploration_mode: PARTIAL\npartial_min: 0.5\npartial_max: 0.8\nobserve_all: true\nseed: 7\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.ExplorationMode != ExplorePartial {
		t.Fatalf("exploration_mode = %q", s.ExplorationMode)
	}
	if !s.ObserveAll || s.Seed != 7 {
		t.Fatalf("overrides not applied: %+v", s)
	}
}

func TestValidate_BadMode(t *testing.T) {
	s := Defaults()
	s.ExplorationMode = "sloppy"
	if err := s.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_BadPartialBounds(t *testing.T) {
	s := Defaults()
	s.PartialMax = 0.2
	if err := s.Validate(); err == nil {
		t.Fatalf("expected validation error for partial_max < partial_min")
	}
}
