package scene

import (
	"strings"
	"testing"

	"roomsim/internal/config"
)

func sampleDoc() Doc {
	return Doc{
		Name: "test_house",
		Rooms: []RoomDef{
			{ID: "kitchen", Connected: []string{"living"}},
			{ID: "living"},
		},
		Objects: []ObjectDef{
			// Deliberately declared before its container resolves.
			{ID: "apple_1", Type: "GRABBABLE", LocationID: "in:bowl_1",
				Properties: map[string]any{"weight": 1.0}},
			{ID: "bowl_1", Type: "GRABBABLE", LocationID: "on:table_1",
				Properties: map[string]any{"weight": 0.5, "is_container": true}},
			{ID: "table_1", Type: "FURNITURE", LocationID: "kitchen"},
			{ID: "tv_1", Type: "INTERACTABLE", LocationID: "living",
				States: map[string]bool{"powered": false}},
		},
		Agents: []AgentDef{
			{ID: "agent_1", LocationID: "kitchen", MaxWeight: 10, MaxGraspLimit: 2},
		},
	}
}

func TestBuild_ResolvesForwardReferences(t *testing.T) {
	g, rep, err := Build(sampleDoc(), config.Defaults())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if rep.Passes < 1 {
		t.Fatalf("expected at least one nested attach pass, report: %+v", rep)
	}
	if loc := g.NodeByID("apple_1").LocationID; loc != "in:bowl_1" {
		t.Fatalf("apple location = %q", loc)
	}
	if loc := g.NodeByID("bowl_1").LocationID; loc != "on:table_1" {
		t.Fatalf("bowl location = %q", loc)
	}
	if got := g.RoomOf("apple_1"); got != "kitchen" {
		t.Fatalf("RoomOf(apple_1) = %q", got)
	}
	if path := g.FindPath("kitchen", "living"); len(path) != 2 {
		t.Fatalf("rooms not connected: %v", path)
	}
}

func TestBuild_DiscoveryFollowsObserveAll(t *testing.T) {
	settings := config.Defaults()
	g, _, err := Build(sampleDoc(), settings)
	if err != nil {
		t.Fatal(err)
	}
	if g.NodeByID("apple_1").Discovered {
		t.Fatalf("objects should start undiscovered")
	}
	if !g.NodeByID("kitchen").Discovered {
		t.Fatalf("rooms are always discovered")
	}

	settings.ObserveAll = true
	g2, _, err := Build(sampleDoc(), settings)
	if err != nil {
		t.Fatal(err)
	}
	if !g2.NodeByID("apple_1").Discovered {
		t.Fatalf("observe_all should pre-discover objects")
	}
}

func TestBuild_UnresolvedContainerStrict(t *testing.T) {
	doc := sampleDoc()
	doc.Objects = append(doc.Objects, ObjectDef{ID: "lost_1", Type: "ITEM", LocationID: "in:nowhere_1"})
	_, _, err := Build(doc, config.Defaults())
	if err == nil || !strings.Contains(err.Error(), "lost_1") {
		t.Fatalf("strict load should fail naming the object, got %v", err)
	}
}

func TestBuild_UnresolvedContainerFallback(t *testing.T) {
	doc := sampleDoc()
	doc.Objects = append(doc.Objects, ObjectDef{ID: "lost_1", Type: "ITEM", LocationID: "in:nowhere_1"})
	settings := config.Defaults()
	settings.AllowUnresolved = true
	g, rep, err := Build(doc, settings)
	if err != nil {
		t.Fatalf("lenient load: %v", err)
	}
	if len(rep.ForceAttached) != 1 || rep.ForceAttached[0] != "lost_1" {
		t.Fatalf("report = %+v", rep)
	}
	if got := g.RoomOf("lost_1"); got != "kitchen" {
		t.Fatalf("force-attached room = %q, want first room", got)
	}
}

func TestBuild_InRequiresContainer(t *testing.T) {
	doc := sampleDoc()
	// table_1 is not is_container; "in:table_1" must be rejected.
	doc.Objects = append(doc.Objects, ObjectDef{ID: "fork_1", Type: "GRABBABLE", LocationID: "in:table_1"})
	_, _, err := Build(doc, config.Defaults())
	if err == nil || !strings.Contains(err.Error(), "is_container") {
		t.Fatalf("expected is_container violation, got %v", err)
	}
}

func TestSplitLocation(t *testing.T) {
	cases := []struct {
		in        string
		container string
		bad       bool
	}{
		{"kitchen", "kitchen", false},
		{"in:fridge_1", "fridge_1", false},
		{"on:table_1", "table_1", false},
		{"under:bed_1", "", true},
		{"in:", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		_, container, err := splitLocation(tc.in)
		if tc.bad {
			if err == nil {
				t.Errorf("splitLocation(%q) should fail", tc.in)
			}
			continue
		}
		if err != nil || container != tc.container {
			t.Errorf("splitLocation(%q) = %q/%v", tc.in, container, err)
		}
	}
}
