package scene

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadScene_ValidDocument(t *testing.T) {
	p := writeTemp(t, "scene.json", `{
	  "name": "flat",
	  "rooms": [
	    {"id": "kitchen", "connected": ["hall"]},
	    {"id": "hall"}
	  ],
	  "objects": [
	    {"id": "mug_1", "type": "GRABBABLE", "location_id": "kitchen",
	     "properties": {"weight": 0.3}, "states": {"clean": true}}
	  ]
	}`)
	doc, err := LoadScene(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Name != "flat" || len(doc.Rooms) != 2 || len(doc.Objects) != 1 {
		t.Fatalf("decoded doc = %+v", doc)
	}
}

func TestLoadScene_SchemaRejectsBadType(t *testing.T) {
	p := writeTemp(t, "scene.json", `{
	  "rooms": [{"id": "kitchen"}],
	  "objects": [{"id": "blob_1", "type": "BLOB", "location_id": "kitchen"}]
	}`)
	if _, err := LoadScene(p); err == nil || !strings.Contains(err.Error(), "schema validation") {
		t.Fatalf("expected schema validation error, got %v", err)
	}
}

func TestLoadTasks_Valid(t *testing.T) {
	p := writeTemp(t, "tasks.json", `{
	  "tasks": [
	    {"task_description": "chill the apple",
	     "task_category": "rearrange",
	     "validation_checks": [{"object_id": "apple_1", "location_id": "in:fridge_1"}]}
	  ]
	}`)
	list, err := LoadTasks(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(list) != 1 || list[0].Checks[0].ObjectID != "apple_1" {
		t.Fatalf("decoded tasks = %+v", list)
	}
}

func TestLoadAttributeTable(t *testing.T) {
	p := writeTemp(t, "actions.json", `{
	  "actions": [
	    {"verb": "open", "attribute": "open", "expected_value": false},
	    {"verb": "CUT", "attribute": "cut", "expected_value": false, "requires_tool": true}
	  ]
	}`)
	table, err := LoadAttributeTable(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := table["OPEN"]; !ok {
		t.Fatalf("verbs must be upper-cased: %+v", table)
	}
	if !table["CUT"].RequiresTool {
		t.Fatalf("requires_tool lost: %+v", table["CUT"])
	}
}

func TestBuildAttributeTable_DuplicateVerb(t *testing.T) {
	_, err := BuildAttributeTable([]AttributeAction{
		{Verb: "open", Attribute: "open"},
		{Verb: "OPEN", Attribute: "open"},
	})
	if err == nil {
		t.Fatalf("duplicate verbs must be rejected")
	}
}
