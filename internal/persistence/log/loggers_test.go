package log

import (
	"path/filepath"
	"testing"

	"roomsim/internal/protocol"
	"roomsim/internal/sim/world"
)

func TestCommandLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewCommandLogger(dir)

	entries := []world.CommandLogEntry{
		{Seq: 1, AgentID: "a1", Command: "GOTO r2", Status: protocol.StatusSuccess, Message: "a1 moved to r2", Digest: "abc"},
		{Seq: 2, AgentID: "a1", Command: "GRAB ghost", Status: protocol.StatusInvalid, Code: protocol.ErrNotFound, Message: "ghost does not exist", Digest: "abc"},
	}
	for _, e := range entries {
		if err := l.WriteCommand(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "commands", "*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("log files = %v (%v)", files, err)
	}
	got, err := ReadCommands(files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("read %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestJSONLZstdWriter_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	w := NewJSONLZstdWriter(dir, "events")
	if err := w.Write(map[string]any{"n": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	w = NewJSONLZstdWriter(dir, "events")
	if err := w.Write(map[string]any{"n": 2}); err != nil {
		t.Fatalf("write after reopen: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	if len(files) != 1 {
		t.Fatalf("expected one rotated file, got %v", files)
	}
}
