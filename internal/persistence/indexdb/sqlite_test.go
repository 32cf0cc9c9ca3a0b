package indexdb

import (
	"path/filepath"
	"testing"
	"time"

	"roomsim/internal/protocol"
	"roomsim/internal/sim/world"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSQLiteIndex_EpisodeLifecycle(t *testing.T) {
	idx := openTestIndex(t)

	idx.RecordEpisode(EpisodeRow{
		SessionID: "sess-1",
		Scene:     "flat",
		Agents:    2,
		Tasks:     3,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	})
	for seq := uint64(1); seq <= 3; seq++ {
		idx.RecordCommand("sess-1", world.CommandLogEntry{
			Seq:     seq,
			AgentID: "a1",
			Command: "LOOK",
			Status:  protocol.StatusSuccess,
			Message: "ok",
			Digest:  "d",
		})
	}
	idx.FinishEpisode("sess-1", 3, 2, false)
	idx.Flush()

	eps, err := idx.Episodes(10)
	if err != nil {
		t.Fatalf("episodes: %v", err)
	}
	if len(eps) != 1 {
		t.Fatalf("episodes = %d, want 1", len(eps))
	}
	ep := eps[0]
	if ep.SessionID != "sess-1" || ep.Commands != 3 || ep.TasksDone != 2 || ep.AllDone {
		t.Fatalf("episode row = %+v", ep)
	}
	if ep.EndedAt == "" {
		t.Fatal("finish should stamp ended_at")
	}

	n, err := idx.CommandCount("sess-1")
	if err != nil || n != 3 {
		t.Fatalf("command count = %d (%v), want 3", n, err)
	}
}

func TestSQLiteIndex_LatestSnapshot(t *testing.T) {
	idx := openTestIndex(t)

	for seq := uint64(1); seq <= 2; seq++ {
		idx.RecordSnapshot(SnapshotRow{
			SessionID: "sess-1",
			Seq:       seq * 10,
			Path:      "/tmp/snap",
			Nodes:     12,
			Agents:    2,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
	idx.Flush()

	row, err := idx.LatestSnapshot("sess-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if row.Seq != 20 {
		t.Fatalf("latest seq = %d, want 20", row.Seq)
	}
}

func TestSQLiteIndex_WritesAfterCloseAreIgnored(t *testing.T) {
	idx := openTestIndex(t)
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Must not panic or block.
	idx.RecordCommand("sess-1", world.CommandLogEntry{Seq: 1})
	idx.Flush()
}
