package indexdb

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"roomsim/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index over episodes, commands and
// snapshots. Writes go through a buffered channel and a single writer
// goroutine; the JSONL command logs remain the source of truth.
type SQLiteIndex struct {
	db *sqlx.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqEpisode reqKind = iota + 1
	reqCommand
	reqSnapshot
	reqFinish
	reqSync
)

type req struct {
	kind reqKind

	episode  EpisodeRow
	command  commandRow
	snapshot SnapshotRow
	finish   finishRow
	ack      chan struct{}
}

type EpisodeRow struct {
	SessionID string `db:"session_id"`
	Scene     string `db:"scene"`
	Agents    int    `db:"agents"`
	Tasks     int    `db:"tasks"`
	StartedAt string `db:"started_at"`
	EndedAt   string `db:"ended_at"`
	Commands  int    `db:"commands"`
	TasksDone int    `db:"tasks_done"`
	AllDone   bool   `db:"all_done"`
}

type commandRow struct {
	SessionID string
	Entry     world.CommandLogEntry
}

type SnapshotRow struct {
	SessionID string `db:"session_id"`
	Seq       uint64 `db:"seq"`
	Path      string `db:"path"`
	Nodes     int    `db:"nodes"`
	Agents    int    `db:"agents"`
	CreatedAt string `db:"created_at"`
}

type finishRow struct {
	SessionID string
	Commands  int
	TasksDone int
	AllDone   bool
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Sized for bursty multi-agent episodes without stalling Process.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sqlx.DB) error {
	// WAL is much faster for append-style workloads; NORMAL is a decent
	// durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS episodes (
			session_id TEXT PRIMARY KEY,
			scene TEXT NOT NULL,
			agents INTEGER NOT NULL,
			tasks INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL DEFAULT '',
			commands INTEGER NOT NULL DEFAULT 0,
			tasks_done INTEGER NOT NULL DEFAULT 0,
			all_done INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS commands (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			command TEXT NOT NULL,
			status TEXT NOT NULL,
			code TEXT,
			message TEXT NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_agent ON commands(session_id, agent_id, seq);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			path TEXT NOT NULL,
			nodes INTEGER NOT NULL,
			agents INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) RecordEpisode(row EpisodeRow) {
	s.enqueue(req{kind: reqEpisode, episode: row})
}

func (s *SQLiteIndex) RecordCommand(sessionID string, entry world.CommandLogEntry) {
	s.enqueue(req{kind: reqCommand, command: commandRow{SessionID: sessionID, Entry: entry}})
}

func (s *SQLiteIndex) RecordSnapshot(row SnapshotRow) {
	s.enqueue(req{kind: reqSnapshot, snapshot: row})
}

// FinishEpisode stamps the episode row with its final command count and
// verification outcome.
func (s *SQLiteIndex) FinishEpisode(sessionID string, commands, tasksDone int, allDone bool) {
	s.enqueue(req{kind: reqFinish, finish: finishRow{
		SessionID: sessionID, Commands: commands, TasksDone: tasksDone, AllDone: allDone,
	}})
}

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; the JSONL logs keep everything.
	}
}

func (s *SQLiteIndex) loop() {
	for r := range s.ch {
		switch r.kind {
		case reqEpisode:
			_, _ = s.db.NamedExec(`INSERT OR REPLACE INTO episodes
				(session_id, scene, agents, tasks, started_at)
				VALUES (:session_id, :scene, :agents, :tasks, :started_at)`, r.episode)
		case reqCommand:
			e := r.command.Entry
			_, _ = s.db.Exec(`INSERT OR REPLACE INTO commands
				(session_id, seq, agent_id, command, status, code, message, digest)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				r.command.SessionID, e.Seq, e.AgentID, e.Command, string(e.Status), e.Code, e.Message, e.Digest)
		case reqSnapshot:
			_, _ = s.db.NamedExec(`INSERT OR REPLACE INTO snapshots
				(session_id, seq, path, nodes, agents, created_at)
				VALUES (:session_id, :seq, :path, :nodes, :agents, :created_at)`, r.snapshot)
		case reqFinish:
			_, _ = s.db.Exec(`UPDATE episodes
				SET ended_at = ?, commands = ?, tasks_done = ?, all_done = ?
				WHERE session_id = ?`,
				time.Now().UTC().Format(time.RFC3339),
				r.finish.Commands, r.finish.TasksDone, boolToInt(r.finish.AllDone), r.finish.SessionID)
		case reqSync:
			close(r.ack)
		}
	}
}

// Flush blocks until every write queued before the call has been applied.
func (s *SQLiteIndex) Flush() {
	if s == nil || s.closed.Load() {
		return
	}
	ack := make(chan struct{})
	s.ch <- req{kind: reqSync, ack: ack}
	<-ack
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Episodes returns episode rows, most recent first.
func (s *SQLiteIndex) Episodes(limit int) ([]EpisodeRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []EpisodeRow
	err := s.db.Select(&out, `SELECT session_id, scene, agents, tasks, started_at,
		ended_at, commands, tasks_done, all_done
		FROM episodes ORDER BY started_at DESC LIMIT ?`, limit)
	return out, err
}

// CommandCount returns the number of indexed commands for one episode.
func (s *SQLiteIndex) CommandCount(sessionID string) (int, error) {
	var n int
	err := s.db.Get(&n, `SELECT COUNT(*) FROM commands WHERE session_id = ?`, sessionID)
	return n, err
}

// LatestSnapshot returns the most recent snapshot row for one episode.
func (s *SQLiteIndex) LatestSnapshot(sessionID string) (SnapshotRow, error) {
	var row SnapshotRow
	err := s.db.Get(&row, `SELECT session_id, seq, path, nodes, agents, created_at
		FROM snapshots WHERE session_id = ? ORDER BY seq DESC LIMIT 1`, sessionID)
	return row, err
}
