package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"roomsim/internal/config"
	"roomsim/internal/persistence/indexdb"
	persistlog "roomsim/internal/persistence/log"
	"roomsim/internal/persistence/snapshot"
	"roomsim/internal/scene"
	"roomsim/internal/sim/world"
	"roomsim/internal/transport/ws"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		configPath  = flag.String("config", "", "path to sim.yaml (empty for defaults)")
		scenePath   = flag.String("scene", "./configs/scene.json", "scene document path")
		tasksPath   = flag.String("tasks", "./configs/tasks.json", "task document path")
		actionsPath = flag.String("actions", "./configs/actions.json", "attribute-action table path")
		dataDir     = flag.String("data", "", "runtime data directory (default from sim.yaml)")
		disableDB   = flag.Bool("disable_db", false, "disable the episode index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	settings, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if strings.TrimSpace(*dataDir) != "" {
		settings.DataDir = *dataDir
	}
	_ = os.MkdirAll(settings.DataDir, 0o755)

	sceneDoc, err := scene.LoadScene(*scenePath)
	if err != nil {
		logger.Fatalf("load scene: %v", err)
	}
	taskList, err := scene.LoadTasks(*tasksPath)
	if err != nil {
		logger.Fatalf("load tasks: %v", err)
	}
	attrs, err := scene.LoadAttributeTable(*actionsPath)
	if err != nil {
		logger.Fatalf("load actions: %v", err)
	}
	logger.Printf("scene %q: %d rooms, %d objects, %d agents, %d tasks, %d verbs",
		sceneDoc.Name, len(sceneDoc.Rooms), len(sceneDoc.Objects), len(sceneDoc.Agents),
		len(taskList), len(attrs))

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(settings.DataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
	}

	factory := func() (*ws.Episode, error) {
		sessionID := uuid.NewString()
		sessionDir := filepath.Join(settings.DataDir, "episodes", sessionID)

		w, rep, err := world.FromScene(sceneDoc, settings, attrs)
		if err != nil {
			return nil, err
		}
		if len(rep.ForceAttached) > 0 {
			logger.Printf("episode %s: force-attached %v", sessionID, rep.ForceAttached)
		}

		cmdLog := persistlog.NewCommandLogger(sessionDir)
		w.SetCommandLogger(teeLogger{sessionID: sessionID, file: cmdLog, idx: idx})

		ses := world.NewSession(w, taskList)
		started := time.Now()
		idx.RecordEpisode(indexdb.EpisodeRow{
			SessionID: sessionID,
			Scene:     sceneDoc.Name,
			Agents:    len(w.AgentIDs()),
			Tasks:     len(taskList),
			StartedAt: started.UTC().Format(time.RFC3339),
		})

		cleanup := func(commands, tasksDone int, allDone bool) {
			snapPath := filepath.Join(sessionDir, "final.snap.zst")
			snap := snapshot.Export(ses, sessionID, uint64(commands), sceneDoc.Name)
			if err := snapshot.WriteSnapshot(snapPath, snap); err != nil {
				logger.Printf("episode %s: write snapshot: %v", sessionID, err)
			} else {
				idx.RecordSnapshot(indexdb.SnapshotRow{
					SessionID: sessionID,
					Seq:       uint64(commands),
					Path:      snapPath,
					Nodes:     len(snap.Nodes),
					Agents:    len(snap.Agents),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				})
			}
			idx.FinishEpisode(sessionID, commands, tasksDone, allDone)
			_ = cmdLog.Close()
			logger.Printf("episode %s finished after %s: %d commands, %d/%d tasks",
				sessionID, humanize.Time(started), commands, tasksDone, len(taskList))
		}

		return &ws.Episode{
			ID:        sessionID,
			SceneName: sceneDoc.Name,
			Session:   ses,
			Cleanup:   cleanup,
		}, nil
	}

	srv := ws.NewServer(factory, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", srv.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	if idx != nil {
		mux.HandleFunc("/v1/episodes", episodesHandler(idx))
	}

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s", *addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Printf("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	if idx != nil {
		idx.Flush()
	}
}

// teeLogger fans one command entry out to the JSONL log and the index.
type teeLogger struct {
	sessionID string
	file      *persistlog.CommandLogger
	idx       *indexdb.SQLiteIndex
}

func (t teeLogger) WriteCommand(entry world.CommandLogEntry) error {
	t.idx.RecordCommand(t.sessionID, entry)
	return t.file.WriteCommand(entry)
}
