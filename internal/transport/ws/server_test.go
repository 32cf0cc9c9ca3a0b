package ws

import (
	"encoding/json"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"roomsim/internal/config"
	"roomsim/internal/protocol"
	"roomsim/internal/scene"
	"roomsim/internal/sim/tasks"
	"roomsim/internal/sim/world"
)

func testFactory(t *testing.T, cleanup chan [2]int) Factory {
	t.Helper()
	return func() (*Episode, error) {
		settings := config.Defaults()
		settings.ObserveAll = true
		doc := scene.Doc{
			Name:    "studio",
			Rooms:   []scene.RoomDef{{ID: "r1"}},
			Objects: []scene.ObjectDef{{ID: "desk_1", Type: "FURNITURE", LocationID: "r1"}},
			Agents:  []scene.AgentDef{{ID: "a1", LocationID: "r1"}},
		}
		w, _, err := world.FromScene(doc, settings, scene.AttributeTable{})
		if err != nil {
			return nil, err
		}
		taskList := []tasks.Task{{
			Description: "nothing to do",
			Checks:      []tasks.Check{{ObjectID: "desk_1", LocationID: "r1"}},
		}}
		return &Episode{
			ID:        "sess-test",
			SceneName: doc.Name,
			Session:   world.NewSession(w, taskList),
			Cleanup: func(commands, tasksDone int, allDone bool) {
				cleanup <- [2]int{commands, tasksDone}
			},
		}, nil
	}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readMsg[T any](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	var v T
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestServer_HandshakeAndCommands(t *testing.T) {
	cleanup := make(chan [2]int, 1)
	srv := NewServer(testFactory(t, cleanup), log.New(os.Stderr, "", 0))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts.URL)
	defer conn.Close()

	if err := conn.WriteJSON(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "test",
	}); err != nil {
		t.Fatalf("hello: %v", err)
	}
	welcome := readMsg[protocol.WelcomeMsg](t, conn)
	if welcome.Type != protocol.TypeWelcome || welcome.SessionID != "sess-test" {
		t.Fatalf("welcome = %+v", welcome)
	}
	if len(welcome.AgentIDs) != 1 || welcome.AgentIDs[0] != "a1" || welcome.TaskCount != 1 {
		t.Fatalf("welcome = %+v", welcome)
	}

	if err := conn.WriteJSON(protocol.CommandMsg{
		Type:            protocol.TypeCommand,
		ProtocolVersion: protocol.Version,
		Seq:             1,
		AgentID:         "a1",
		Command:         "LOOK",
	}); err != nil {
		t.Fatalf("cmd: %v", err)
	}
	result := readMsg[protocol.ResultMsg](t, conn)
	if result.Seq != 1 || result.Result.Status != protocol.StatusSuccess {
		t.Fatalf("result = %+v", result)
	}

	if err := conn.WriteJSON(protocol.CommandMsg{
		Type:            protocol.TypeCommand,
		ProtocolVersion: protocol.Version,
		Seq:             2,
		AgentID:         "a1",
		Command:         "DONE",
	}); err != nil {
		t.Fatalf("done: %v", err)
	}
	result = readMsg[protocol.ResultMsg](t, conn)
	if result.Seq != 2 {
		t.Fatalf("result = %+v", result)
	}
	verify := readMsg[protocol.VerifyMsg](t, conn)
	if verify.Type != protocol.TypeVerify || !verify.AllDone || len(verify.Reports) != 1 {
		t.Fatalf("verify = %+v", verify)
	}

	_ = conn.Close()
	select {
	case got := <-cleanup:
		if got[0] != 2 {
			t.Fatalf("cleanup saw %d commands, want 2", got[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup never ran")
	}
}

func TestServer_AnswersBadFrames(t *testing.T) {
	cleanup := make(chan [2]int, 1)
	srv := NewServer(testFactory(t, cleanup), log.New(os.Stderr, "", 0))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts.URL)
	defer conn.Close()

	if err := conn.WriteJSON(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
	}); err != nil {
		t.Fatalf("hello: %v", err)
	}
	readMsg[protocol.WelcomeMsg](t, conn)

	// A frame that is not a CMD at all.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"NOPE"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	result := readMsg[protocol.ResultMsg](t, conn)
	if result.Result.Status != protocol.StatusInvalid || result.Result.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("result = %+v", result)
	}

	// A CMD carrying the wrong protocol version.
	if err := conn.WriteJSON(protocol.CommandMsg{
		Type:            protocol.TypeCommand,
		ProtocolVersion: "0.0",
		Seq:             7,
		AgentID:         "a1",
		Command:         "LOOK",
	}); err != nil {
		t.Fatalf("cmd: %v", err)
	}
	result = readMsg[protocol.ResultMsg](t, conn)
	if result.Seq != 7 || result.Result.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("result = %+v", result)
	}

	// The connection survives and a well-formed command still works.
	if err := conn.WriteJSON(protocol.CommandMsg{
		Type:            protocol.TypeCommand,
		ProtocolVersion: protocol.Version,
		Seq:             8,
		AgentID:         "a1",
		Command:         "LOOK",
	}); err != nil {
		t.Fatalf("cmd: %v", err)
	}
	result = readMsg[protocol.ResultMsg](t, conn)
	if result.Seq != 8 || result.Result.Status != protocol.StatusSuccess {
		t.Fatalf("result = %+v", result)
	}
}

func TestServer_RejectsWrongFirstMessage(t *testing.T) {
	cleanup := make(chan [2]int, 1)
	srv := NewServer(testFactory(t, cleanup), log.New(os.Stderr, "", 0))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts.URL)
	defer conn.Close()

	if err := conn.WriteJSON(protocol.CommandMsg{
		Type:            protocol.TypeCommand,
		ProtocolVersion: protocol.Version,
		AgentID:         "a1",
		Command:         "LOOK",
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("server should close the connection without HELLO")
	}
	select {
	case <-cleanup:
		t.Fatal("no episode should have started")
	case <-time.After(100 * time.Millisecond):
	}
}
