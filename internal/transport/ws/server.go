package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"roomsim/internal/protocol"
	"roomsim/internal/sim/world"
)

// Episode is one live session plus the bookkeeping the transport cannot do
// itself. Cleanup runs exactly once when the connection ends.
type Episode struct {
	ID        string
	SceneName string
	Session   *world.Session
	Cleanup   func(commands int, tasksDone int, allDone bool)
}

// Factory builds a fresh episode per connection. Each connection owns its
// world outright, so the synchronous core is never shared.
type Factory func() (*Episode, error)

type Server struct {
	newEpisode Factory
	log        *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(factory Factory, logger *log.Logger) *Server {
	return &Server{
		newEpisode: factory,
		log:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ep, ok := s.handshake(conn)
		if !ok {
			return
		}
		s.log.Printf("episode %s started scene=%s", ep.ID, ep.SceneName)

		commands := 0
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			// A broken frame still gets an answer; silence would leave the
			// client waiting on a reply that never comes.
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeCommand {
				if werr := writeJSON(conn, badRequest(0, "", "expected a CMD message")); werr != nil {
					break
				}
				continue
			}
			var cmd protocol.CommandMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				if werr := writeJSON(conn, badRequest(0, "", "malformed CMD message")); werr != nil {
					break
				}
				continue
			}
			if cmd.ProtocolVersion != protocol.Version {
				if werr := writeJSON(conn, badRequest(cmd.Seq, cmd.AgentID, "unsupported protocol_version")); werr != nil {
					break
				}
				continue
			}

			res, verify := ep.Session.Handle(cmd.AgentID, cmd.Command)
			commands++

			if err := writeJSON(conn, protocol.ResultMsg{
				Type:            protocol.TypeResult,
				ProtocolVersion: protocol.Version,
				Seq:             cmd.Seq,
				AgentID:         cmd.AgentID,
				Result:          res,
			}); err != nil {
				break
			}
			if verify != nil {
				verify.Type = protocol.TypeVerify
				verify.ProtocolVersion = protocol.Version
				verify.Seq = cmd.Seq
				if err := writeJSON(conn, verify); err != nil {
					break
				}
			}
		}

		reports, all := ep.Session.Done()
		done := 0
		for _, r := range reports {
			if r.Done {
				done++
			}
		}
		if ep.Cleanup != nil {
			ep.Cleanup(commands, done, all)
		}
		s.log.Printf("episode %s ended commands=%d tasks_done=%d/%d", ep.ID, commands, done, len(reports))
	}
}

func (s *Server) handshake(conn *websocket.Conn) (*Episode, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(conn, "expected HELLO")
		return nil, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, false
	}
	if hello.ProtocolVersion != protocol.Version {
		closePolicy(conn, "bad protocol_version")
		return nil, false
	}

	ep, err := s.newEpisode()
	if err != nil {
		s.log.Printf("episode setup failed: %v", err)
		closePolicy(conn, "episode setup failed")
		return nil, false
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       ep.ID,
		SceneName:       ep.SceneName,
		AgentIDs:        ep.Session.World.AgentIDs(),
		TaskCount:       len(ep.Session.Tasks),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil, false
	}
	return ep, true
}

func badRequest(seq uint64, agentID, message string) protocol.ResultMsg {
	return protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		Seq:             seq,
		AgentID:         agentID,
		Result:          protocol.Invalid(protocol.ErrProtoBadRequest, message),
	}
}

func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
