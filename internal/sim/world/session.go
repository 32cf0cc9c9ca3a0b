package world

import (
	"strings"

	"roomsim/internal/protocol"
	"roomsim/internal/sim/tasks"
)

// DoneCommand skips the dispatcher entirely and asks for a verification
// report instead of a state transition.
const DoneCommand = "DONE"

// Session ties one world to its task list and verifier for the lifetime of
// an episode. Every processed command is followed by a silent verification
// pass, so completion is caught the moment it happens and stays caught.
type Session struct {
	World    *World
	Tasks    []tasks.Task
	verifier *tasks.Verifier
}

func NewSession(w *World, taskList []tasks.Task) *Session {
	return &Session{
		World:    w,
		Tasks:    taskList,
		verifier: tasks.NewVerifier(),
	}
}

func (s *Session) Verifier() *tasks.Verifier { return s.verifier }

// Handle processes one command for one agent. DONE returns the verification
// report; everything else runs through the dispatcher and then updates task
// completion as a side effect.
func (s *Session) Handle(agentID, command string) (protocol.Result, *protocol.VerifyMsg) {
	if strings.EqualFold(strings.TrimSpace(command), DoneCommand) {
		reports, all := s.verifier.VerifyAll(s.Tasks, s.World.Graph())
		msg := &protocol.VerifyMsg{Reports: reports, AllDone: all}
		status := protocol.StatusPartial
		text := "tasks remain incomplete"
		if all {
			status = protocol.StatusSuccess
			text = "all tasks complete"
		}
		return protocol.Result{Status: status, Message: text}, msg
	}
	res := s.World.Process(agentID, command)
	// Completion is monotonic; checking after every command means a task
	// finished mid-episode stays finished even if later commands undo the
	// world state it checked.
	s.verifier.VerifyAll(s.Tasks, s.World.Graph())
	return res, nil
}

// Done reports the current verification state without processing a command.
func (s *Session) Done() ([]protocol.TaskReport, bool) {
	return s.verifier.VerifyAll(s.Tasks, s.World.Graph())
}
