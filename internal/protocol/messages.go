package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	SessionID       string   `json:"session_id"`
	SceneName       string   `json:"scene_name,omitempty"`
	AgentIDs        []string `json:"agent_ids"`
	TaskCount       int      `json:"task_count"`
}

// CMD (client -> server): one tokenized command for one agent.
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq,omitempty"`
	AgentID         string `json:"agent_id"`
	Command         string `json:"command"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq,omitempty"`
	AgentID         string `json:"agent_id"`
	Result          Result `json:"result"`
}

// VERIFY (server -> client): full-task verification report, sent in
// response to the reserved DONE command.
type VerifyMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Seq             uint64       `json:"seq,omitempty"`
	Reports         []TaskReport `json:"reports"`
	AllDone         bool         `json:"all_done"`
}

type TaskReport struct {
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Done        bool   `json:"done"`
	Error       string `json:"error,omitempty"`
}
