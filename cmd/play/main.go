package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"roomsim/internal/protocol"
)

var (
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleFailure = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	stylePartial = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleWaiting = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	stylePrompt  = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
)

func main() {
	var (
		url   = flag.String("url", "ws://127.0.0.1:8080/v1/ws", "server websocket url")
		agent = flag.String("agent", "", "agent id to drive (default: first in WELCOME)")
	)
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", *url, err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := conn.WriteJSON(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "play",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "hello: %v\n", err)
		os.Exit(1)
	}
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil || welcome.Type != protocol.TypeWelcome {
		fmt.Fprintf(os.Stderr, "handshake failed: %v\n", err)
		os.Exit(1)
	}

	agentID := *agent
	if agentID == "" && len(welcome.AgentIDs) > 0 {
		agentID = welcome.AgentIDs[0]
	}

	m := newModel(conn, welcome, agentID)
	p := tea.NewProgram(m)
	go readLoop(conn, p)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui: %v\n", err)
		os.Exit(1)
	}
}

// serverMsg carries one decoded server frame into the update loop.
type serverMsg struct {
	result *protocol.ResultMsg
	verify *protocol.VerifyMsg
	err    error
}

func readLoop(conn *websocket.Conn, p *tea.Program) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			p.Send(serverMsg{err: err})
			return
		}
		base, err := protocol.DecodeBase(raw)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeResult:
			var res protocol.ResultMsg
			if json.Unmarshal(raw, &res) == nil {
				p.Send(serverMsg{result: &res})
			}
		case protocol.TypeVerify:
			var ver protocol.VerifyMsg
			if json.Unmarshal(raw, &ver) == nil {
				p.Send(serverMsg{verify: &ver})
			}
		}
	}
}

type model struct {
	conn    *websocket.Conn
	agentID string
	seq     uint64

	input textinput.Model
	view  viewport.Model
	lines []string
	ready bool
}

func newModel(conn *websocket.Conn, welcome protocol.WelcomeMsg, agentID string) *model {
	ti := textinput.New()
	ti.Placeholder = "GOTO kitchen | GRAB mug_1 | DONE | /agent a2 | /quit"
	ti.Focus()
	m := &model{conn: conn, agentID: agentID, input: ti}
	m.push(styleInfo.Render(fmt.Sprintf("session %s scene=%s agents=%s tasks=%d",
		welcome.SessionID, welcome.SceneName, strings.Join(welcome.AgentIDs, ","), welcome.TaskCount)))
	return m
}

func (m *model) Init() tea.Cmd { return textinput.Blink }

func (m *model) push(line string) {
	m.lines = append(m.lines, line)
	if m.ready {
		m.view.SetContent(strings.Join(m.lines, "\n"))
		m.view.GotoBottom()
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.view = viewport.New(msg.Width, msg.Height-3)
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = msg.Height - 3
		}
		m.view.SetContent(strings.Join(m.lines, "\n"))
		m.view.GotoBottom()
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			return m, m.submit(line)
		}
	case serverMsg:
		m.onServer(msg)
	}
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *model) submit(line string) tea.Cmd {
	switch {
	case line == "/quit":
		return tea.Quit
	case strings.HasPrefix(line, "/agent "):
		m.agentID = strings.TrimSpace(strings.TrimPrefix(line, "/agent "))
		m.push(styleInfo.Render("driving " + m.agentID))
		return nil
	}
	m.seq++
	m.push(stylePrompt.Render(fmt.Sprintf("%s> ", m.agentID)) + line)
	if err := m.conn.WriteJSON(protocol.CommandMsg{
		Type:            protocol.TypeCommand,
		ProtocolVersion: protocol.Version,
		Seq:             m.seq,
		AgentID:         m.agentID,
		Command:         line,
	}); err != nil {
		m.push(styleFailure.Render("send failed: " + err.Error()))
		return tea.Quit
	}
	return nil
}

func (m *model) onServer(msg serverMsg) {
	switch {
	case msg.err != nil:
		m.push(styleFailure.Render("connection closed: " + msg.err.Error()))
	case msg.result != nil:
		res := msg.result.Result
		style := styleSuccess
		switch res.Status {
		case protocol.StatusInvalid, protocol.StatusFailure:
			style = styleFailure
		case protocol.StatusPartial:
			style = stylePartial
		case protocol.StatusWaiting:
			style = styleWaiting
		}
		text := fmt.Sprintf("[%s] %s", res.Status, res.Message)
		if res.Code != "" {
			text += " (" + res.Code + ")"
		}
		m.push(style.Render(text))
	case msg.verify != nil:
		for _, r := range msg.verify.Reports {
			mark := "✗"
			style := styleFailure
			if r.Done {
				mark, style = "✓", styleSuccess
			}
			m.push(style.Render(fmt.Sprintf("  %s %s", mark, r.Description)))
		}
		if msg.verify.AllDone {
			m.push(styleSuccess.Render("all tasks complete"))
		}
	}
}

func (m *model) View() string {
	if !m.ready {
		return "connecting..."
	}
	return m.view.View() + "\n" + m.input.View() + "\n"
}
