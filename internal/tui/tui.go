// Package tui is the interactive terminal client: it speaks the newline-JSON
// protocol over TCP and renders the room through a Bubble Tea model. It is a
// debugging/playing aid; the server never depends on it.
package tui

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/moyufeng/doudizhu/internal/card"
	"github.com/moyufeng/doudizhu/internal/protocol"
	"github.com/moyufeng/doudizhu/internal/rules"
)

// frameMsg delivers one decoded server frame into the model.
type frameMsg struct {
	frame *protocol.Frame
}

// connLostMsg reports that the server connection dropped.
type connLostMsg struct {
	err error
}

// Model is the Bubble Tea model for one connected player.
type Model struct {
	conn   net.Conn
	logger *log.Logger

	logViewport viewport.Model
	input       textinput.Model

	room   string
	player string

	names     []string
	myIndex   int
	myCards   []string
	counts    []int
	lastList  []string
	lastType  string
	lastIndex int
	kitty     []string
	state     protocol.PlayState
	gameLog   []string

	width       int
	height      int
	initialized bool
	quitting    bool
	lost        error
}

// NewModel creates the model for an already-handshaken connection.
func NewModel(conn net.Conn, room, player string, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)

	ti := textinput.New()
	ti.Placeholder = "叫分 0-3 / 出牌如 ♥3 ♠3 / pass"
	ti.Focus()
	ti.CharLimit = 120
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)

	return &Model{
		conn:        conn,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		input:       ti,
		room:        room,
		player:      player,
		myIndex:     -1,
		lastIndex:   -1,
	}
}

// Run connects, performs the intake handshake, and drives the TUI until the
// user quits or the connection drops.
func Run(host string, port int, room, player string, logger *log.Logger) error {
	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if _, err := fmt.Fprintf(conn, "%s\n%s", room, player); err != nil {
		return err
	}

	m := NewModel(conn, room, player, logger)
	p := tea.NewProgram(m, tea.WithAltScreen())
	go readFrames(conn, p)
	_, err = p.Run()
	return err
}

// readFrames splits the inbound stream on newlines, holding partial frames
// until complete, and feeds decoded frames to the program.
func readFrames(conn net.Conn, p *tea.Program) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		frame, err := protocol.DecodeFrame(line)
		if err != nil {
			continue
		}
		p.Send(frameMsg{frame: frame})
	}
	p.Send(connLostMsg{err: scanner.Err()})
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logViewport.Width = msg.Width - 2
		m.logViewport.Height = max(3, msg.Height-12)
		m.initialized = true
		m.refreshLog()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "enter":
			m.submit()
		}

	case frameMsg:
		m.apply(msg.frame)

	case connLostMsg:
		m.lost = msg.err
		m.appendLog(errorStyle.Render("与服务器断开连接"))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// apply folds one server frame into the display state: only fields present
// in the delta change.
func (m *Model) apply(f *protocol.Frame) {
	switch f.Code {
	case protocol.CodeInfo:
		if s, err := f.Info(); err == nil {
			m.appendLog(errorStyle.Render("[提示] " + s))
		}
	case protocol.CodeStop:
		m.lastList = nil
		m.lastType = ""
		m.lastIndex = -1
		m.kitty = nil
		m.state = protocol.StateWait
		m.appendLog(infoStyle.Render("—— 本局结束 ——"))
	case protocol.CodeState:
		u, err := f.Update()
		if err != nil {
			m.logger.Debug("bad update frame", "err", err)
			return
		}
		if u.MyIndex != nil {
			m.myIndex = *u.MyIndex
		}
		if u.NameList != nil {
			m.names = u.NameList
		}
		if u.MyCardList != nil {
			m.myCards = *u.MyCardList
		}
		if u.CardCountList != nil {
			m.counts = u.CardCountList
		}
		if u.LastCardPlayerIndex != nil {
			m.lastIndex = *u.LastCardPlayerIndex
		}
		if u.LastCardType != "" {
			m.lastType = u.LastCardType
		}
		if u.LastCardList != nil {
			m.lastList = *u.LastCardList
			if len(m.lastList) == 0 {
				m.lastType = ""
			}
		}
		if u.RemainCardList != nil {
			m.kitty = u.RemainCardList
		}
		if u.State != nil {
			m.state = *u.State
		}
		if u.TopMessage != "" {
			m.appendLog(u.TopMessage)
		}
	}
}

// submit sends the typed command. Plays get the two-digit type annotation
// appended when they classify locally; the server re-classifies anyway.
func (m *Model) submit() {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return
	}
	m.input.Reset()

	out := text
	if m.state != protocol.StateMarking && !protocol.IsPass(text) {
		if cards, err := card.ParseAll(strings.Fields(strings.ToUpper(text))); err == nil {
			if hand, err := rules.Classify(cards); err == nil {
				out = fmt.Sprintf("%s %02d", text, hand.Type.Ordinal())
			}
		}
	}

	if _, err := m.conn.Write([]byte(out)); err != nil {
		m.appendLog(errorStyle.Render("发送失败: " + err.Error()))
	}
}

func (m *Model) appendLog(line string) {
	m.gameLog = append(m.gameLog, line)
	if len(m.gameLog) > 200 {
		m.gameLog = m.gameLog[len(m.gameLog)-200:]
	}
	m.refreshLog()
}

func (m *Model) refreshLog() {
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	m.logViewport.GotoBottom()
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("斗地主 · 房间 %s · %s", m.room, m.player)))
	b.WriteString("\n\n")

	b.WriteString(seatStyle.Render("座位: "))
	for i, name := range m.names {
		entry := name
		if i < len(m.counts) {
			entry = fmt.Sprintf("%s(%d张)", name, m.counts[i])
		}
		if i == m.myIndex {
			entry += "*"
		}
		b.WriteString(entry)
		if i != len(m.names)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")

	if len(m.kitty) > 0 {
		b.WriteString(seatStyle.Render("底牌: ") + renderCards(m.kitty) + "\n")
	}
	if len(m.lastList) > 0 {
		who := ""
		if m.lastIndex >= 0 && m.lastIndex < len(m.names) {
			who = m.names[m.lastIndex] + " "
		}
		b.WriteString(seatStyle.Render("上家: ") + who + renderCards(m.lastList))
		if m.lastType != "" {
			b.WriteString(infoStyle.Render(" [" + m.lastType + "]"))
		}
		b.WriteString("\n")
	}

	b.WriteString(seatStyle.Render("手牌: ") + renderCards(m.myCards) + "\n")

	switch m.state {
	case protocol.StateMarking:
		b.WriteString(turnStyle.Render("请叫分 (0-3)") + "\n")
	case protocol.StatePlaying:
		b.WriteString(turnStyle.Render("轮到你出牌，可 pass") + "\n")
	case protocol.StateFree:
		b.WriteString(turnStyle.Render("任意牌，必须出牌") + "\n")
	default:
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.logViewport.View())
	b.WriteString("\n\n")
	b.WriteString(m.input.View())

	return b.String()
}

func renderCards(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = styleCard(n)
	}
	return strings.Join(parts, " ")
}
