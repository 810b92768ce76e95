// Chat relay TUI client.
//
// Screens
// -------
//   stateLogin – centered username form
//   stateChat  – sidebar with the online roster, a viewport for the current
//                conversation (public feed or one private thread), and an
//                input footer
//
// Concurrency
// -----------
//   A single goroutine reads text frames from the websocket and forwards
//   raw bytes to the frames channel.  The Bubbletea event loop consumes one
//   frame at a time via waitForFrame (a tea.Cmd), immediately queuing the
//   next read after each frame is processed.  All writes happen on the
//   event-loop goroutine, so the connection never sees concurrent writers.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"chatrelay/internal/protocol"
)

// ---------------------------------------------------------------------------
// Styles
// ---------------------------------------------------------------------------

var (
	purple = lipgloss.Color("99")
	cyan   = lipgloss.Color("86")
	green  = lipgloss.Color("82")
	red    = lipgloss.Color("196")
	yellow = lipgloss.Color("220")
	gray   = lipgloss.Color("241")
	white  = lipgloss.Color("255")
	orange = lipgloss.Color("214")
	blue   = lipgloss.Color("75")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(purple).
			Foreground(white).
			Padding(0, 1)

	footerBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), true, false, false, false).
				BorderForeground(gray).
				Padding(0, 1)

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(gray).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(purple).
			Padding(0, 2)

	hintStyle = lipgloss.NewStyle().
			Foreground(gray).
			Italic(true)

	activeConvStyle  = lipgloss.NewStyle().Bold(true).Foreground(cyan)
	unreadBadgeStyle = lipgloss.NewStyle().Bold(true).Foreground(green)
	errorStyle       = lipgloss.NewStyle().Foreground(red)
	sysStyle         = lipgloss.NewStyle().Foreground(yellow).Italic(true)
	tsStyle          = lipgloss.NewStyle().Foreground(gray)
	myNameStyle      = lipgloss.NewStyle().Bold(true).Foreground(orange)
	peerStyle        = lipgloss.NewStyle().Bold(true).Foreground(blue)
)

const sidebarWidth = 22

// ---------------------------------------------------------------------------
// Bubbletea message types
// ---------------------------------------------------------------------------

type serverFrameMsg []byte     // a raw frame arrived from the server
type disconnectedMsg struct{}  // server closed the connection

// ---------------------------------------------------------------------------
// Application state
// ---------------------------------------------------------------------------

type appState int

const (
	stateLogin appState = iota
	stateChat
)

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

type model struct {
	conn   *websocket.Conn
	frames chan []byte // goroutine → bubbletea bridge

	state appState
	me    string // username confirmed by admission

	// Login
	nameField textinput.Model
	statusMsg string
	joining   bool // username sent, waiting for the roster snapshot

	// Chat
	ready         bool
	viewport      viewport.Model
	chatInput     textinput.Model
	conversations map[string][]string // bucket key → rendered lines
	currentConv   string              // "public" or a peer username
	onlineUsers   []string
	unread        map[string]int

	width, height int
}

func newModel(conn *websocket.Conn, frames chan []byte) model {
	nf := textinput.New()
	nf.Placeholder = "username"
	nf.Focus()
	nf.CharLimit = protocol.MaxUsernameLen
	nf.Width = 32

	ci := textinput.New()
	ci.Placeholder = "Type a message…"
	ci.CharLimit = 500

	return model{
		conn:          conn,
		frames:        frames,
		state:         stateLogin,
		nameField:     nf,
		chatInput:     ci,
		conversations: map[string][]string{protocol.PublicConversation: {}},
		currentConv:   protocol.PublicConversation,
		unread:        make(map[string]int),
	}
}

// ---------------------------------------------------------------------------
// Tea interface – Init
// ---------------------------------------------------------------------------

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForFrame(m.frames))
}

// ---------------------------------------------------------------------------
// Tea interface – Update
// ---------------------------------------------------------------------------

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(m.vpWidth(), m.vpHeight())
			m.ready = true
		} else {
			m.viewport.Width = m.vpWidth()
			m.viewport.Height = m.vpHeight()
		}
		m.chatInput.Width = msg.Width - 4
		m.refreshViewport()
		return m, nil

	case serverFrameMsg:
		m = m.handleServerFrame([]byte(msg))
		return m, waitForFrame(m.frames)

	case disconnectedMsg:
		if m.state == stateLogin && m.statusMsg != "" {
			// The server rejected the join and closed the connection.
			fmt.Fprintln(os.Stderr, m.statusMsg)
		}
		return m, tea.Quit

	case tea.KeyMsg:
		switch m.state {
		case stateLogin:
			return m.handleLoginKey(msg)
		case stateChat:
			return m.handleChatKey(msg)
		}
	}
	return m, nil
}

// vpHeight returns the number of lines available for the chat viewport.
func (m model) vpHeight() int {
	// header (1) + footer border (1) + footer input (1) = 3 lines reserved
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

func (m model) vpWidth() int {
	w := m.width - sidebarWidth - 3
	if w < 10 {
		w = 10
	}
	return w
}

// ---------------------------------------------------------------------------
// Key handlers
// ---------------------------------------------------------------------------

func (m model) handleLoginKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEnter:
		name := strings.TrimSpace(m.nameField.Value())
		if name == "" {
			m.statusMsg = "a username is required"
			return m, nil
		}
		if m.joining {
			return m, nil
		}
		// The connection is already open (the dial succeeded before the
		// program started), so the join frame goes out right away — no
		// settle timer.
		if err := m.conn.WriteMessage(websocket.TextMessage, []byte(name)); err != nil {
			m.statusMsg = fmt.Sprintf("send username: %v", err)
			return m, nil
		}
		m.me = name
		m.joining = true
		m.statusMsg = "Joining…"
		return m, nil
	}

	var cmd tea.Cmd
	m.nameField, cmd = m.nameField.Update(msg)
	return m, cmd
}

func (m model) handleChatKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlQ:
		m.conn.WriteMessage(websocket.TextMessage, []byte(protocol.QuitCommand))
		return m, tea.Quit

	case tea.KeyTab:
		m = m.cycleConversation(1)
		return m, nil

	case tea.KeyShiftTab:
		m = m.cycleConversation(-1)
		return m, nil

	case tea.KeyEsc:
		m = m.switchConversation(protocol.PublicConversation)
		return m, nil

	case tea.KeyEnter:
		body := strings.TrimSpace(m.chatInput.Value())
		if body == "" {
			return m, nil
		}
		target := ""
		if m.currentConv != protocol.PublicConversation {
			target = m.currentConv
		}
		m.sendChat(body, target)
		// The relay never echoes a message back to its sender, so the
		// local copy is appended here.
		m.appendLine(m.currentConv, m.renderChatLine(m.me, body))
		m.chatInput.Reset()
		return m, nil

	case tea.KeyPgUp:
		m.viewport.HalfViewUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

// sendChat writes a routed-message envelope.  An empty target means public.
func (m model) sendChat(body, target string) {
	data, err := json.Marshal(protocol.Message{
		Type:   protocol.TypeMessage,
		Body:   body,
		Target: target,
	})
	if err != nil {
		return
	}
	m.conn.WriteMessage(websocket.TextMessage, data)
}

// conversationList is the sidebar order: the public feed first, then every
// online peer.
func (m model) conversationList() []string {
	out := make([]string, 0, len(m.onlineUsers)+1)
	out = append(out, protocol.PublicConversation)
	out = append(out, m.onlineUsers...)
	return out
}

func (m model) cycleConversation(dir int) model {
	convs := m.conversationList()
	idx := 0
	for i, c := range convs {
		if c == m.currentConv {
			idx = i
			break
		}
	}
	idx = (idx + dir + len(convs)) % len(convs)
	return m.switchConversation(convs[idx])
}

func (m model) switchConversation(key string) model {
	m.currentConv = key
	delete(m.unread, key)
	m.refreshViewport()
	return m
}

// ---------------------------------------------------------------------------
// Server frame handler
// ---------------------------------------------------------------------------

func (m model) handleServerFrame(data []byte) model {
	frame := protocol.ParseFrame(data)

	switch frame.Kind {

	case protocol.FrameUserList:
		m.onlineUsers = frame.Users
		if m.state == stateLogin {
			// The roster snapshot is the admission signal.
			m.state = stateChat
			m.statusMsg = ""
			m.chatInput.Focus()
		}
		// Keep the current thread even if its peer went offline; sending
		// into it will just earn a not-found notice from the server.
		return m

	case protocol.FrameSystem:
		if m.state == stateLogin {
			// Rejection notice (duplicate or invalid username).
			m.joining = false
			m.statusMsg = frame.Body
			return m
		}
		m.appendLine(protocol.PublicConversation, sysStyle.Render("⚡ "+frame.Body))
		return m

	default:
		key := protocol.ConversationKey(frame)
		var line string
		switch {
		case frame.Sender == protocol.ServerSender:
			line = sysStyle.Render("⚡ " + frame.Body)
		case frame.Sender != "":
			line = m.renderChatLine(frame.Sender, frame.Body)
		default:
			line = frame.Body
		}
		m.appendLine(key, line)
		return m
	}
}

// renderChatLine renders one timestamped chat line.
func (m model) renderChatLine(sender, body string) string {
	ts := tsStyle.Render("[" + time.Now().Format("15:04:05") + "]")
	var name string
	if sender == m.me {
		name = myNameStyle.Render(sender)
	} else {
		name = peerStyle.Render(sender)
	}
	return ts + " " + name + ": " + body
}

// appendLine adds a rendered line to a conversation bucket and, when that
// bucket is on screen, scrolls the viewport; otherwise it bumps the unread
// counter shown in the sidebar.
func (m *model) appendLine(key, line string) {
	m.conversations[key] = append(m.conversations[key], line)
	if key == m.currentConv {
		m.refreshViewport()
	} else {
		m.unread[key]++
	}
}

func (m *model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.conversations[m.currentConv], "\n"))
	m.viewport.GotoBottom()
}

// ---------------------------------------------------------------------------
// Tea interface – View
// ---------------------------------------------------------------------------

func (m model) View() string {
	switch m.state {
	case stateLogin:
		return m.viewLogin()
	case stateChat:
		return m.viewChat()
	}
	return ""
}

func (m model) viewLogin() string {
	if m.width == 0 {
		return "\n  Connecting to server…"
	}

	title := titleStyle.Render("  Chat Relay  ")

	status := ""
	if m.statusMsg != "" {
		if m.joining {
			status = hintStyle.Render(m.statusMsg)
		} else {
			status = errorStyle.Render(m.statusMsg)
		}
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		"Username  "+m.nameField.View(),
		"",
		hintStyle.Render("Enter: join   Ctrl+C: quit"),
		"",
		status,
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}

func (m model) viewChat() string {
	if !m.ready {
		return "\n  Connecting…"
	}

	convName := "Public"
	if m.currentConv != protocol.PublicConversation {
		convName = "Private · " + m.currentConv
	}
	hdr := headerStyle.
		Width(m.width).
		Render(fmt.Sprintf(" Chat Relay  ·  %s  ·  %s  ·  %d online  ·  Tab: switch  Ctrl+C: quit",
			m.me, convName, len(m.onlineUsers)))

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.viewSidebar(), m.viewport.View())

	footer := footerBorderStyle.
		Width(m.width - 2).
		Render(m.chatInput.View())

	return lipgloss.JoinVertical(lipgloss.Left, hdr, body, footer)
}

// viewSidebar renders the conversation list: the public feed plus every
// online user, with unread badges.
func (m model) viewSidebar() string {
	lines := make([]string, 0, len(m.onlineUsers)+2)
	lines = append(lines, hintStyle.Render("Conversations"))

	render := func(key, label string) string {
		if n := m.unread[key]; n > 0 {
			label += unreadBadgeStyle.Render(fmt.Sprintf(" (%d)", n))
		}
		if key == m.currentConv {
			return activeConvStyle.Render("▸ ") + activeConvStyle.Render(label)
		}
		return "  " + label
	}

	lines = append(lines, render(protocol.PublicConversation, "Public"))
	for _, u := range m.onlineUsers {
		lines = append(lines, render(u, u))
	}

	return sidebarStyle.
		Width(sidebarWidth).
		Height(m.vpHeight()).
		Render(strings.Join(lines, "\n"))
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// waitForFrame returns a tea.Cmd that blocks until the next frame arrives.
// When the channel closes (server disconnected) it returns disconnectedMsg.
func waitForFrame(ch <-chan []byte) tea.Cmd {
	return func() tea.Msg {
		data, ok := <-ch
		if !ok {
			return disconnectedMsg{}
		}
		return serverFrameMsg(data)
	}
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

var serverAddr string

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatrelay-client",
		Short: "Terminal client for the chat relay",
		RunE:  runClient,
	}
	rootCmd.Flags().StringVar(&serverAddr, "addr", "localhost:5000", "relay server host:port")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	url := "ws://" + serverAddr + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer conn.Close()

	// frames bridges the websocket reader goroutine and the event loop.
	frames := make(chan []byte, 64)

	go func() {
		defer close(frames)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- data
		}
	}()

	p := tea.NewProgram(
		newModel(conn, frames),
		tea.WithAltScreen(),       // use the alternate screen buffer
		tea.WithMouseCellMotion(), // enable mouse wheel scrolling
	)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
