package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iksnae/dealerchat/internal"
	"github.com/iksnae/dealerchat/internal/view"
)

const (
	defaultWindowWidth  = 100
	defaultWindowHeight = 40
	inputCharLimit      = 2000
	chromeHeight        = 5
	minContentHeight    = 5
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

const helpText = `Commands:
  /new                 start a new conversation
  /sessions            list conversations
  /switch <n|id>       open a conversation by number or id prefix
  /rename <name>       rename the current conversation
  /delete              delete the current conversation
  /book [time]         book a test drive slot, or list the offered slots
  /help                show this help
  /quit                leave`

type (
	// storeChangedMsg reports a store mutation for one session
	storeChangedMsg struct{ id string }
	// submitDoneMsg is returned once a submitted query finished streaming
	submitDoneMsg struct{ accepted bool }
)

// Notifier forwards store mutations to a running program. Pass Notify to
// internal.WithObserver before the program exists and Attach it afterwards.
type Notifier struct {
	mu      sync.Mutex
	program *tea.Program
}

// Attach routes later notifications to p
func (n *Notifier) Attach(p *tea.Program) {
	n.mu.Lock()
	n.program = p
	n.mu.Unlock()
}

// Notify is the store observer
func (n *Notifier) Notify(sessionID string) {
	n.mu.Lock()
	p := n.program
	n.mu.Unlock()
	if p != nil {
		p.Send(storeChangedMsg{id: sessionID})
	}
}

// Model is the chat screen
type Model struct {
	ctx      context.Context
	store    *internal.SessionStore
	renderer *view.Renderer

	input    textinput.Model
	content  viewport.Model
	spinner  spinner.Model
	status   string
	errText  string
	overlay  string
	quitting bool

	width  int
	height int
}

// New creates the chat model for an already loaded store
func New(ctx context.Context, store *internal.SessionStore, renderer *view.Renderer) Model {
	input := textinput.New()
	input.Placeholder = "Ask about test drives, dealerships, the weather..."
	input.Focus()
	input.CharLimit = inputCharLimit
	input.Width = defaultWindowWidth - 3
	input.Prompt = ""

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = dimStyle

	m := Model{
		ctx:      ctx,
		store:    store,
		renderer: renderer,
		input:    input,
		content:  viewport.New(defaultWindowWidth, defaultWindowHeight-chromeHeight),
		spinner:  sp,
		width:    defaultWindowWidth,
		height:   defaultWindowHeight,
	}
	m.refresh()
	return m
}

// Run starts the program and blocks until the user quits
func Run(ctx context.Context, store *internal.SessionStore, renderer *view.Renderer, notifier *Notifier) error {
	program := tea.NewProgram(New(ctx, store, renderer), tea.WithAltScreen(), tea.WithContext(ctx))
	notifier.Attach(program)
	defer notifier.Attach(nil)

	_, err := program.Run()
	return err
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.store.IsLoading(m.store.CurrentID()) {
			m.refresh()
		}

	case storeChangedMsg:
		if msg.id == m.store.CurrentID() {
			m.refresh()
		}

	case submitDoneMsg:
		if !msg.accepted {
			m.status = "Wait for the current reply to finish"
		}
		m.refresh()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		return tea.Quit, true

	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		m.errText = ""
		m.status = ""
		m.overlay = ""
		if text == "" {
			m.refresh()
			return nil, true
		}
		if strings.HasPrefix(text, "/") {
			cmd := m.runCommand(text)
			m.refresh()
			return cmd, true
		}
		return m.submit(text), true

	case tea.KeyUp:
		m.content.LineUp(1)
		return nil, true
	case tea.KeyDown:
		m.content.LineDown(1)
		return nil, true
	case tea.KeyPgUp:
		m.content.ViewUp()
		return nil, true
	case tea.KeyPgDown:
		m.content.ViewDown()
		return nil, true
	}
	return nil, false
}

// submit sends text on a background command. The store blocks until the
// stream ends and reports progress through the observer.
func (m *Model) submit(text string) tea.Cmd {
	if m.store.IsLoading(m.store.CurrentID()) {
		m.status = "Wait for the current reply to finish"
		return nil
	}
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		return submitDoneMsg{accepted: store.Submit(ctx, text)}
	}
}

func (m *Model) confirmSlot(slot string) tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		return submitDoneMsg{accepted: store.ConfirmSlot(ctx, slot)}
	}
}

func (m *Model) runCommand(line string) tea.Cmd {
	fields := strings.Fields(line)
	name, rest := fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch name {
	case "/quit", "/exit":
		m.quitting = true
		return tea.Quit

	case "/help":
		m.overlay = helpText

	case "/new":
		m.store.CreateSession()
		m.status = "Started a new conversation"

	case "/sessions":
		m.overlay = m.sessionList()

	case "/switch":
		id, err := m.resolve(rest)
		if err != nil {
			m.errText = err.Error()
			return nil
		}
		m.store.SwitchSession(id)

	case "/rename":
		if rest == "" {
			m.errText = "usage: /rename <name>"
			return nil
		}
		if err := m.store.RenameSession(m.store.CurrentID(), rest); err != nil {
			m.errText = err.Error()
		}

	case "/delete":
		if err := m.store.DeleteSession(m.store.CurrentID()); err != nil {
			m.errText = err.Error()
		}

	case "/book":
		if rest != "" {
			return m.confirmSlot(rest)
		}
		slots := m.renderer.Slots(m.store.Messages(m.store.CurrentID()))
		if len(slots) == 0 {
			m.errText = "No appointment slots offered in this conversation yet"
			return nil
		}
		m.status = "Offered slots: " + strings.Join(slots, ", ") + " (use /book <time>)"

	default:
		m.errText = fmt.Sprintf("unknown command %s, try /help", name)
	}
	return nil
}

// resolve maps a 1-based list position or an id prefix to a session id
func (m *Model) resolve(arg string) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("usage: /switch <n|id>")
	}
	sessions := m.store.Sessions()
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(sessions) {
			return "", fmt.Errorf("no conversation number %d", n)
		}
		return sessions[n-1].ID, nil
	}

	var match string
	for _, s := range sessions {
		if strings.HasPrefix(s.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("id prefix %q is ambiguous", arg)
			}
			match = s.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no conversation matches %q", arg)
	}
	return match, nil
}

func (m *Model) sessionList() string {
	current := m.store.CurrentID()
	var b strings.Builder
	b.WriteString("Conversations:\n")
	for i, s := range m.store.Sessions() {
		line := fmt.Sprintf("%3d  %-24s %3d msgs  %s", i+1, view.Truncate(s.Name, 24), len(s.Messages), s.ID[:min(8, len(s.ID))])
		if s.ID == current {
			line = activeStyle.Render(line + "  ●")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	contentHeight := height - chromeHeight
	if contentHeight < minContentHeight {
		contentHeight = minContentHeight
	}
	m.content.Width = width
	m.content.Height = contentHeight
	m.input.Width = width - 3
	m.renderer.SetWidth(width)
	m.refresh()
}

// refresh re-renders the current session into the viewport
func (m *Model) refresh() {
	if m.overlay != "" {
		m.content.SetContent(m.overlay)
		m.content.GotoTop()
		return
	}

	session := m.store.Current()
	if session == nil {
		m.content.SetContent("")
		return
	}

	parts := make([]string, 0, len(session.Messages)+1)
	for _, msg := range session.Messages {
		parts = append(parts, m.renderer.Message(0, 0, msg))
	}
	if m.store.IsLoading(session.ID) {
		parts = append(parts, m.spinner.View()+dimStyle.Render(" Thinking..."))
	}
	if len(parts) == 0 {
		parts = append(parts, dimStyle.Render("No messages yet. Type a question below, or /help for commands."))
	}

	m.content.SetContent(strings.Join(parts, "\n\n"))
	m.content.GotoBottom()
}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := dimStyle.Render("dealerchat")
	if session := m.store.Current(); session != nil {
		header = titleStyle.Render(session.Name) + dimStyle.Render(fmt.Sprintf("  %d of %d", m.position(session.ID), len(m.store.Sessions())))
	}

	footer := dimStyle.Render("Enter send • ↑↓ scroll • /help commands • Esc quit")
	switch {
	case m.errText != "":
		footer = errorStyle.Render(m.errText)
	case m.status != "":
		footer = dimStyle.Render(m.status)
	}

	inputView := promptStyle.Render("> ") + m.input.View()
	return lipgloss.JoinVertical(lipgloss.Left, header, "", m.content.View(), inputView, footer)
}

func (m Model) position(id string) int {
	for i, s := range m.store.Sessions() {
		if s.ID == id {
			return i + 1
		}
	}
	return 0
}
