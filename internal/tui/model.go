package tui

import (
	"context"
	"strings"

	"github.com/OmChillure/modern-chat/internal/chat"
	"github.com/OmChillure/modern-chat/internal/models"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RedrawMsg tells the model that the Screen changed.
type RedrawMsg struct{}

// Editor is the chat.Input backed by the TUI text area.
type Editor struct {
	ta *textarea.Model
}

// NewEditor creates the multi-line input area.
func NewEditor() *Editor {
	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.ShowLineNumbers = false
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(3)
	// Enter is handled by the model.
	ta.KeyMap.InsertNewline.SetEnabled(false)
	return &Editor{ta: &ta}
}

// Value implements chat.Input.
func (e *Editor) Value() string {
	return e.ta.Value()
}

// Clear implements chat.Input.
func (e *Editor) Clear() {
	e.ta.Reset()
}

// Model is the bubbletea model of the chat client.
type Model struct {
	ctx    context.Context
	app    *chat.App
	screen *Screen
	editor *Editor

	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   Styles

	width int
	ready bool
}

// NewModel wires the app, its Screen and its Editor into a bubbletea model.
func NewModel(ctx context.Context, app *chat.App, screen *Screen, editor *Editor) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Points))

	return Model{
		ctx:      ctx,
		app:      app,
		screen:   screen,
		editor:   editor,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		viewport: viewport.New(80, 20),
		spinner:  sp,
		styles:   DefaultStyles(lipgloss.DefaultRenderer()),
		width:    80,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.editor.ta.Focus(), textarea.Blink, m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.editor.ta.SetWidth(msg.Width)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-m.editor.ta.Height()-2, 1)
		m.ready = true
		m.refresh(true)
		return m, nil

	case RedrawMsg:
		m.refresh(false)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh(false)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Send), key.Matches(msg, m.keys.SendAlt):
			m.app.Submit(m.ctx)
			m.refresh(false)
			return m, nil
		case key.Matches(msg, m.keys.Newline):
			m.editor.ta.InsertString("\n")
			return m, nil
		case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	ta, cmd := m.editor.ta.Update(msg)
	*m.editor.ta = ta
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	return m.viewport.View() + "\n" + m.editor.ta.View() + "\n" + m.help.ShortHelpView(m.keys.ShortHelp())
}

func (m *Model) refresh(force bool) {
	nodes, scroll := m.screen.Snapshot()
	m.viewport.SetContent(m.styles.Transcript(nodes, m.width, m.spinner.View()))
	if scroll || force {
		m.viewport.GotoBottom()
	}
}

// Run starts the TUI and blocks until the user quits.
func Run(ctx context.Context, app *chat.App, screen *Screen, editor *Editor) error {
	p := tea.NewProgram(NewModel(ctx, app, screen, editor), tea.WithAltScreen(), tea.WithContext(ctx))
	// Send blocks until the event loop reads the message, and changes can happen inside Update.
	screen.SetNotify(func() { go p.Send(RedrawMsg{}) })
	defer screen.SetNotify(nil)

	_, err := p.Run()
	return err
}

// Styles holds the lipgloss styles of a transcript.
type Styles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	Time      lipgloss.Style
	Label     lipgloss.Style
}

// DefaultStyles builds the styles for a renderer.
func DefaultStyles(r *lipgloss.Renderer) Styles {
	bubble := r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	return Styles{
		User:      bubble.BorderForeground(lipgloss.Color("63")),
		Assistant: bubble.BorderForeground(lipgloss.Color("240")),
		Time:      r.NewStyle().Faint(true),
		Label:     r.NewStyle().Bold(true),
	}
}

// Transcript lays out nodes as chat bubbles, user messages on the right. typing is drawn in place of the
// text of a typing placeholder.
func (s Styles) Transcript(nodes []chat.Node, width int, typing string) string {
	maxBubble := max(width*3/4, 10)

	var sb strings.Builder
	for i, n := range nodes {
		text := n.Text
		if n.Typing {
			text = typing
		}

		body := text
		if n.TimeLabel != "" {
			body += "\n" + s.Time.Render(n.TimeLabel)
		}

		style := s.Assistant
		pos := lipgloss.Left
		if n.Role == models.RoleUser {
			style = s.User
			pos = lipgloss.Right
		}
		if lipgloss.Width(body)+4 > maxBubble {
			style = style.Width(maxBubble - 2)
		}

		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(lipgloss.PlaceHorizontal(width, pos, style.Render(body)))
	}
	return sb.String()
}
