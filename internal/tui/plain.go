package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/OmChillure/modern-chat/internal/chat"
	"github.com/OmChillure/modern-chat/internal/models"
	"github.com/charmbracelet/lipgloss"
)

// Plain is a line-oriented chat.Display for terminals without cursor control and for pipes. Messages are
// printed once, in the order they first appear.
type Plain struct {
	mu      sync.Mutex
	w       io.Writer
	styles  Styles
	printed map[string]bool
}

// NewPlain creates a Plain display writing to w.
func NewPlain(w io.Writer) *Plain {
	return &Plain{
		w:       w,
		styles:  DefaultStyles(lipgloss.NewRenderer(w)),
		printed: make(map[string]bool),
	}
}

// Replace implements chat.Display. Already printed messages are not repeated.
func (p *Plain) Replace(nodes []chat.Node) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, n := range nodes {
		if n.Key != "" && p.printed[n.Key] {
			continue
		}
		p.print(n)
	}
}

// Append implements chat.Display. Printed lines cannot be taken back, so removal is a no-op.
func (p *Plain) Append(node chat.Node) func() error {
	p.mu.Lock()
	p.print(node)
	p.mu.Unlock()

	return func() error { return nil }
}

// ScrollToBottom implements chat.Display.
func (p *Plain) ScrollToBottom() {}

func (p *Plain) print(n chat.Node) {
	if n.Key != "" {
		p.printed[n.Key] = true
	}

	if n.Typing {
		fmt.Fprintf(p.w, "... %s\n", n.TimeLabel)
		return
	}

	who := "assistant"
	if n.Role == models.RoleUser {
		who = "you"
	}
	label := p.styles.Label.Render(who + ":")
	text := strings.ReplaceAll(n.Text, "\n", "\n    ")
	if n.TimeLabel == "" {
		fmt.Fprintf(p.w, "%s %s\n", label, text)
		return
	}
	fmt.Fprintf(p.w, "%s %s %s\n", p.styles.Time.Render("["+n.TimeLabel+"]"), label, text)
}

// Draft is the chat.Input of line mode: lines accumulate until they are sent.
type Draft struct {
	mu    sync.Mutex
	lines []string
}

// Value implements chat.Input.
func (d *Draft) Value() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.Join(d.lines, "\n")
}

// Clear implements chat.Input.
func (d *Draft) Clear() {
	d.mu.Lock()
	d.lines = nil
	d.mu.Unlock()
}

func (d *Draft) add(line string) {
	d.mu.Lock()
	d.lines = append(d.lines, line)
	d.mu.Unlock()
}

// RunPlain reads lines from in and submits them through app. A line ending in a backslash continues the
// draft on the next line, "/send" submits the draft as is and "/quit" stops reading. Blank lines are
// ignored and leave the draft untouched. It waits for outstanding replies before returning.
func RunPlain(ctx context.Context, app *chat.App, draft *Draft, in io.Reader) error {
	defer app.Wait()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Text()
		switch {
		case line == "/quit":
			return nil
		case line == "/send":
			app.Submit(ctx)
		case strings.TrimSpace(line) == "":
		case strings.HasSuffix(line, `\`):
			draft.add(strings.TrimSuffix(line, `\`))
		default:
			draft.add(line)
			app.Submit(ctx)
		}
	}
	return scanner.Err()
}
