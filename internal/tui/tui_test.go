package tui_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OmChillure/modern-chat/internal/chat"
	"github.com/OmChillure/modern-chat/internal/models"
	"github.com/OmChillure/modern-chat/internal/services"
	"github.com/OmChillure/modern-chat/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r.Body); err != nil {
			t.Errorf("read body: %v", err)
		}
		_, _ = w.Write([]byte("echo"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newApp(url string, display chat.Display, input chat.Input) *chat.App {
	history := chat.NewHistory(services.NewMemory(0), "test", zerolog.Nop())
	return chat.NewApp(
		history,
		chat.NewView(chat.Renderer{Location: time.UTC}, display),
		input,
		chat.NewClient(url, nil),
		chat.Options{},
		zerolog.Nop(),
	)
}

func TestScreen(t *testing.T) {
	screen := tui.NewScreen()

	var mu sync.Mutex
	notified := 0
	screen.SetNotify(func() {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	screen.Replace([]chat.Node{{Key: "a", Text: "one"}, {Key: "b", Text: "two"}})
	remove := screen.Append(chat.Node{Typing: true, TimeLabel: "typing…"})
	screen.ScrollToBottom()

	nodes, scroll := screen.Snapshot()
	if len(nodes) != 3 || !nodes[2].Typing {
		t.Fatalf("nodes = %+v", nodes)
	}
	if !scroll {
		t.Error("scroll request lost")
	}
	if _, scroll := screen.Snapshot(); scroll {
		t.Error("scroll request reported twice")
	}

	if err := remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := remove(); err == nil {
		t.Error("second remove succeeded")
	}

	remove = screen.Append(chat.Node{Typing: true})
	screen.Replace(nil)
	if err := remove(); err == nil {
		t.Error("remove after Replace succeeded")
	}

	mu.Lock()
	defer mu.Unlock()
	if notified != 6 {
		t.Errorf("notified %d times, want 6", notified)
	}
}

func TestTranscript(t *testing.T) {
	styles := tui.DefaultStyles(lipgloss.NewRenderer(&bytes.Buffer{}))

	out := styles.Transcript([]chat.Node{
		{Key: "1", Role: models.RoleUser, Text: "hello", TimeLabel: "09:05"},
		{Role: models.RoleAssistant, TimeLabel: "typing…", Typing: true},
	}, 60, "●∙∙")

	for _, want := range []string{"hello", "09:05", "●∙∙", "typing…"} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript misses %q:\n%s", want, out)
		}
	}
}

func TestModelSendsOnEnter(t *testing.T) {
	srv := echoServer(t)

	screen := tui.NewScreen()
	editor := tui.NewEditor()
	app := newApp(srv.URL, screen, editor)

	var m tea.Model = tui.NewModel(context.Background(), app, screen, editor)
	m.Init()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("line one")})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("line two")})
	if got := editor.Value(); got != "line one\nline two" {
		t.Fatalf("editor = %q", got)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app.Wait()

	if editor.Value() != "" {
		t.Error("editor not cleared")
	}
	msgs := app.Messages()
	if len(msgs) != 2 || msgs[0].Text != "line one\nline two" || msgs[1].Text != "echo" {
		t.Fatalf("messages = %+v", msgs)
	}

	m, _ = m.Update(tui.RedrawMsg{})
	if view := m.View(); !strings.Contains(view, "echo") {
		t.Errorf("view misses reply:\n%s", view)
	}
}

func TestPlainPrintsOnce(t *testing.T) {
	var buf bytes.Buffer
	p := tui.NewPlain(&buf)

	first := chat.Node{Key: "1", Role: models.RoleUser, Text: "hi", TimeLabel: "10:00"}
	p.Replace([]chat.Node{first})
	p.Replace([]chat.Node{first, {Key: "2", Role: models.RoleAssistant, Text: "two\nlines", TimeLabel: "10:01"}})
	if err := p.Append(chat.Node{Typing: true, TimeLabel: "typing…"})(); err != nil {
		t.Fatalf("remove: %v", err)
	}

	want := "[10:00] you: hi\n[10:01] assistant: two\n    lines\n... typing…\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRunPlain(t *testing.T) {
	srv := echoServer(t)

	var out bytes.Buffer
	draft := &tui.Draft{}
	app := newApp(srv.URL, tui.NewPlain(&out), draft)

	in := strings.NewReader("first\\\n   \nsecond\n\n/send\n/quit\nignored\n")
	if err := tui.RunPlain(context.Background(), app, draft, in); err != nil {
		t.Fatalf("RunPlain: %v", err)
	}

	msgs := app.Messages()
	if len(msgs) != 2 {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Text != "first\nsecond" || msgs[1].Text != "echo" {
		t.Errorf("messages = %+v", msgs)
	}
	if got := draft.Value(); got != "" {
		t.Errorf("draft = %q, want it empty", got)
	}
}
