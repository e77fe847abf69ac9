package chat

import (
	"time"

	"github.com/OmChillure/modern-chat/internal/models"
)

// Node classes, one per role.
const (
	ClassUser      = "message me"
	ClassAssistant = "message ai"
)

const (
	typingLabel       = "typing…"
	parsingErrorLabel = "❌ Parsing Error"
)

// Node describes one bubble of the display: a message, or a transient placeholder that is not part of the
// message list.
type Node struct {
	// Key is the ID of the rendered message; empty for transient nodes.
	Key       string
	Role      models.Role
	Class     string
	Text      string
	TimeLabel string
	// Typing marks the "assistant is composing" placeholder, drawn as three animated dots.
	Typing bool
}

// Display is the side-effecting end of rendering: something that shows nodes to the user.
type Display interface {
	// Replace discards everything shown, transient nodes included, and shows nodes instead.
	Replace(nodes []Node)
	// Append adds node after everything shown. The returned function removes it again.
	Append(node Node) (remove func() error)
	// ScrollToBottom pins the view to the newest node.
	ScrollToBottom()
}

// Renderer turns messages into display nodes. It has no side effects.
type Renderer struct {
	// Location is the zone time labels are formatted in; nil means time.Local.
	Location *time.Location
}

// Tree returns one node per message, in order.
func (r Renderer) Tree(messages []models.Message) []Node {
	nodes := make([]Node, len(messages))
	for i, msg := range messages {
		nodes[i] = r.Node(msg)
	}
	return nodes
}

// Node returns the node for a single message.
func (r Renderer) Node(msg models.Message) Node {
	return Node{
		Key:       msg.ID,
		Role:      msg.Role,
		Class:     classFor(msg.Role),
		Text:      msg.Text,
		TimeLabel: r.FormatTime(msg.Time),
	}
}

// FormatTime formats epoch milliseconds as a two-digit hour and minute.
func (r Renderer) FormatTime(ms int64) string {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc).Format("15:04")
}

// TypingNode returns the transient placeholder shown while a reply is awaited.
func (r Renderer) TypingNode() Node {
	return Node{
		Role:      models.RoleAssistant,
		Class:     ClassAssistant,
		TimeLabel: typingLabel,
		Typing:    true,
	}
}

// ParsingErrorNode returns the transient bubble shown when a received reply can't be handled.
func (r Renderer) ParsingErrorNode(now time.Time) Node {
	return Node{
		Role:      models.RoleAssistant,
		Class:     ClassAssistant,
		Text:      parsingErrorLabel,
		TimeLabel: r.FormatTime(now.UnixMilli()),
	}
}

func classFor(role models.Role) string {
	if role == models.RoleUser {
		return ClassUser
	}
	return ClassAssistant
}

// View couples a Renderer with a Display.
type View struct {
	renderer Renderer
	display  Display
}

// NewView creates a View drawing on display.
func NewView(renderer Renderer, display Display) View {
	return View{renderer: renderer, display: display}
}

// Render replaces the whole display with messages, optionally scrolling to the newest one.
func (v View) Render(messages []models.Message, scroll bool) {
	v.display.Replace(v.renderer.Tree(messages))
	if scroll {
		v.display.ScrollToBottom()
	}
}

// ShowTyping appends the typing placeholder and scrolls to it. The caller removes it with the returned
// function.
func (v View) ShowTyping() func() error {
	remove := v.display.Append(v.renderer.TypingNode())
	v.display.ScrollToBottom()
	return remove
}

// ShowParsingError appends the transient parsing-error bubble.
func (v View) ShowParsingError(now time.Time) {
	v.display.Append(v.renderer.ParsingErrorNode(now))
	v.display.ScrollToBottom()
}
