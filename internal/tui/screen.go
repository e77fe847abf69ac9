package tui

import (
	"errors"
	"sync"

	"github.com/OmChillure/modern-chat/internal/chat"
)

var errNodeGone = errors.New("node is no longer shown")

// Screen is the chat.Display of the TUI. It keeps the shown nodes and lets the program know when they
// change; the bubbletea model draws from it.
type Screen struct {
	mu     sync.Mutex
	seq    int
	nodes  []screenNode
	scroll bool
	notify func()
}

type screenNode struct {
	seq  int
	node chat.Node
}

// NewScreen creates an empty Screen.
func NewScreen() *Screen {
	return &Screen{}
}

// SetNotify registers the function called after every change. It must not block.
func (s *Screen) SetNotify(fn func()) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// Replace implements chat.Display.
func (s *Screen) Replace(nodes []chat.Node) {
	s.mu.Lock()
	s.nodes = s.nodes[:0]
	for _, n := range nodes {
		s.seq++
		s.nodes = append(s.nodes, screenNode{seq: s.seq, node: n})
	}
	s.mu.Unlock()

	s.changed()
}

// Append implements chat.Display.
func (s *Screen) Append(node chat.Node) func() error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.nodes = append(s.nodes, screenNode{seq: seq, node: node})
	s.mu.Unlock()

	s.changed()

	return func() error {
		s.mu.Lock()
		removed := false
		for i, n := range s.nodes {
			if n.seq == seq {
				s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
				removed = true
				break
			}
		}
		s.mu.Unlock()

		if !removed {
			return errNodeGone
		}
		s.changed()
		return nil
	}
}

// ScrollToBottom implements chat.Display.
func (s *Screen) ScrollToBottom() {
	s.mu.Lock()
	s.scroll = true
	s.mu.Unlock()

	s.changed()
}

// Snapshot returns the shown nodes and whether a scroll to the bottom was requested since the last call.
func (s *Screen) Snapshot() ([]chat.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make([]chat.Node, len(s.nodes))
	for i, n := range s.nodes {
		nodes[i] = n.node
	}
	scroll := s.scroll
	s.scroll = false
	return nodes, scroll
}

func (s *Screen) changed() {
	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
}
