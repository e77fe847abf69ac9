package chat_test

import (
	"errors"
	"sync"

	"github.com/OmChillure/modern-chat/internal/chat"
)

type fakeDisplay struct {
	mu       sync.Mutex
	seq      int
	shown    []shownNode
	appended []chat.Node
	replaces int
	scrolls  int
	removed  int
}

type shownNode struct {
	seq  int
	node chat.Node
}

type fakeInput struct {
	mu      sync.Mutex
	value   string
	cleared int
}

func (d *fakeDisplay) Replace(nodes []chat.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.replaces++
	d.shown = d.shown[:0]
	for _, n := range nodes {
		d.seq++
		d.shown = append(d.shown, shownNode{seq: d.seq, node: n})
	}
}

func (d *fakeDisplay) Append(node chat.Node) func() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	seq := d.seq
	d.shown = append(d.shown, shownNode{seq: seq, node: node})
	d.appended = append(d.appended, node)

	return func() error {
		d.mu.Lock()
		defer d.mu.Unlock()

		for i, s := range d.shown {
			if s.seq == seq {
				d.shown = append(d.shown[:i], d.shown[i+1:]...)
				d.removed++
				return nil
			}
		}
		return errors.New("node is not shown")
	}
}

func (d *fakeDisplay) ScrollToBottom() {
	d.mu.Lock()
	d.scrolls++
	d.mu.Unlock()
}

func (d *fakeDisplay) nodes() []chat.Node {
	d.mu.Lock()
	defer d.mu.Unlock()

	nodes := make([]chat.Node, len(d.shown))
	for i, s := range d.shown {
		nodes[i] = s.node
	}
	return nodes
}

func (d *fakeDisplay) appendedNodes() []chat.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]chat.Node(nil), d.appended...)
}

func (i *fakeInput) Value() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.value
}

func (i *fakeInput) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.value = ""
	i.cleared++
}

func (i *fakeInput) set(v string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.value = v
}

// countingKV wraps a KV and counts writes.
type countingKV struct {
	chat.KV

	mu   sync.Mutex
	sets int
}

func (c *countingKV) Set(key string, value []byte) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.KV.Set(key, value)
}

func (c *countingKV) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}
