package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/OmChillure/modern-chat/internal/models"
	"github.com/rs/zerolog"
)

// Input is the text control the user types into.
type Input interface {
	Value() string
	Clear()
}

// Options tune the behavior of App.
type Options struct {
	// SerializeRequests sends reply requests one at a time in submission order, each waiting until the
	// previous one has finished. By default requests from consecutive submissions run independently and
	// may complete in any order.
	SerializeRequests bool
	// PersistStatusErrors persists the error reply synthesized for a non-success response status. By
	// default that reply is only appended and rendered.
	PersistStatusErrors bool
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// App owns the message list, its persistence and the display, and runs the submit/reply cycle. Appending a
// message, persisting the list and rendering it happen as one step, so replies completing concurrently
// never interleave halfway.
type App struct {
	store   *Store
	history History
	view    View
	input   Input
	sender  Sender
	opts    Options
	logger  zerolog.Logger

	// mu guards the append, persist, render sequence and every display call.
	mu sync.Mutex
	// tail is closed when the most recently queued reply request finishes. Only used with
	// Options.SerializeRequests; guarded by mu.
	tail    chan struct{}
	pending sync.WaitGroup
}

// NewApp hydrates the message list from history and renders it without scrolling.
func NewApp(
	history History,
	view View,
	input Input,
	sender Sender,
	opts Options,
	logger zerolog.Logger,
) *App {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	a := &App{
		store:   NewStore(history.Load()),
		history: history,
		view:    view,
		input:   input,
		sender:  sender,
		opts:    opts,
		logger:  logger.With().Str("module", "chat").Logger(),
	}

	a.mu.Lock()
	a.view.Render(a.store.All(), false)
	a.mu.Unlock()

	return a
}

// Messages returns a snapshot of the message list.
func (a *App) Messages() []models.Message {
	return a.store.All()
}

// Submit reads the input, and unless it is blank after trimming, appends it as a user message, persists,
// clears the input, renders and starts the reply request in the background. It reports whether a message
// was sent.
func (a *App) Submit(ctx context.Context) bool {
	text := strings.TrimSpace(a.input.Value())
	if text == "" {
		return false
	}

	me := models.NewMessage(models.RoleUser, text, a.opts.Now())

	a.mu.Lock()
	a.store.Append(me)
	a.persist()
	a.input.Clear()
	a.view.Render(a.store.All(), true)
	prev, done := a.enqueueLocked()
	a.mu.Unlock()

	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		if done != nil {
			defer close(done)
		}
		if prev != nil {
			<-prev
		}
		a.RequestReply(ctx, me)
	}()

	return true
}

// enqueueLocked takes a place in the reply queue when requests are serialized: the new request waits for
// prev and closes done when finished. Both are nil otherwise. The caller holds mu.
func (a *App) enqueueLocked() (prev, done chan struct{}) {
	if !a.opts.SerializeRequests {
		return nil, nil
	}
	prev = a.tail
	done = make(chan struct{})
	a.tail = done
	return prev, done
}

// Wait blocks until every reply request started by Submit has finished.
func (a *App) Wait() {
	a.pending.Wait()
}

// commitLocked appends msg, optionally persists the list, and renders scrolled to the bottom. The caller
// holds mu.
func (a *App) commitLocked(msg models.Message, persist bool) {
	a.store.Append(msg)
	if persist {
		a.persist()
	}
	a.view.Render(a.store.All(), true)
}

// persist saves the whole list. Failures such as an exceeded quota are logged and otherwise ignored. The
// caller holds mu.
func (a *App) persist() {
	if err := a.history.Save(a.store.All()); err != nil {
		a.logger.Warn().Err(err).Msg("failed to persist messages")
	}
}
