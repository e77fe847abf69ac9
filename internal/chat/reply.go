package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/OmChillure/modern-chat/internal/models"
)

// chunkSize bounds the single read taken from a reply body.
const chunkSize = 32 * 1024

// StatusError reports a response with a non-success status.
type StatusError struct {
	Code int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("Network response was not ok, status: %d", e.Code)
}

// ErrorText is the text of the assistant message standing in for a failed reply.
func ErrorText(err error) string {
	return fmt.Sprintf("Error: Failed to receive a response from the server. (%s)", err)
}

// RequestReply sends userMessage to the backend and turns the outcome into exactly one assistant message,
// or a transient parsing-error bubble:
//
//   - the typing placeholder is shown before the request is issued;
//   - a non-success status appends an error reply naming the status, persisted only with
//     Options.PersistStatusErrors;
//   - a success status takes the first chunk of the body, decoded as text, as the reply and persists it;
//   - a transport failure, before or while reading the body, appends and persists an error reply naming
//     the reason.
//
// Nothing is retried and there is no timeout: the call waits until the server answers or ctx is cancelled.
// Ordering between calls is left to the caller; Submit queues them when Options.SerializeRequests is set.
func (a *App) RequestReply(ctx context.Context, userMessage models.Message) {
	a.mu.Lock()
	removeTyping := a.view.ShowTyping()
	a.mu.Unlock()

	resp, err := a.sender.Send(ctx, userMessage.Text)
	if err != nil {
		a.failed(removeTyping, err, true)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		a.failed(removeTyping, StatusError{Code: resp.StatusCode}, a.opts.PersistStatusErrors)
		return
	}

	a.mu.Lock()
	a.removePlaceholder(removeTyping)
	a.mu.Unlock()

	text, err := readFirstChunk(resp.Body)
	if err != nil {
		a.failed(nil, err, true)
		return
	}

	reply := models.NewMessage(models.RoleAssistant, text, a.opts.Now())

	a.mu.Lock()
	defer a.mu.Unlock()

	a.store.Append(reply)
	if err := a.history.Save(a.store.All()); err != nil {
		a.logger.Error().Err(err).Str("id", reply.ID).Msg("failed to handle reply")
		a.view.ShowParsingError(a.opts.Now())
		return
	}
	a.view.Render(a.store.All(), true)
}

// failed replaces the typing placeholder with an error reply.
func (a *App) failed(removeTyping func() error, err error, persist bool) {
	a.logger.Warn().Err(err).Msg("failed to receive a reply")

	a.mu.Lock()
	defer a.mu.Unlock()

	a.removePlaceholder(removeTyping)
	a.commitLocked(models.NewMessage(models.RoleAssistant, ErrorText(err), a.opts.Now()), persist)
}

// removePlaceholder removes a transient node, ignoring any failure to do so. The caller holds mu.
func (a *App) removePlaceholder(remove func() error) {
	if remove == nil {
		return
	}
	if err := remove(); err != nil {
		a.logger.Debug().Err(err).Msg("failed to remove placeholder")
	}
}

// readFirstChunk returns the first non-empty chunk of r as text, or "" if r ends before yielding any bytes.
// Whatever follows the first chunk is left unread.
func readFirstChunk(r io.Reader) (string, error) {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			return decodeChunk(buf[:n]), nil
		}
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
	}
}

// decodeChunk decodes b as UTF-8 the way a streaming decoder does: invalid bytes become U+FFFD and an
// incomplete sequence at the end is held back.
func decodeChunk(b []byte) string {
	end := len(b)
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				end = i
			}
			break
		}
	}
	return strings.ToValidUTF8(string(b[:end]), "�")
}
