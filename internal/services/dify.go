package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmaxmax/go-sse"
)

// Dify streams answers from a Dify agent application. The agent runs its own tools; only its thoughts are
// passed on.
type Dify struct {
	url     string
	apiKey  string
	timeout time.Duration

	client *http.Client
	logger zerolog.Logger
}

type difyChatRequest struct {
	Inputs       map[string]any `json:"inputs"`
	Query        string         `json:"query"`
	ResponseMode string         `json:"response_mode"`
	User         string         `json:"user"`
}

type difyStreamEvent struct {
	Event   string `json:"event"`
	Thought string `json:"thought"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// DefaultDifyTimeout bounds each step of a Dify request: connecting, waiting for the response headers and
// every read of the stream. A stream that keeps delivering may run longer in total.
const DefaultDifyTimeout = 30 * time.Second

// errStreamIdle ends a stream that delivered nothing for a whole timeout.
var errStreamIdle = fmt.Errorf("read timed out: %w", context.DeadlineExceeded)

// NewDify creates a Dify agent posting to url, the chat-messages endpoint of the application. A zero
// timeout means DefaultDifyTimeout.
func NewDify(url, apiKey string, timeout time.Duration, logger zerolog.Logger) Dify {
	if timeout <= 0 {
		timeout = DefaultDifyTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout

	return Dify{
		url:     url,
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{Transport: transport},
		logger: logger.With().Str("module", "dify").Logger(),
	}
}

// Stream sends message on behalf of userID and yields the thought of every agent_thought event. A
// non-200 answer yields a *StatusError, transport failures a *RequestError.
func (d Dify) Stream(ctx context.Context, message, userID string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		body, err := json.Marshal(difyChatRequest{
			Inputs:       map[string]any{},
			Query:        message,
			ResponseMode: "streaming",
			User:         userID,
		})
		if err != nil {
			yield("", fmt.Errorf("error marshaling request: %w", err))
			return
		}

		ctx, cancel := context.WithCancelCause(ctx)
		defer cancel(nil)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
		if err != nil {
			yield("", fmt.Errorf("error creating request: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+d.apiKey)

		d.logger.Debug().Str("url", d.url).Str("user", userID).Msg("sending request")

		resp, err := d.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			yield("", &RequestError{Err: err})
			return
		}
		defer resp.Body.Close()

		d.logger.Debug().Int("status", resp.StatusCode).Msg("response received")

		if resp.StatusCode != http.StatusOK {
			yield("", &StatusError{Provider: "Dify", Code: resp.StatusCode})
			return
		}

		idle := time.AfterFunc(d.timeout, func() { cancel(errStreamIdle) })
		defer idle.Stop()

		stream := idleReader{r: resp.Body, timer: idle, timeout: d.timeout}
		for ev, err := range sse.Read(stream, nil) {
			if err != nil {
				if cause := context.Cause(ctx); errors.Is(cause, errStreamIdle) {
					yield("", &RequestError{Err: cause})
					return
				}
				if errors.Is(err, context.Canceled) {
					return
				}
				yield("", &RequestError{Err: err})
				return
			}
			if ev.Data == "" {
				continue
			}

			var res difyStreamEvent
			if err := json.Unmarshal([]byte(ev.Data), &res); err != nil {
				yield("", fmt.Errorf("error unmarshaling event: %w", err))
				return
			}

			switch res.Event {
			case "agent_thought":
				// The consumer's time doesn't count against the upstream.
				idle.Stop()
				if !yield(res.Thought, nil) {
					return
				}
				idle.Reset(d.timeout)
			case "error":
				yield("", fmt.Errorf("dify error %d: %s", res.Status, res.Message))
				return
			case "message_end":
				return
			}
		}
	}
}

// idleReader restarts timer whenever data arrives.
type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func (i idleReader) Read(p []byte) (int, error) {
	n, err := i.r.Read(p)
	if n > 0 {
		i.timer.Reset(i.timeout)
	}
	return n, err
}
