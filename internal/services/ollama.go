package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
)

// Ollama streams answers from a model served by an Ollama instance.
type Ollama struct {
	model        string
	systemPrompt string

	client *api.Client
	logger zerolog.Logger
}

// NewOllama creates an Ollama agent for the server at host.
func NewOllama(host, model, systemPrompt string, logger zerolog.Logger) (Ollama, error) {
	u, err := url.Parse(host)
	if err != nil {
		return Ollama{}, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	return Ollama{
		model:        model,
		systemPrompt: systemPrompt,
		client:       api.NewClient(u, &http.Client{}),
		logger:       logger.With().Str("module", "ollama").Logger(),
	}, nil
}

// Stream sends message as a single-turn conversation and yields the content of every response chunk. The
// user id has no meaning to Ollama and is only logged.
func (o Ollama) Stream(ctx context.Context, message, userID string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var msgs []api.Message
		if o.systemPrompt != "" {
			msgs = append(msgs, api.Message{Role: "system", Content: o.systemPrompt})
		}
		msgs = append(msgs, api.Message{Role: "user", Content: message})

		t := true
		req := api.ChatRequest{
			Model:    o.model,
			Messages: msgs,
			Stream:   &t,
		}

		o.logger.Debug().Str("model", o.model).Str("user", userID).Msg("sending request")

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stopped := false
		err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
			if stopped || res.Message.Content == "" {
				return nil
			}
			if !yield(res.Message.Content, nil) {
				stopped = true
				cancel()
			}
			return nil
		})
		if err == nil || stopped || errors.Is(err, context.Canceled) {
			return
		}

		var se api.StatusError
		if errors.As(err, &se) {
			yield("", &StatusError{Provider: "Ollama", Code: se.StatusCode})
			return
		}
		yield("", &RequestError{Err: err})
	}
}
