package services

import (
	"context"
	"errors"
	"io"
	"iter"

	"github.com/rs/zerolog"
	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAI streams answers from an OpenAI compatible chat completion API.
type OpenAI struct {
	model        string
	systemPrompt string

	client *goopenai.Client
	logger zerolog.Logger
}

// NewOpenAI creates an OpenAI agent. An empty baseURL means the public OpenAI API.
func NewOpenAI(apiKey, baseURL, model, systemPrompt string, logger zerolog.Logger) OpenAI {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return OpenAI{
		model:        model,
		systemPrompt: systemPrompt,
		client:       goopenai.NewClientWithConfig(cfg),
		logger:       logger.With().Str("module", "openai").Logger(),
	}
}

// Stream sends message as a single-turn conversation and yields every content delta. userID is passed as
// the end-user identifier.
func (o OpenAI) Stream(ctx context.Context, message, userID string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var msgs []goopenai.ChatCompletionMessage
		if o.systemPrompt != "" {
			msgs = append(msgs, goopenai.ChatCompletionMessage{
				Role:    goopenai.ChatMessageRoleSystem,
				Content: o.systemPrompt,
			})
		}
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleUser,
			Content: message,
		})

		req := goopenai.ChatCompletionRequest{
			Model:    o.model,
			Messages: msgs,
			Stream:   true,
			User:     userID,
		}

		o.logger.Debug().Str("model", o.model).Str("user", userID).Msg("sending request")

		stream, err := o.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			yield("", openAIError(err))
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
					return
				}
				yield("", openAIError(err))
				return
			}

			if len(response.Choices) == 0 {
				continue
			}
			if delta := response.Choices[0].Delta.Content; delta != "" {
				if !yield(delta, nil) {
					return
				}
			}
		}
	}
}

func openAIError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{Provider: "OpenAI", Code: apiErr.HTTPStatusCode}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{Provider: "OpenAI", Code: reqErr.HTTPStatusCode}
	}
	return &RequestError{Err: err}
}
