package main

import (
	"fmt"

	"github.com/OmChillure/modern-chat/internal/config"
	"github.com/OmChillure/modern-chat/internal/handlers"
	"github.com/OmChillure/modern-chat/internal/services"
	"github.com/rs/zerolog"
)

// newAgent builds the configured upstream agent and the provider name used in its error payloads.
func newAgent(cfg config.ServerConfig, logger zerolog.Logger) (handlers.Agent, string, error) {
	switch cfg.Upstream {
	case config.UpstreamDify:
		return services.NewDify(cfg.Dify.URL, cfg.Dify.APIKey, cfg.Dify.Timeout, logger), "Dify", nil
	case config.UpstreamOllama:
		o, err := services.NewOllama(cfg.Ollama.Host, cfg.Ollama.Model, cfg.SystemPrompt, logger)
		if err != nil {
			return nil, "", err
		}
		return o, "Ollama", nil
	case config.UpstreamOpenAI:
		return services.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.SystemPrompt, logger),
			"OpenAI", nil
	default:
		return nil, "", fmt.Errorf("unknown upstream: %s", cfg.Upstream)
	}
}
