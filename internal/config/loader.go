package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envConfigPath     = "MODERNCHAT_CONFIG"
	defaultConfigName = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides. A missing config file is created with
// the defaults.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix("MODERNCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The upstream credentials keep the variable names used by existing deployments.
	_ = v.BindEnv("server.dify.url", "MODERNCHAT_SERVER_DIFY_URL", "DIFY_API_URL")
	_ = v.BindEnv("server.dify.api_key", "MODERNCHAT_SERVER_DIFY_API_KEY", "DIFY_API_KEY")
	_ = v.BindEnv("server.ollama.host", "MODERNCHAT_SERVER_OLLAMA_HOST", "OLLAMA_HOST")
	_ = v.BindEnv("server.openai.api_key", "MODERNCHAT_SERVER_OPENAI_API_KEY", "OPENAI_API_KEY")

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)

	v.SetDefault("client.endpoint", cfg.Client.Endpoint)
	v.SetDefault("client.storage.driver", cfg.Client.Storage.Driver)
	v.SetDefault("client.storage.path", cfg.Client.Storage.Path)
	v.SetDefault("client.storage.key", cfg.Client.Storage.Key)
	v.SetDefault("client.serialize_requests", cfg.Client.SerializeRequests)
	v.SetDefault("client.persist_status_errors", cfg.Client.PersistStatusErrors)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.upstream", cfg.Server.Upstream)
	v.SetDefault("server.system_prompt", cfg.Server.SystemPrompt)
	v.SetDefault("server.shutdown_wait", cfg.Server.ShutdownWait)
	v.SetDefault("server.dify.url", cfg.Server.Dify.URL)
	v.SetDefault("server.dify.api_key", cfg.Server.Dify.APIKey)
	v.SetDefault("server.dify.timeout", cfg.Server.Dify.Timeout)
	v.SetDefault("server.ollama.host", cfg.Server.Ollama.Host)
	v.SetDefault("server.ollama.model", cfg.Server.Ollama.Model)
	v.SetDefault("server.openai.api_key", cfg.Server.OpenAI.APIKey)
	v.SetDefault("server.openai.base_url", cfg.Server.OpenAI.BaseURL)
	v.SetDefault("server.openai.model", cfg.Server.OpenAI.Model)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if p := os.Getenv(envConfigPath); p != "" {
		return p
	}

	return filepath.Join(Dir(), defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
