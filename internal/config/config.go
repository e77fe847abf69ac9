package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Config holds the settings of both the chat client and the backend server.
type Config struct {
	LogLevel string       `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string       `mapstructure:"log_file" yaml:"log_file"`
	Client   ClientConfig `mapstructure:"client" yaml:"client"`
	Server   ServerConfig `mapstructure:"server" yaml:"server"`
}

// ClientConfig configures the chat client.
type ClientConfig struct {
	// Endpoint is the base URL of the backend; requests go to Endpoint + "/chat".
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Storage  StorageConfig `mapstructure:"storage" yaml:"storage"`
	// SerializeRequests makes a new reply request wait for the previous one instead of overlapping it.
	SerializeRequests bool `mapstructure:"serialize_requests" yaml:"serialize_requests"`
	// PersistStatusErrors persists the error reply synthesized for a non-success status.
	PersistStatusErrors bool `mapstructure:"persist_status_errors" yaml:"persist_status_errors"`
}

// StorageConfig selects the key-value engine holding the message history.
type StorageConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
	Key    string `mapstructure:"key" yaml:"key"`
}

// ServerConfig configures the backend chat endpoint.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	Upstream     string        `mapstructure:"upstream" yaml:"upstream"`
	SystemPrompt string        `mapstructure:"system_prompt" yaml:"system_prompt"`
	Dify         DifyConfig    `mapstructure:"dify" yaml:"dify"`
	Ollama       OllamaConfig  `mapstructure:"ollama" yaml:"ollama"`
	OpenAI       OpenAIConfig  `mapstructure:"openai" yaml:"openai"`
	ShutdownWait time.Duration `mapstructure:"shutdown_wait" yaml:"shutdown_wait"`
}

// DifyConfig configures the Dify agent upstream.
type DifyConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	APIKey  string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// OllamaConfig configures the Ollama upstream.
type OllamaConfig struct {
	Host  string `mapstructure:"host" yaml:"host"`
	Model string `mapstructure:"model" yaml:"model"`
}

// OpenAIConfig configures the OpenAI upstream.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Model   string `mapstructure:"model" yaml:"model"`
}

// Storage drivers.
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Upstream agents.
const (
	UpstreamDify   = "dify"
	UpstreamOllama = "ollama"
	UpstreamOpenAI = "openai"
)

// DefaultStorageKey is the key the message history is stored under.
const DefaultStorageKey = "modern-chat-messages:v1"

// Dir returns the directory holding the config file, the storage file and the client log.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, "modern-chat")
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	dir := Dir()
	return Config{
		LogLevel: "info",
		LogFile:  filepath.Join(dir, "chat.log"),
		Client: ClientConfig{
			Endpoint: "http://localhost:8000",
			Storage: StorageConfig{
				Driver: DriverBolt,
				Path:   filepath.Join(dir, "storage.db"),
				Key:    DefaultStorageKey,
			},
		},
		Server: ServerConfig{
			Addr:     ":8000",
			Upstream: UpstreamDify,
			Dify: DifyConfig{
				Timeout: 30 * time.Second,
			},
			Ollama: OllamaConfig{
				Host: "http://localhost:11434",
			},
			ShutdownWait: 10 * time.Second,
		},
	}
}

// ValidateClient checks the settings the chat client depends on.
func (c Config) ValidateClient() error {
	u, err := url.Parse(c.Client.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid client endpoint %q", c.Client.Endpoint)
	}

	switch c.Client.Storage.Driver {
	case DriverBolt, DriverSQLite:
		if c.Client.Storage.Path == "" {
			return fmt.Errorf("storage path is required for driver %s", c.Client.Storage.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Client.Storage.Driver)
	}

	if c.Client.Storage.Key == "" {
		return fmt.Errorf("storage key is required")
	}
	return nil
}

// ValidateServer checks the settings the backend server depends on.
func (c Config) ValidateServer() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}

	switch c.Server.Upstream {
	case UpstreamDify:
		if c.Server.Dify.URL == "" || c.Server.Dify.APIKey == "" {
			return fmt.Errorf("dify url and api key are required (DIFY_API_URL, DIFY_API_KEY)")
		}
	case UpstreamOllama:
		if c.Server.Ollama.Model == "" {
			return fmt.Errorf("ollama model is required")
		}
	case UpstreamOpenAI:
		if c.Server.OpenAI.Model == "" {
			return fmt.Errorf("openai model is required")
		}
	default:
		return fmt.Errorf("unknown upstream: %s", c.Server.Upstream)
	}
	return nil
}
