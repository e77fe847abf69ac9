package chat

import (
	"encoding/json"
	"fmt"

	"github.com/OmChillure/modern-chat/internal/models"
	"github.com/rs/zerolog"
)

// KV is a synchronous key-value store holding opaque values, such as services.BoltDB.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// History persists the whole message list as one JSON array under a single key. Every save rewrites the
// entire list.
type History struct {
	kv     KV
	key    string
	logger zerolog.Logger
}

// NewHistory creates a History storing the list under key in kv.
func NewHistory(kv KV, key string, logger zerolog.Logger) History {
	return History{
		kv:     kv,
		key:    key,
		logger: logger.With().Str("module", "history").Logger(),
	}
}

// Load returns the persisted list. A missing key, an unreadable store or malformed data all yield an empty
// list; the failure is logged and never returned, so a corrupt history can't keep the client from starting.
func (h History) Load() []models.Message {
	raw, err := h.kv.Get(h.key)
	if err != nil {
		h.logger.Debug().Err(err).Str("key", h.key).Msg("no history loaded")
		return []models.Message{}
	}

	var messages []models.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		h.logger.Debug().Err(err).Str("key", h.key).Msg("discarding malformed history")
		return []models.Message{}
	}
	if messages == nil {
		return []models.Message{}
	}
	return messages
}

// Save serializes messages and overwrites the stored list.
func (h History) Save(messages []models.Message) error {
	if messages == nil {
		messages = []models.Message{}
	}

	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	if err := h.kv.Set(h.key, raw); err != nil {
		return fmt.Errorf("failed to store messages: %w", err)
	}
	return nil
}
