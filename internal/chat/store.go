package chat

import (
	"sync"

	"github.com/OmChillure/modern-chat/internal/models"
)

// Store is the in-memory, insertion-ordered message list the display is rendered from. It only grows.
type Store struct {
	mu       sync.RWMutex
	messages []models.Message
}

// NewStore creates a Store holding a copy of initial.
func NewStore(initial []models.Message) *Store {
	messages := make([]models.Message, len(initial), len(initial)+16)
	copy(messages, initial)
	return &Store{messages: messages}
}

// Append adds msg at the end of the list.
func (s *Store) Append(msg models.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

// All returns a snapshot of the list in insertion order.
func (s *Store) All() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]models.Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
