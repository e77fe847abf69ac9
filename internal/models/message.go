package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message represents one chat turn. It is stored and exchanged as JSON with the field names id, role, text
// and time, where time is expressed in milliseconds since the Unix epoch. The time is only used for display;
// ordering is the insertion order of the list the message lives in.
type Message struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Text string `json:"text"`
	Time int64  `json:"time"`
}

// Role represents the author of a message.
type Role string

const (
	// RoleUser represents a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant represents a reply from the backend, including synthesized error replies.
	RoleAssistant Role = "assistant"
)

// NewMessage builds a message with a freshly generated ID, stamped with the given time.
func NewMessage(role Role, text string, now time.Time) Message {
	return Message{
		ID:   NewID(now),
		Role: role,
		Text: text,
		Time: now.UnixMilli(),
	}
}

// NewID returns a best-effort unique identifier: the base36 millisecond timestamp followed by six random
// base36 characters. It is not meant to be unguessable.
func NewID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strconv.FormatInt(now.UnixMilli(), 36) + random[:6]
}
