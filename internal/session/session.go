// Package session keeps the recent conversation of each chat session.
package session

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const defaultMaxHistory = 2

// ErrEmptySessionID is returned when a write names no session.
var ErrEmptySessionID = errors.New("session id cannot be empty")

// Store persists question/answer exchanges per session.
type Store interface {
	// CreateSession allocates a new session id.
	CreateSession(ctx context.Context) (string, error)
	// GetHistory renders the retained exchanges, "" when there are none.
	GetHistory(ctx context.Context, sessionID string) (string, error)
	// AddExchange records one user query and the assistant answer.
	AddExchange(ctx context.Context, sessionID, query, answer string) error
}

// Role of a stored message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one side of an exchange.
type Message struct {
	Role    Role
	Content string
}

func newSessionID() string {
	return "session_" + uuid.NewString()
}

func normalizeMaxHistory(n int) int {
	if n <= 0 {
		return defaultMaxHistory
	}
	return n
}

// formatHistory renders messages as "User: ..." and "Assistant: ..." lines.
func formatHistory(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			lines = append(lines, "User: "+m.Content)
		case RoleAssistant:
			lines = append(lines, "Assistant: "+m.Content)
		}
	}
	return strings.Join(lines, "\n")
}
