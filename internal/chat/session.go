package chat

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTitle is the title assigned to freshly created sessions.
const DefaultSessionTitle = "New Chat"

// Session is conversation metadata. LastMessage is a denormalized preview of
// the most recent message content, kept in sync on every append.
type Session struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	LastMessage string    `json:"lastMessage"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewSession() Session {
	now := time.Now()
	return Session{
		ID:        uuid.NewString(),
		Title:     DefaultSessionTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
