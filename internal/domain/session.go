package domain

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a turn authored by the assistant.
	RoleAssistant Role = "assistant"
)

// Turn is a single message within a session.
type Turn struct {
	ID              string
	Role            Role
	Content         string
	CreatedAt       time.Time
	ChapterID       string
	HighlightedText string
	Sources         []RetrievalResult
}

// Session is short-lived, TTL-bound conversational memory.
// ExpiresAt slides forward on every incoming message (sliding expiration),
// whether or not the exchange records turns.
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
	Metadata  map[string]string
	Turns     []Turn
}

// Expired reports whether the session is past its expiration at the given instant.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
