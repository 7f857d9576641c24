package domain

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// Opaque identifier prefixes, kept short for log readability.
const (
	sessionIDPrefix = "sess-"
	turnIDPrefix    = "msg-"
	chunkIDPrefix   = "cb-"
)

// NewSessionID returns a globally-unique opaque session identifier.
func NewSessionID() string { return sessionIDPrefix + shortID() }

// NewTurnID returns a globally-unique opaque turn identifier.
func NewTurnID() string { return turnIDPrefix + shortID() }

// NewChunkID returns a globally-unique opaque chunk identifier.
func NewChunkID() string { return chunkIDPrefix + shortID() }

func shortID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:12]
}
