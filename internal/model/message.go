package model

import (
	"slices"
	"time"
)

// SystemAuthorID marks messages emitted by the game itself
const SystemAuthorID = "SYSTEM"

// Message is an append-only chat or system entry
type Message struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName,omitempty"`
	Text       string    `json:"text"`
	IsSystem   bool      `json:"isSystem"`
	Timestamp  time.Time `json:"timestamp"`
	VisibleTo  []string  `json:"visibleTo,omitempty"` // empty means public
}

// NewSystemMessage builds a public system entry
func NewSystemMessage(id, text string, ts time.Time) *Message {
	return &Message{
		ID:        id,
		AuthorID:  SystemAuthorID,
		Text:      text,
		IsSystem:  true,
		Timestamp: ts,
	}
}

// IsPrivate reports whether the message is restricted to VisibleTo
func (m *Message) IsPrivate() bool {
	return len(m.VisibleTo) > 0
}

// VisibleToPlayer reports whether playerID may see the message
func (m *Message) VisibleToPlayer(playerID string) bool {
	return !m.IsPrivate() || slices.Contains(m.VisibleTo, playerID)
}
