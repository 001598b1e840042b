package model

import "time"

// Player represents a participant in a room
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	Avatar   string    `json:"avatar"`
	IsOnline bool      `json:"isOnline"`
	IsReady  bool      `json:"isReady"`
	LastSeen time.Time `json:"lastSeen"` // join time, used to order turns
}

// JoinResult is returned when a player asks to join a room.
// Rejections the player can act on are reported through Success/Message
// rather than as errors.
type JoinResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
	Room    *Room  `json:"room,omitempty"`
}
