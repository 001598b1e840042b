package model

// RoomStatus is the lifecycle state of a game session
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

// Config bounds
const (
	MinPlayers      = 2
	MaxPlayersLimit = 12
	MinRounds       = 1
	MaxRounds       = 10
)

// RoomConfig holds host-editable settings
type RoomConfig struct {
	MaxPlayers int  `json:"maxPlayers" bson:"maxPlayers"`
	RoundCount int  `json:"roundCount" bson:"roundCount"`
	IsPublic   bool `json:"isPublic" bson:"isPublic"`
}

// DefaultRoomConfig is used when a create request carries no settings
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		MaxPlayers: 8,
		RoundCount: 3,
		IsPublic:   false,
	}
}

// Clamped returns the config with every value forced into its valid range
func (c RoomConfig) Clamped() RoomConfig {
	c.MaxPlayers = clamp(c.MaxPlayers, MinPlayers, MaxPlayersLimit)
	c.RoundCount = clamp(c.RoundCount, MinRounds, MaxRounds)
	return c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
