package service

// Broadcaster closes realtime connections (avoids import cycle)
type Broadcaster interface {
	DisconnectPlayer(roomCode, playerID string)
	DisconnectRoom(roomCode string)
}
