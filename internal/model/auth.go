package model

import "github.com/golang-jwt/jwt/v5"

// PlayerClaims are JWT claims binding a self-assigned player id to one room
type PlayerClaims struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	jwt.RegisteredClaims
}
