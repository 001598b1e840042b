package model

import "time"

// WordEntry is one word bank row
type WordEntry struct {
	Word       string     `json:"word" bson:"word"`
	Difficulty Difficulty `json:"difficulty" bson:"difficulty"`
}

// PlayerResult is a player's final standing in an archived game
type PlayerResult struct {
	PlayerID string `json:"playerId" bson:"playerId"`
	Name     string `json:"name" bson:"name"`
	Score    int    `json:"score" bson:"score"`
}

// GameRecord is the archived outcome of a finished game
type GameRecord struct {
	ID         string         `json:"id" bson:"_id,omitempty"`
	RoomCode   string         `json:"roomCode" bson:"roomCode"`
	RoundCount int            `json:"roundCount" bson:"roundCount"`
	Results    []PlayerResult `json:"results" bson:"results"`
	WinnerID   string         `json:"winnerId,omitempty" bson:"winnerId,omitempty"`
	CreatedAt  time.Time      `json:"createdAt" bson:"createdAt"`
	FinishedAt time.Time      `json:"finishedAt" bson:"finishedAt"`
}
