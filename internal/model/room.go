package model

import (
	"slices"
	"sort"
	"time"
)

// Room is the shared session document, one per game
type Room struct {
	ID             string             `json:"id"`
	HostID         string             `json:"hostId"`
	Status         RoomStatus         `json:"status"`
	Config         RoomConfig         `json:"config"`
	CurrentRound   int                `json:"currentRound"`
	Turn           *Turn              `json:"turn"`
	Players        map[string]*Player `json:"players"`
	PlayerOrder    []string           `json:"playerOrder"`
	UsedWords      []string           `json:"usedWords"`
	CreatedAt      time.Time          `json:"createdAt"`
	LastActivityAt time.Time          `json:"lastActivityAt"`
}

// Touch records a mutating action
func (r *Room) Touch(now time.Time) {
	r.LastActivityAt = now
}

// IsFull reports whether the room is at capacity
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.Config.MaxPlayers
}

// IsHost reports whether playerID currently holds host privileges
func (r *Room) IsHost(playerID string) bool {
	return playerID != "" && r.HostID == playerID
}

// HasWord reports whether word was already assigned this game
func (r *Room) HasWord(word string) bool {
	return slices.Contains(r.UsedWords, word)
}

// PlayersByJoinOrder returns ids sorted by LastSeen ascending, id breaking ties
func (r *Room) PlayersByJoinOrder() []string {
	ids := make([]string, 0, len(r.Players))
	for id := range r.Players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := r.Players[ids[i]], r.Players[ids[j]]
		if a.LastSeen.Equal(b.LastSeen) {
			return a.ID < b.ID
		}
		return a.LastSeen.Before(b.LastSeen)
	})
	return ids
}

// EligibleGuessers returns the online non-drawer players
func (r *Room) EligibleGuessers() []string {
	if r.Turn == nil {
		return nil
	}
	var out []string
	for _, id := range r.PlayersByJoinOrder() {
		p := r.Players[id]
		if id != r.Turn.DrawerID && p.IsOnline {
			out = append(out, id)
		}
	}
	return out
}

// AllGuessed reports whether every eligible guesser has scored this turn
func (r *Room) AllGuessed() bool {
	if r.Turn == nil {
		return false
	}
	for _, id := range r.EligibleGuessers() {
		if !r.Turn.HasGuessed(id) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	c := *r
	c.Turn = r.Turn.clone()
	c.PlayerOrder = slices.Clone(r.PlayerOrder)
	c.UsedWords = slices.Clone(r.UsedWords)
	c.Players = make(map[string]*Player, len(r.Players))
	for id, p := range r.Players {
		cp := *p
		c.Players[id] = &cp
	}
	return &c
}

// ViewFor returns a copy safe to send to playerID. Candidate words are only
// kept for the drawer; the secret word is masked for players still guessing.
func (r *Room) ViewFor(playerID string, now time.Time) *Room {
	v := r.Clone()
	v.UsedWords = nil
	t := v.Turn
	if t == nil {
		return v
	}
	if t.DrawerID == playerID {
		return v
	}
	t.CandidateWords = nil
	if t.Phase == PhaseRevealing || t.HasGuessed(playerID) {
		return v
	}
	t.SecretWord = t.MaskedWord(now)
	t.HintIndices = nil
	return v
}
