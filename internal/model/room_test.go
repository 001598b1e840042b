package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoom() *Room {
	players := map[string]*Player{
		"a": {ID: "a", Name: "Ann", IsOnline: true, LastSeen: base},
		"b": {ID: "b", Name: "Bob", IsOnline: true, LastSeen: base.Add(time.Second)},
		"c": {ID: "c", Name: "Cid", IsOnline: true, LastSeen: base.Add(time.Second)},
	}
	return &Room{
		ID:          "ABCDEF",
		HostID:      "a",
		Status:      RoomPlaying,
		Config:      DefaultRoomConfig(),
		Players:     players,
		PlayerOrder: []string{"a", "b", "c"},
		UsedWords:   []string{"apple"},
	}
}

func TestPlayersByJoinOrder(t *testing.T) {
	r := newRoom()
	r.Players["a"].LastSeen = base.Add(2 * time.Second)

	assert.Equal(t, []string{"b", "c", "a"}, r.PlayersByJoinOrder())
}

func TestAllGuessedIgnoresOfflinePlayers(t *testing.T) {
	r := newRoom()
	r.Turn = drawingTurn("apple", nil)
	r.Turn.DrawerID = "a"

	assert.False(t, r.AllGuessed())

	r.Turn.CorrectGuessers = []string{"b"}
	assert.False(t, r.AllGuessed())

	r.Players["c"].IsOnline = false
	assert.True(t, r.AllGuessed())
	assert.Equal(t, []string{"b"}, r.EligibleGuessers())
}

func TestViewForRedactsSecretFromGuessers(t *testing.T) {
	r := newRoom()
	r.Turn = drawingTurn("apple", []int{0, 1, 2, 3, 4})
	r.Turn.DrawerID = "a"
	r.Turn.CandidateWords = []string{"apple", "cake", "moon"}
	r.Turn.CorrectGuessers = []string{"c"}

	drawer := r.ViewFor("a", base)
	assert.Equal(t, "apple", drawer.Turn.SecretWord)
	assert.Len(t, drawer.Turn.CandidateWords, 3)
	assert.Nil(t, drawer.UsedWords)

	guesser := r.ViewFor("b", base)
	assert.Equal(t, "_____", guesser.Turn.SecretWord)
	assert.Nil(t, guesser.Turn.CandidateWords)
	assert.Nil(t, guesser.Turn.HintIndices)

	solved := r.ViewFor("c", base)
	assert.Equal(t, "apple", solved.Turn.SecretWord)
	assert.Nil(t, solved.Turn.CandidateWords)

	// the original is untouched
	assert.Equal(t, "apple", r.Turn.SecretWord)
	assert.Equal(t, []string{"apple"}, r.UsedWords)
}

func TestViewForShowsSecretWhileRevealing(t *testing.T) {
	r := newRoom()
	r.Turn = drawingTurn("apple", nil)
	r.Turn.DrawerID = "a"
	r.Turn.Phase = PhaseRevealing

	assert.Equal(t, "apple", r.ViewFor("b", base).Turn.SecretWord)
}

func TestCloneIsDeep(t *testing.T) {
	r := newRoom()
	r.Turn = NewTurn("a", base)
	c := r.Clone()

	c.Players["a"].Score = 99
	c.Turn.Scores["a"] = 5
	c.PlayerOrder[0] = "z"

	assert.Equal(t, 0, r.Players["a"].Score)
	assert.Empty(t, r.Turn.Scores)
	assert.Equal(t, "a", r.PlayerOrder[0])
}

func TestRoomConfigClamped(t *testing.T) {
	c := RoomConfig{MaxPlayers: 50, RoundCount: 0}.Clamped()
	assert.Equal(t, MaxPlayersLimit, c.MaxPlayers)
	assert.Equal(t, MinRounds, c.RoundCount)

	c = RoomConfig{MaxPlayers: 1, RoundCount: 99}.Clamped()
	assert.Equal(t, MinPlayers, c.MaxPlayers)
	assert.Equal(t, MaxRounds, c.RoundCount)
}

func TestMessageVisibility(t *testing.T) {
	pub := NewSystemMessage("m1", "hello", base)
	require.False(t, pub.IsPrivate())
	assert.True(t, pub.VisibleToPlayer("anyone"))

	priv := &Message{ID: "m2", VisibleTo: []string{"b"}}
	assert.True(t, priv.VisibleToPlayer("b"))
	assert.False(t, priv.VisibleToPlayer("c"))
}
