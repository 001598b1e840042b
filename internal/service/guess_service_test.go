package service

import (
	"strings"
	"testing"
	"time"

	"sketchrooms/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drawWord walks the current drawer through both selections and returns the secret
func (e *testEnv) drawWord(t *testing.T, code string) string {
	t.Helper()
	room := e.room(t, code)
	drawer := room.Turn.DrawerID
	require.NoError(t, e.turnSvc.SelectDifficulty(e.ctx, code, drawer, model.DifficultyMedium))
	word := e.room(t, code).Turn.CandidateWords[0]
	require.NoError(t, e.turnSvc.SelectWord(e.ctx, code, drawer, word))
	return word
}

func nearMiss(word string) string {
	runes := []rune(word)
	last := len(runes) - 1
	if runes[last] == 'q' {
		runes[last] = 'z'
	} else {
		runes[last] = 'q'
	}
	return string(runes)
}

func TestGuessOutsideDrawingIsChat(t *testing.T) {
	env := newTestEnv(t)
	code := env.createRoom(t, twoPlayers(), "a", "b")

	outcome, err := env.guessSvc.SubmitGuess(env.ctx, code, "b", "", "  hi all ")
	require.NoError(t, err)
	assert.Equal(t, GuessChat, outcome)

	msgs := env.messages(t, code, "a")
	last := msgs[len(msgs)-1]
	assert.Equal(t, "hi all", last.Text)
	assert.Equal(t, "b", last.AuthorID)
	assert.Equal(t, "Player b", last.AuthorName)
	assert.False(t, last.IsSystem)
}

func TestGuessValidation(t *testing.T) {
	env := newTestEnv(t)
	code := env.createRoom(t, twoPlayers(), "a", "b")

	_, err := env.guessSvc.SubmitGuess(env.ctx, code, "b", "", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = env.guessSvc.SubmitGuess(env.ctx, code, "b", "", strings.Repeat("x", maxGuessLen+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)
	_, err = env.guessSvc.SubmitGuess(env.ctx, code, "stranger", "S", "hello")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	_, err = env.guessSvc.SubmitGuess(env.ctx, "NOROOM", "b", "", "hello")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCorrectGuessScores(t *testing.T) {
	env := newTestEnv(t)
	code := env.createRoom(t, model.RoomConfig{MaxPlayers: 4, RoundCount: 1}, "a", "b", "c")
	env.startGame(t, code)
	word := env.drawWord(t, code)

	outcome, err := env.guessSvc.SubmitGuess(env.ctx, code, "b", "", strings.ToUpper(word))
	require.NoError(t, err)
	assert.Equal(t, GuessCorrect, outcome)

	room := env.room(t, code)
	assert.Equal(t, []string{"b"}, room.Turn.CorrectGuessers)
	assert.Equal(t, 100, room.Players["b"].Score)
	assert.Equal(t, 50, room.Players["a"].Score)
	assert.Equal(t, map[string]int{"b": 100, "a": 50}, room.Turn.Scores)
	assert.Equal(t, model.PhaseDrawing, room.Turn.Phase, "c has not guessed yet")

	view, err := env.roomSvc.GetRoom(env.ctx, code, "b")
	require.NoError(t, err)
	assert.Equal(t, word, view.Turn.SecretWord)

	msgs := env.messages(t, code, "c")
	assert.Equal(t, "Player b guessed the word!", msgs[len(msgs)-1].Text)
	assert.NotContains(t, texts(msgs), word)

	// half the window later a guess is worth 75
	env.clock.Advance(30 * time.Second)
	outcome, err = env.guessSvc.SubmitGuess(env.ctx, code, "c", "", word)
	require.NoError(t, err)
	assert.Equal(t, GuessCorrect, outcome)
	room = env.room(t, code)
	assert.Equal(t, 75, room.Players["c"].Score)
	assert.Equal(t, 100, room.Players["a"].Score)
}

func TestAllGuessedEndsDrawing(t *testing.T) {
	env := newTestEnv(t)
	code := env.createRoom(t, model.RoomConfig{MaxPlayers: 4, RoundCount: 1}, "a", "b", "c")
	env.startGame(t, code)
	word := env.drawWord(t, code)

	_, err := env.guessSvc.SubmitGuess(env.ctx, code, "b", "", word)
	require.NoError(t, err)
	_, err = env.guessSvc.SubmitGuess(env.ctx, code, "c", "", word)
	require.NoError(t, err)

	room := env.room(t, code)
	assert.True(t, room.Turn.Deadline.Equal(expiredDeadline))
	assert.Equal(t, model.PhaseDrawing, room.Turn.Phase)

	env.clock.Advance(time.Second)
	advanced, err := env.turnSvc.AdvanceTurnIfExpired(env.ctx, code)
	require.NoError(t, err)
	require.True(t, advanced)
	assert.Equal(t, model.PhaseRevealing, env.room(t, code).Turn.Phase)

	got := texts(env.messages(t, code, "b"))
	assert.Equal(t, []string{
		"Player b guessed the word!",
		"Player c guessed the word!",
		"All players guessed! Round ending…",
		"The word was " + word,
	}, got[len(got)-4:])
}

func TestOfflineGuesserDoesNotBlockRoundEnd(t *testing.T) {
	env := newTestEnv(t)
	code := env.createRoom(t, model.RoomConfig{MaxPlayers: 4, RoundCount: 1}, "a", "b", "c")
	env.startGame(t, code)
	word := env.drawWord(t, code)

	_, err := env.guessSvc.SubmitGuess(env.ctx, code, "b", "", word)
	require.NoError(t, err)
	require.False(t, env.room(t, code).Turn.Deadline.Equal(expiredDeadline))

	require.NoError(t, env.roomSvc.SetPresence(env.ctx, code, "c", false))
	assert.True(t, env.room(t, code).Turn.Deadline.Equal(expiredDeadline))
}

func TestRepeatedAndDrawerGuesses(t *testing.T) {
	env := newTestEnv(t)
	code := env.createRoom(t, model.RoomConfig{MaxPlayers: 4, RoundCount: 1}, "a", "b", "c")
	env.startGame(t, code)
	word := env.drawWord(t, code)

	_, err := env.guessSvc.SubmitGuess(env.ctx, code, "a", "", word)
	assert.ErrorIs(t, err, ErrDrawerCannotGuess)
	_, err = env.guessSvc.SubmitGuess(env.ctx, code, "a", "", nearMiss(word))
	assert.ErrorIs(t, err, ErrDrawerCannotGuess)
	outcome, err := env.guessSvc.SubmitGuess(env.ctx, code, "a", "", "nice try everyone")
	require.NoError(t, err)
	assert.Equal(t, GuessChat, outcome)

	_, err = env.guessSvc.SubmitGuess(env.ctx, code, "b", "", word)
	require.NoError(t, err)
	outcome, err = env.guessSvc.SubmitGuess(env.ctx, code, "b", "", word)
	require.NoError(t, err)
	assert.Equal(t, GuessIgnored, outcome)
	outcome, err = env.guessSvc.SubmitGuess(env.ctx, code, "b", "", nearMiss(word))
	require.NoError(t, err)
	assert.Equal(t, GuessIgnored, outcome)

	room := env.room(t, code)
	assert.Equal(t, []string{"b"}, room.Turn.CorrectGuessers)
	assert.Equal(t, 100, room.Players["b"].Score)
}

func TestCloseGuessIsPrivate(t *testing.T) {
	env := newTestEnv(t)
	code := env.createRoom(t, model.RoomConfig{MaxPlayers: 4, RoundCount: 1}, "a", "b", "c")
	env.startGame(t, code)
	word := env.drawWord(t, code)
	guess := nearMiss(word)

	outcome, err := env.guessSvc.SubmitGuess(env.ctx, code, "b", "", guess)
	require.NoError(t, err)
	assert.Equal(t, GuessClose, outcome)

	mine := texts(env.messages(t, code, "b"))
	assert.Equal(t, []string{guess, "'" + guess + "' is very close!"}, mine[len(mine)-2:])
	assert.NotContains(t, texts(env.messages(t, code, "c")), guess)
	assert.NotContains(t, texts(env.messages(t, code, "a")), guess)
	assert.Empty(t, env.room(t, code).Turn.CorrectGuessers)

	outcome, err = env.guessSvc.SubmitGuess(env.ctx, code, "c", "", "zzzzzzzzzzzzzzzz")
	require.NoError(t, err)
	assert.Equal(t, GuessChat, outcome)
	assert.Contains(t, texts(env.messages(t, code, "b")), "zzzzzzzzzzzzzzzz")
}

func TestFullGameFlow(t *testing.T) {
	env := newTestEnv(t)
	code := env.createRoom(t, twoPlayers(), "a", "b")
	env.startGame(t, code)

	word := env.drawWord(t, code)
	outcome, err := env.guessSvc.SubmitGuess(env.ctx, code, "b", "", word)
	require.NoError(t, err)
	require.Equal(t, GuessCorrect, outcome)

	room := env.expire(t, code)
	assert.Equal(t, model.PhaseRevealing, room.Turn.Phase)
	room = env.expire(t, code)
	assert.Equal(t, "b", room.Turn.DrawerID)
	assert.Equal(t, model.PhaseChoosingDifficulty, room.Turn.Phase)

	room = env.playTurn(t, code)
	assert.Equal(t, model.RoomFinished, room.Status)
	assert.Equal(t, 100, room.Players["a"].Score)
	assert.Equal(t, 100, room.Players["b"].Score)
	assert.Equal(t, 1, env.archiver.count())

	msgs := texts(env.messages(t, code, "a"))
	assert.Equal(t, "Game over! It's a tie between Player a and Player b with 100 points", msgs[len(msgs)-1])
	assert.Empty(t, GameRecordFor(room, base).WinnerID)

	// a late timer fire after the end changes nothing
	_, err = env.turnSvc.AdvanceTurnIfExpired(env.ctx, code)
	assert.ErrorIs(t, err, ErrNoActiveTurn)
	assert.Equal(t, 1, env.archiver.count())
}
