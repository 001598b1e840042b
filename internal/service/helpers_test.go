package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"sketchrooms/internal/cache"
	"sketchrooms/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MoveTo never goes backwards
func (c *fakeClock) MoveTo(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.now) {
		c.now = t
	}
}

type fakeArchiver struct {
	mu      sync.Mutex
	rooms   []*model.Room
	ctxErrs []error
}

func (a *fakeArchiver) Archive(ctx context.Context, room *model.Room) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rooms = append(a.rooms, room)
	a.ctxErrs = append(a.ctxErrs, ctx.Err())
}

func (a *fakeArchiver) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.rooms)
}

type fakeBroadcaster struct {
	mu          sync.Mutex
	kicked      []string
	closedRooms []string
}

func (b *fakeBroadcaster) DisconnectPlayer(roomCode, playerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kicked = append(b.kicked, roomCode+"/"+playerID)
}

func (b *fakeBroadcaster) DisconnectRoom(roomCode string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closedRooms = append(b.closedRooms, roomCode)
}

type testEnv struct {
	ctx         context.Context
	clock       *fakeClock
	rooms       cache.RoomStore
	feed        cache.MessageFeed
	archiver    *fakeArchiver
	broadcaster *fakeBroadcaster
	auth        *AuthService
	roomSvc     *RoomService
	turnSvc     *TurnService
	guessSvc    *GuessService
	reaper      *Reaper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, cache.NewMemoryRoomStore(), cache.NewMemoryMessageFeed())
}

func newTestEnvWith(t *testing.T, rooms cache.RoomStore, feed cache.MessageFeed) *testEnv {
	t.Helper()
	clock := &fakeClock{now: base}
	rt := Runtime{
		Now:    clock.Now,
		Rand:   NewRandom(1),
		Logger: zaptest.NewLogger(t),
	}
	words := NewWordBank(nil)
	archiver := &fakeArchiver{}
	broadcaster := &fakeBroadcaster{}
	auth := NewAuthService("test-secret", time.Hour)

	env := &testEnv{
		ctx:         context.Background(),
		clock:       clock,
		rooms:       rooms,
		feed:        feed,
		archiver:    archiver,
		broadcaster: broadcaster,
		auth:        auth,
		roomSvc:     NewRoomService(rooms, feed, words, auth, archiver, rt),
		turnSvc:     NewTurnService(rooms, feed, words, archiver, rt),
		guessSvc:    NewGuessService(rooms, feed, words, archiver, rt),
		reaper:      NewReaper(rooms, feed, rt),
	}
	env.roomSvc.SetBroadcaster(broadcaster)
	env.reaper.SetBroadcaster(broadcaster)
	return env
}

// createRoom opens a room hosted by the first id and joins the others one
// second apart, so join order follows the argument order
func (e *testEnv) createRoom(t *testing.T, cfg model.RoomConfig, ids ...string) string {
	t.Helper()
	res, err := e.roomSvc.CreateRoom(e.ctx, ids[0], nameOf(ids[0]), &cfg)
	require.NoError(t, err)
	require.True(t, res.Success)
	code := res.Room.ID

	for _, id := range ids[1:] {
		e.clock.Advance(time.Second)
		res, err := e.roomSvc.JoinRoom(e.ctx, code, id, nameOf(id))
		require.NoError(t, err)
		require.True(t, res.Success, res.Message)
	}
	return code
}

// startGame readies every player and starts
func (e *testEnv) startGame(t *testing.T, code string) {
	t.Helper()
	room := e.room(t, code)
	for id := range room.Players {
		ready, err := e.roomSvc.ToggleReady(e.ctx, code, id)
		require.NoError(t, err)
		require.True(t, ready)
	}
	require.NoError(t, e.roomSvc.StartGame(e.ctx, code))
}

func (e *testEnv) room(t *testing.T, code string) *model.Room {
	t.Helper()
	room, err := e.rooms.Get(e.ctx, code)
	require.NoError(t, err)
	require.NotNil(t, room)
	assertConsistent(t, room)
	return room
}

// expire moves the clock to the current deadline and advances once
func (e *testEnv) expire(t *testing.T, code string) *model.Room {
	t.Helper()
	room := e.room(t, code)
	require.NotNil(t, room.Turn)
	e.clock.MoveTo(room.Turn.Deadline)
	advanced, err := e.turnSvc.AdvanceTurnIfExpired(e.ctx, code)
	require.NoError(t, err)
	require.True(t, advanced)
	return e.room(t, code)
}

// playTurn times out every phase of the current turn
func (e *testEnv) playTurn(t *testing.T, code string) *model.Room {
	t.Helper()
	var room *model.Room
	for i := 0; i < 4; i++ {
		room = e.expire(t, code)
	}
	return room
}

func (e *testEnv) messages(t *testing.T, code, viewer string) []*model.Message {
	t.Helper()
	msgs, err := e.roomSvc.ListMessages(e.ctx, code, viewer)
	require.NoError(t, err)
	return msgs
}

func texts(msgs []*model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func nameOf(id string) string {
	return fmt.Sprintf("Player %s", id)
}

func assertConsistent(t *testing.T, room *model.Room) {
	t.Helper()
	assert.Equal(t, room.Status == model.RoomPlaying, room.Turn != nil, "playing iff turn is set")
	if room.Turn != nil {
		seen := map[string]bool{}
		for _, id := range room.Turn.CorrectGuessers {
			assert.False(t, seen[id], "duplicate correct guesser %s", id)
			seen[id] = true
		}
	}
	assert.LessOrEqual(t, len(room.Players), room.Config.MaxPlayers)
}

func twoPlayers() model.RoomConfig {
	return model.RoomConfig{MaxPlayers: 2, RoundCount: 1}
}
