package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"sketchrooms/internal/cache"
	"sketchrooms/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func drawingRoom(now time.Time) *model.Room {
	turn := model.NewTurn("a", now.Add(time.Minute))
	turn.Phase = model.PhaseDrawing
	turn.SecretWord = "apple"
	turn.HintIndices = []int{0, 1, 2, 3, 4}
	return &model.Room{
		ID:     "ROOM22",
		HostID: "a",
		Status: model.RoomPlaying,
		Config: model.RoomConfig{MaxPlayers: 4, RoundCount: 1},
		Turn:   turn,
		Players: map[string]*model.Player{
			"a": {ID: "a", Name: "Ann", IsOnline: true},
			"b": {ID: "b", Name: "Ben", IsOnline: true},
		},
		PlayerOrder: []string{"a", "b"},
		UsedWords:   []string{"apple"},
	}
}

func newTestHub(t *testing.T) (*Hub, cache.RoomStore, cache.MessageFeed) {
	t.Helper()
	rooms := cache.NewMemoryRoomStore()
	feed := cache.NewMemoryMessageFeed()
	hub := NewHub(rooms, feed, zaptest.NewLogger(t))
	require.NoError(t, rooms.Create(context.Background(), drawingRoom(time.Now())))
	return hub, rooms, feed
}

func receive(t *testing.T, conn *Connection) *Message {
	t.Helper()
	select {
	case data, ok := <-conn.Send:
		require.True(t, ok, "connection closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

func assertSilent(t *testing.T, conn *Connection) {
	t.Helper()
	select {
	case data := <-conn.Send:
		t.Fatalf("unexpected message %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func touch(t *testing.T, rooms cache.RoomStore) {
	t.Helper()
	_, err := rooms.Transact(context.Background(), "ROOM22", func(room *model.Room) error {
		room.Touch(time.Now())
		return nil
	})
	require.NoError(t, err)
}

func TestHubSendsRedactedRoomState(t *testing.T) {
	hub, rooms, _ := newTestHub(t)
	drawer := NewConnection("ROOM22", "a")
	guesser := NewConnection("ROOM22", "b")
	require.NoError(t, hub.Register(context.Background(), drawer))
	require.NoError(t, hub.Register(context.Background(), guesser))

	touch(t, rooms)

	for _, tc := range []struct {
		conn   *Connection
		secret string
	}{
		{drawer, "apple"},
		{guesser, "_____"},
	} {
		msg := receive(t, tc.conn)
		require.Equal(t, MsgRoomState, msg.Type)
		var room model.Room
		require.NoError(t, json.Unmarshal(msg.Payload, &room))
		assert.Equal(t, tc.secret, room.Turn.SecretWord)
		assert.Nil(t, room.UsedWords)
	}
}

func TestHubFiltersPrivateMessages(t *testing.T) {
	hub, _, feed := newTestHub(t)
	a := NewConnection("ROOM22", "a")
	b := NewConnection("ROOM22", "b")
	require.NoError(t, hub.Register(context.Background(), a))
	require.NoError(t, hub.Register(context.Background(), b))

	private := model.NewSystemMessage("m1", "close!", time.Now())
	private.VisibleTo = []string{"b"}
	require.NoError(t, feed.Append(context.Background(), "ROOM22", private))

	msg := receive(t, b)
	assert.Equal(t, MsgMessage, msg.Type)
	assertSilent(t, a)

	require.NoError(t, feed.Append(context.Background(), "ROOM22", model.NewSystemMessage("m2", "hello", time.Now())))
	var got model.Message
	require.NoError(t, json.Unmarshal(receive(t, a).Payload, &got))
	assert.Equal(t, "hello", got.Text)
}

func TestHubDisconnects(t *testing.T) {
	hub, _, _ := newTestHub(t)
	a := NewConnection("ROOM22", "a")
	b := NewConnection("ROOM22", "b")
	require.NoError(t, hub.Register(context.Background(), a))
	require.NoError(t, hub.Register(context.Background(), b))

	hub.DisconnectPlayer("ROOM22", "b")
	assert.Equal(t, MsgKicked, receive(t, b).Type)
	_, open := <-b.Send
	assert.False(t, open)
	assert.False(t, hub.Unregister(b), "already dropped")

	hub.DisconnectRoom("ROOM22")
	assert.Equal(t, MsgRoomClosed, receive(t, a).Type)
	_, open = <-a.Send
	assert.False(t, open)
}

func TestHubRoomDeletionClosesConnections(t *testing.T) {
	hub, rooms, _ := newTestHub(t)
	a := NewConnection("ROOM22", "a")
	require.NoError(t, hub.Register(context.Background(), a))

	require.NoError(t, rooms.Delete(context.Background(), "ROOM22"))
	assert.Equal(t, MsgRoomClosed, receive(t, a).Type)
}

func TestHubReplacesConnection(t *testing.T) {
	hub, rooms, _ := newTestHub(t)
	first := NewConnection("ROOM22", "a")
	second := NewConnection("ROOM22", "a")
	require.NoError(t, hub.Register(context.Background(), first))
	require.NoError(t, hub.Register(context.Background(), second))

	_, open := <-first.Send
	assert.False(t, open)
	assert.False(t, hub.Unregister(first))

	touch(t, rooms)
	assert.Equal(t, MsgRoomState, receive(t, second).Type)

	assert.True(t, hub.Unregister(second))
	hub.subMu.Lock()
	assert.Empty(t, hub.watchers)
	hub.subMu.Unlock()
}
