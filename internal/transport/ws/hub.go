package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"sketchrooms/internal/cache"
	"sketchrooms/internal/model"

	"go.uber.org/zap"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgRoomState  MessageType = "room_state"
	MsgMessage    MessageType = "message"
	MsgRoomClosed MessageType = "room_closed"
	MsgKicked     MessageType = "kicked"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Connection represents a WebSocket connection
type Connection struct {
	RoomCode string
	PlayerID string
	Send     chan []byte
}

// NewConnection creates a connection with a buffered send queue
func NewConnection(roomCode, playerID string) *Connection {
	return &Connection{
		RoomCode: roomCode,
		PlayerID: playerID,
		Send:     make(chan []byte, 256),
	}
}

type eventKind int

const (
	evRoom eventKind = iota
	evMessage
	evDirect
	evDisconnectPlayer
	evDisconnectRoom
)

type event struct {
	kind     eventKind
	roomCode string
	playerID string
	room     *model.Room
	message  *model.Message
	conn     *Connection
	data     []byte
}

type unregisterReq struct {
	conn *Connection
	done chan bool
}

type watcher struct {
	refs int
	stop func()
}

// Hub fans room changes out to the connected players. Each player gets
// their own redacted view of the room and only the messages they may see.
type Hub struct {
	// roomCode -> playerID -> conn, one connection per player
	conns map[string]map[string]*Connection

	rooms  cache.RoomStore
	feed   cache.MessageFeed
	now    func() time.Time
	logger *zap.Logger

	subMu    sync.Mutex
	watchers map[string]*watcher

	register   chan *Connection
	unregister chan *unregisterReq
	events     chan *event
}

// NewHub creates a new WebSocket hub
func NewHub(rooms cache.RoomStore, feed cache.MessageFeed, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		conns:      make(map[string]map[string]*Connection),
		rooms:      rooms,
		feed:       feed,
		now:        time.Now,
		logger:     logger,
		watchers:   make(map[string]*watcher),
		register:   make(chan *Connection),
		unregister: make(chan *unregisterReq),
		events:     make(chan *event, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			players := h.conns[conn.RoomCode]
			if players == nil {
				players = make(map[string]*Connection)
				h.conns[conn.RoomCode] = players
			}
			if old, ok := players[conn.PlayerID]; ok {
				close(old.Send)
			}
			players[conn.PlayerID] = conn
			h.logger.Debug("player connected", zap.String("room", conn.RoomCode), zap.String("player", conn.PlayerID))

		case req := <-h.unregister:
			current := false
			if players, ok := h.conns[req.conn.RoomCode]; ok {
				if existing, ok := players[req.conn.PlayerID]; ok && existing == req.conn {
					h.drop(req.conn.RoomCode, req.conn.PlayerID)
					current = true
				}
			}
			req.done <- current

		case ev := <-h.events:
			h.handle(ev)
		}
	}
}

func (h *Hub) handle(ev *event) {
	players := h.conns[ev.roomCode]

	switch ev.kind {
	case evRoom:
		if ev.room == nil {
			h.closeRoom(ev.roomCode)
			return
		}
		now := h.now()
		for id, conn := range players {
			h.push(conn, envelope(MsgRoomState, ev.room.ViewFor(id, now)))
		}

	case evMessage:
		data := envelope(MsgMessage, ev.message)
		for id, conn := range players {
			if ev.message.VisibleToPlayer(id) {
				h.push(conn, data)
			}
		}

	case evDirect:
		if players[ev.conn.PlayerID] == ev.conn {
			h.push(ev.conn, ev.data)
		}

	case evDisconnectPlayer:
		if conn, ok := players[ev.playerID]; ok {
			h.push(conn, envelope(MsgKicked, nil))
			h.drop(ev.roomCode, ev.playerID)
		}

	case evDisconnectRoom:
		h.closeRoom(ev.roomCode)
	}
}

func (h *Hub) closeRoom(roomCode string) {
	data := envelope(MsgRoomClosed, nil)
	for id, conn := range h.conns[roomCode] {
		h.push(conn, data)
		h.drop(roomCode, id)
	}
}

// drop removes the player's connection and closes its send queue
func (h *Hub) drop(roomCode, playerID string) {
	players := h.conns[roomCode]
	conn, ok := players[playerID]
	if !ok {
		return
	}
	delete(players, playerID)
	close(conn.Send)
	if len(players) == 0 {
		delete(h.conns, roomCode)
	}
}

func (h *Hub) push(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
	default:
		// Drop message if buffer full
		h.logger.Warn("send buffer full", zap.String("room", conn.RoomCode), zap.String("player", conn.PlayerID))
	}
}

func envelope(t MessageType, payload interface{}) []byte {
	msg := &Message{Type: t}
	if payload != nil {
		msg.Payload, _ = json.Marshal(payload)
	}
	data, _ := json.Marshal(msg)
	return data
}

// Register adds a connection and starts watching its room
func (h *Hub) Register(ctx context.Context, conn *Connection) error {
	if err := h.watch(ctx, conn.RoomCode); err != nil {
		return err
	}
	h.register <- conn
	return nil
}

// Unregister removes a connection. It reports false when the connection had
// already been replaced or dropped.
func (h *Hub) Unregister(conn *Connection) bool {
	req := &unregisterReq{conn: conn, done: make(chan bool, 1)}
	h.unregister <- req
	current := <-req.done
	h.unwatch(conn.RoomCode)
	return current
}

// Send queues data for one connection
func (h *Hub) Send(conn *Connection, data []byte) {
	h.events <- &event{kind: evDirect, roomCode: conn.RoomCode, conn: conn, data: data}
}

// DisconnectPlayer closes the player's connection (implements service.Broadcaster)
func (h *Hub) DisconnectPlayer(roomCode, playerID string) {
	h.events <- &event{kind: evDisconnectPlayer, roomCode: roomCode, playerID: playerID}
}

// DisconnectRoom closes every connection of the room (implements service.Broadcaster)
func (h *Hub) DisconnectRoom(roomCode string) {
	h.events <- &event{kind: evDisconnectRoom, roomCode: roomCode}
}

// watch subscribes to the room document and feed on first use
func (h *Hub) watch(ctx context.Context, roomCode string) error {
	h.subMu.Lock()
	defer h.subMu.Unlock()

	if w, ok := h.watchers[roomCode]; ok {
		w.refs++
		return nil
	}

	// subscriptions outlive the request that opened them
	subCtx := context.WithoutCancel(ctx)
	stopRoom, err := h.rooms.Subscribe(subCtx, roomCode, func(room *model.Room) {
		h.events <- &event{kind: evRoom, roomCode: roomCode, room: room}
	})
	if err != nil {
		return err
	}
	stopFeed, err := h.feed.Subscribe(subCtx, roomCode, func(msg *model.Message) {
		h.events <- &event{kind: evMessage, roomCode: roomCode, message: msg}
	})
	if err != nil {
		stopRoom()
		return err
	}

	h.watchers[roomCode] = &watcher{
		refs: 1,
		stop: func() {
			stopRoom()
			stopFeed()
		},
	}
	return nil
}

func (h *Hub) unwatch(roomCode string) {
	h.subMu.Lock()
	defer h.subMu.Unlock()

	w, ok := h.watchers[roomCode]
	if !ok {
		return
	}
	w.refs--
	if w.refs <= 0 {
		w.stop()
		delete(h.watchers, roomCode)
	}
}
