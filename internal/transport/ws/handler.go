package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sketchrooms/internal/service"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the token, not the browser
	},
}

// Handler handles WebSocket connections
type Handler struct {
	hub     *Hub
	authSvc *service.AuthService
	roomSvc *service.RoomService
	logger  *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authSvc *service.AuthService, roomSvc *service.RoomService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:     hub,
		authSvc: authSvc,
		roomSvc: roomSvc,
		logger:  logger,
	}
}

// PlayerWS handles GET /v1/ws/rooms/{code}
func (h *Handler) PlayerWS(w http.ResponseWriter, r *http.Request) {
	code, err := service.NormalizeRoomCode(mux.Vars(r)["code"])
	if err != nil {
		http.Error(w, "invalid room code", http.StatusBadRequest)
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidatePlayerToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if claims.RoomCode != code {
		http.Error(w, "token not valid for this room", http.StatusForbidden)
		return
	}

	room, err := h.roomSvc.GetRoom(r.Context(), code, claims.PlayerID)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	if _, ok := room.Players[claims.PlayerID]; !ok {
		http.Error(w, "not a member of this room", http.StatusForbidden)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := NewConnection(code, claims.PlayerID)
	if err := h.hub.Register(r.Context(), conn); err != nil {
		h.logger.Error("failed to watch room", zap.String("room", code), zap.Error(err))
		wsConn.Close()
		return
	}

	ctx := context.WithoutCancel(r.Context())
	if err := h.roomSvc.SetPresence(ctx, code, claims.PlayerID, true); err != nil {
		h.logger.Warn("failed to mark player online", zap.String("room", code), zap.Error(err))
	}
	h.sendSnapshot(ctx, conn)

	go h.writePump(wsConn, conn)
	go h.readPump(ctx, wsConn, conn)
}

// sendSnapshot sends the current view and message history to a new connection
func (h *Handler) sendSnapshot(ctx context.Context, conn *Connection) {
	room, err := h.roomSvc.GetRoom(ctx, conn.RoomCode, conn.PlayerID)
	if err != nil {
		return
	}
	h.hub.Send(conn, envelope(MsgRoomState, room))

	msgs, err := h.roomSvc.ListMessages(ctx, conn.RoomCode, conn.PlayerID)
	if err != nil {
		h.logger.Warn("failed to load messages", zap.String("room", conn.RoomCode), zap.Error(err))
		return
	}
	for _, m := range msgs {
		h.hub.Send(conn, envelope(MsgMessage, m))
	}
}

func (h *Handler) readPump(ctx context.Context, wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		if h.hub.Unregister(conn) {
			if err := h.roomSvc.SetPresence(ctx, conn.RoomCode, conn.PlayerID, false); err != nil && !isRoomGone(err) {
				h.logger.Warn("failed to mark player offline", zap.String("room", conn.RoomCode), zap.Error(err))
			}
		}
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket closed", zap.String("room", conn.RoomCode), zap.Error(err))
			}
			break
		}
		// actions go through REST; inbound frames only keep the connection alive
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func isRoomGone(err error) bool {
	return errors.Is(err, service.ErrRoomNotFound)
}

var _ service.Broadcaster = (*Hub)(nil)
