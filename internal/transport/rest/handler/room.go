package handler

import (
	"net/http"

	"sketchrooms/internal/model"
	"sketchrooms/internal/service"
	"sketchrooms/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RoomHandler handles room lifecycle endpoints
type RoomHandler struct {
	roomSvc *service.RoomService
	logger  *zap.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomSvc *service.RoomService, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc, logger: logger}
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	PlayerID string            `json:"playerId"`
	Name     string            `json:"name"`
	Config   *model.RoomConfig `json:"config,omitempty"`
}

// Create handles POST /v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.roomSvc.CreateRoom(r.Context(), req.PlayerID, req.Name, req.Config)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// JoinRequest is the request body for joining a room
type JoinRequest struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// Join handles POST /v1/rooms/{code}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req JoinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.roomSvc.JoinRoom(r.Context(), code, req.PlayerID, req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !res.Success {
		status := http.StatusConflict
		if res.Message == service.ErrRoomNotFound.Error() {
			status = http.StatusNotFound
		}
		writeJSON(w, status, res)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Get handles GET /v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	playerID := middleware.GetPlayerID(r.Context())
	room, err := h.roomSvc.GetRoom(r.Context(), mux.Vars(r)["code"], playerID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if _, ok := room.Players[playerID]; !ok {
		writeServiceError(w, h.logger, service.ErrNotMember)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// Messages handles GET /v1/rooms/{code}/messages
func (h *RoomHandler) Messages(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	playerID := middleware.GetPlayerID(r.Context())
	if err := h.roomSvc.RequireMember(r.Context(), code, playerID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	msgs, err := h.roomSvc.ListMessages(r.Context(), code, playerID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

// Ready handles POST /v1/rooms/{code}/ready
func (h *RoomHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ready, err := h.roomSvc.ToggleReady(r.Context(), mux.Vars(r)["code"], middleware.GetPlayerID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ready": ready})
}

// Start handles POST /v1/rooms/{code}/start
func (h *RoomHandler) Start(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := h.roomSvc.RequireHost(r.Context(), code, middleware.GetPlayerID(r.Context())); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := h.roomSvc.StartGame(r.Context(), code); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.RoomPlaying)})
}

// KickRequest is the request body for kicking a player
type KickRequest struct {
	PlayerID string `json:"playerId"`
}

// Kick handles POST /v1/rooms/{code}/kick
func (h *RoomHandler) Kick(w http.ResponseWriter, r *http.Request) {
	var req KickRequest
	if err := decodeJSON(r, &req); err != nil || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "playerId is required")
		return
	}

	err := h.roomSvc.KickPlayer(r.Context(), mux.Vars(r)["code"], middleware.GetPlayerID(r.Context()), req.PlayerID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateConfig handles PUT /v1/rooms/{code}/config
func (h *RoomHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req model.RoomConfig
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg, err := h.roomSvc.UpdateConfig(r.Context(), mux.Vars(r)["code"], middleware.GetPlayerID(r.Context()), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// Leave handles POST /v1/rooms/{code}/leave
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.roomSvc.LeaveRoom(r.Context(), mux.Vars(r)["code"], middleware.GetPlayerID(r.Context())); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reset handles POST /v1/rooms/{code}/reset
func (h *RoomHandler) Reset(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := h.roomSvc.RequireHost(r.Context(), code, middleware.GetPlayerID(r.Context())); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := h.roomSvc.ResetGame(r.Context(), code); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.RoomWaiting)})
}
