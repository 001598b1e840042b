package handler

import (
	"net/http"

	"sketchrooms/internal/model"
	"sketchrooms/internal/service"
	"sketchrooms/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// GameHandler handles in-game turn and guess endpoints
type GameHandler struct {
	turnSvc  *service.TurnService
	guessSvc *service.GuessService
	logger   *zap.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(turnSvc *service.TurnService, guessSvc *service.GuessService, logger *zap.Logger) *GameHandler {
	return &GameHandler{turnSvc: turnSvc, guessSvc: guessSvc, logger: logger}
}

// DifficultyRequest is the request body for picking a difficulty
type DifficultyRequest struct {
	Difficulty model.Difficulty `json:"difficulty"`
}

// SelectDifficulty handles POST /v1/rooms/{code}/difficulty
func (h *GameHandler) SelectDifficulty(w http.ResponseWriter, r *http.Request) {
	var req DifficultyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.turnSvc.SelectDifficulty(r.Context(), mux.Vars(r)["code"], middleware.GetPlayerID(r.Context()), req.Difficulty)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// WordRequest is the request body for picking a word
type WordRequest struct {
	Word string `json:"word"`
}

// SelectWord handles POST /v1/rooms/{code}/word
func (h *GameHandler) SelectWord(w http.ResponseWriter, r *http.Request) {
	var req WordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.turnSvc.SelectWord(r.Context(), mux.Vars(r)["code"], middleware.GetPlayerID(r.Context()), req.Word)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GuessRequest is the request body for a chat line or guess
type GuessRequest struct {
	Text string `json:"text"`
}

// Guess handles POST /v1/rooms/{code}/guesses
func (h *GameHandler) Guess(w http.ResponseWriter, r *http.Request) {
	var req GuessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.guessSvc.SubmitGuess(r.Context(), mux.Vars(r)["code"], middleware.GetPlayerID(r.Context()), "", req.Text)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"result": string(outcome)})
}

// Advance handles POST /v1/rooms/{code}/advance
func (h *GameHandler) Advance(w http.ResponseWriter, r *http.Request) {
	advanced, err := h.turnSvc.AdvanceTurnIfExpired(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"advanced": advanced})
}
