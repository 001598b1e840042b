package handler

import (
	"net/http"
	"strconv"

	"sketchrooms/internal/model"
	"sketchrooms/internal/service"

	"go.uber.org/zap"
)

// LeaderboardHandler serves the all-time leaderboard and game archive
type LeaderboardHandler struct {
	archiveSvc *service.ArchiveService
	logger     *zap.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(archiveSvc *service.ArchiveService, logger *zap.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{archiveSvc: archiveSvc, logger: logger}
}

// Leaderboard handles GET /v1/leaderboard
func (h *LeaderboardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.archiveSvc.Leaderboard(r.Context(), queryLimit(r, "top", 20))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if name := r.URL.Query().Get("name"); name != "" {
		rank, err := h.archiveSvc.Rank(r.Context(), name)
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries, "rank": rank})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}

// Games handles GET /v1/games, optionally filtered with ?room=CODE
func (h *LeaderboardHandler) Games(w http.ResponseWriter, r *http.Request) {
	var (
		games []*model.GameRecord
		err   error
	)
	if room := r.URL.Query().Get("room"); room != "" {
		code, cerr := service.NormalizeRoomCode(room)
		if cerr != nil {
			writeServiceError(w, h.logger, cerr)
			return
		}
		games, err = h.archiveSvc.GamesForRoom(r.Context(), code)
	} else {
		games, err = h.archiveSvc.RecentGames(r.Context(), queryLimit(r, "limit", 20))
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"games": games})
}

func queryLimit(r *http.Request, key string, fallback int) int {
	if s := r.URL.Query().Get(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			return n
		}
	}
	return fallback
}
