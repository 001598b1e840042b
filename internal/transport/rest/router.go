package rest

import (
	"net/http"
	"strings"

	"sketchrooms/internal/service"
	"sketchrooms/internal/transport/rest/handler"
	"sketchrooms/internal/transport/rest/middleware"
	"sketchrooms/internal/transport/ws"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	RoomService    *service.RoomService
	TurnService    *service.TurnService
	GuessService   *service.GuessService
	ArchiveService *service.ArchiveService
	GuessLimiter   *middleware.RateLimiter
	WSHub          *ws.Hub
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := mux.NewRouter()

	// Initialize handlers
	roomHandler := handler.NewRoomHandler(c.RoomService, logger)
	gameHandler := handler.NewGameHandler(c.TurnService, c.GuessService, logger)
	leaderboardHandler := handler.NewLeaderboardHandler(c.ArchiveService, logger)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.RoomService, logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)
	limiter := c.GuessLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(5, 10)
	}

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.AllowedOrigins))
	r.Use(middleware.RequestLogger(logger))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/rooms", roomHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/rooms/{code}/join", roomHandler.Join).Methods("POST", "OPTIONS")
	v1.HandleFunc("/leaderboard", leaderboardHandler.Leaderboard).Methods("GET", "OPTIONS")
	v1.HandleFunc("/games", leaderboardHandler.Games).Methods("GET", "OPTIONS")

	// WebSocket route (token in query param)
	v1.HandleFunc("/ws/rooms/{code}", wsHandler.PlayerWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Player routes (require player auth)
	playerRoutes := v1.NewRoute().Subrouter()
	playerRoutes.Use(authMW.RequirePlayer)

	playerRoutes.HandleFunc("/rooms/{code}", roomHandler.Get).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/messages", roomHandler.Messages).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/ready", roomHandler.Ready).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/start", roomHandler.Start).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/kick", roomHandler.Kick).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/config", roomHandler.UpdateConfig).Methods("PUT", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/leave", roomHandler.Leave).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/reset", roomHandler.Reset).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/difficulty", gameHandler.SelectDifficulty).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/word", gameHandler.SelectWord).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/advance", gameHandler.Advance).Methods("POST", "OPTIONS")
	playerRoutes.Handle("/rooms/{code}/guesses", limiter.Middleware(http.HandlerFunc(gameHandler.Guess))).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(origins []string) mux.MiddlewareFunc {
	allowedOrigins := strings.Join(origins, ", ")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := allowedOrigins
			if len(origins) > 1 {
				// browsers accept a single origin; echo it back when listed
				origin = ""
				for _, o := range origins {
					if o == r.Header.Get("Origin") {
						origin = o
					}
				}
			}
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
