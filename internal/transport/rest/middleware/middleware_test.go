package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sketchrooms/internal/service"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterPerKey(t *testing.T) {
	l := NewRateLimiter(1, 2)

	assert.True(t, l.Allow("ROOM22/a"))
	assert.True(t, l.Allow("ROOM22/a"))
	assert.False(t, l.Allow("ROOM22/a"))
	assert.True(t, l.Allow("ROOM22/b"))

	assert.Zero(t, l.Prune(time.Hour))
	assert.Equal(t, 2, l.Prune(0))
}

func protected(t *testing.T, auth *service.AuthService) http.Handler {
	t.Helper()
	r := mux.NewRouter()
	r.Use(NewAuthMiddleware(auth).RequirePlayer)
	r.HandleFunc("/rooms/{code}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetRoomCode(r.Context()) + "/" + GetPlayerID(r.Context())))
	})
	return r
}

func TestRequirePlayer(t *testing.T) {
	auth := service.NewAuthService("mw-secret", time.Hour)
	h := protected(t, auth)
	token, err := auth.GeneratePlayerToken("ROOM22", "p1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{name: "missing", path: "/rooms/ROOM22", status: http.StatusUnauthorized},
		{name: "malformed header", path: "/rooms/ROOM22", header: "Token " + token, status: http.StatusUnauthorized},
		{name: "bearer", path: "/rooms/ROOM22", header: "Bearer " + token, status: http.StatusOK, body: "ROOM22/p1"},
		{name: "lowercase code", path: "/rooms/room22", header: "bearer " + token, status: http.StatusOK, body: "ROOM22/p1"},
		{name: "query param", path: "/rooms/ROOM22?token=" + token, status: http.StatusOK, body: "ROOM22/p1"},
		{name: "other room", path: "/rooms/OTHER2", header: "Bearer " + token, status: http.StatusForbidden},
		{name: "bad token", path: "/rooms/ROOM22", header: "Bearer nope", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}
