package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"truthordare/handlers"
	"truthordare/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, allowedOrigins []string) (*gin.Engine, *services.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := services.NewHub()
	go hub.Run(ctx)

	tokens := services.NewTokenManager("secret", time.Hour)
	router := gin.New()
	SetupRoutes(router,
		handlers.NewAuthHandler(nil),
		handlers.NewRoomHandler(nil, nil, ""),
		hub, tokens, allowedOrigins)
	return router, tokens
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	router, _ := setupRouter(t, nil)

	for _, path := range []string{"/api/auth/me", "/api/rooms"} {
		method := http.MethodGet
		if path == "/api/rooms" {
			method = http.MethodPost
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestWebsocketUpgrade(t *testing.T) {
	router, tokens := setupRouter(t, []string{"http://game.test"})
	server := httptest.NewServer(router)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token=bogus", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := tokens.Generate(7, "ana")
	require.NoError(t, err)

	header := http.Header{"Origin": []string{"http://evil.test"}}
	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"?token="+token, header)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://game.test")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(services.Message{Type: "ping"}))
	var msg services.Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Type)
}
