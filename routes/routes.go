package routes

import (
	"net/http"
	"slices"

	"truthordare/handlers"
	"truthordare/middleware"
	"truthordare/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
				return true
			}
			return slices.Contains(allowedOrigins, origin)
		},
	}
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	roomHandler *handlers.RoomHandler,
	hub *services.Hub,
	tokens *services.TokenManager,
	allowedOrigins []string,
) {
	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthMiddleware(tokens), authHandler.GetProfile)
		}

		rooms := api.Group("/rooms")
		{
			rooms.POST("", middleware.AuthMiddleware(tokens), roomHandler.CreateRoom)
			rooms.GET("/:code", roomHandler.GetRoom)
			rooms.GET("/:code/session", roomHandler.GetSession)
			rooms.GET("/:code/qr", roomHandler.QRCode)
		}
	}

	upgrader := newUpgrader(allowedOrigins)

	// The browser websocket API cannot set headers, so the token travels in
	// the query string.
	router.GET("/ws", func(c *gin.Context) {
		userID, username, err := tokens.Verify(c.Query("token"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Uint("user", userID).Msg("websocket upgrade failed")
			return
		}

		client := hub.RegisterClient(conn, userID, username)
		log.Debug().Uint("user", userID).Str("conn", client.ID()).Msg("websocket connected")
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
