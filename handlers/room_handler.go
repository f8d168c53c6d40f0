package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"truthordare/game"
	"truthordare/models"
	"truthordare/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

type RoomStore interface {
	CreateRoom(hostID uint, req *services.CreateRoomRequest) (*models.Room, error)
	GetRoomByCode(code string) (*models.Room, error)
}

type SnapshotReader interface {
	Load(ctx context.Context, code string) (*game.Snapshot, error)
}

type RoomHandler struct {
	rooms     RoomStore
	snapshots SnapshotReader
	publicURL string
}

// NewRoomHandler builds the room endpoints. publicURL is the frontend base
// used in join links; when empty the link is derived from the request.
func NewRoomHandler(rooms RoomStore, snapshots SnapshotReader, publicURL string) *RoomHandler {
	return &RoomHandler{
		rooms:     rooms,
		snapshots: snapshots,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req services.CreateRoomRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	room, err := h.rooms.CreateRoom(userID.(uint), &req)
	if err != nil {
		log.Error().Err(err).Uint("user", userID.(uint)).Msg("create room failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, room)
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.rooms.GetRoomByCode(c.Param("code"))
	if errors.Is(err, game.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("room", c.Param("code")).Msg("get room failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load room"})
		return
	}

	c.JSON(http.StatusOK, room)
}

// GetSession returns the last stored snapshot of the room's live game.
func (h *RoomHandler) GetSession(c *gin.Context) {
	code := services.NormalizeCode(c.Param("code"))

	snap, err := h.snapshots.Load(c.Request.Context(), code)
	if errors.Is(err, services.ErrSnapshotNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active game for this room"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("room", code).Msg("load snapshot failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load game state"})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// QRCode renders a PNG QR code for the room's join link.
func (h *RoomHandler) QRCode(c *gin.Context) {
	code := services.NormalizeCode(c.Param("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room code required"})
		return
	}

	png, err := qrcode.Encode(h.joinURL(c, code), qrcode.Medium, qrSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "QR generation failed"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func (h *RoomHandler) joinURL(c *gin.Context, code string) string {
	base := h.publicURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + c.Request.Host
	}
	return base + "/room/" + code
}
