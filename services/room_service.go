package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"truthordare/game"
	"truthordare/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	roomCodeLength   = 6
	roomCodeChars    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxCodeAttempts  = 20
	defaultMaxPlayer = 8
	defaultTurnTime  = 60
)

// RoomService is the durable room directory backed by postgres.
type RoomService struct {
	db *gorm.DB
}

func NewRoomService(db *gorm.DB) *RoomService {
	return &RoomService{db: db}
}

type CreateRoomRequest struct {
	MaxPlayers   int `json:"max_players" binding:"omitempty,min=2,max=20"`
	TurnDuration int `json:"turn_duration" binding:"omitempty,min=10,max=600"`
}

// NormalizeCode makes room codes case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *RoomService) CreateRoom(hostID uint, req *CreateRoomRequest) (*models.Room, error) {
	room := models.Room{
		HostID:       hostID,
		Status:       game.StatusWaiting,
		MaxPlayers:   defaultMaxPlayer,
		TurnDuration: defaultTurnTime,
	}
	if req.MaxPlayers > 0 {
		room.MaxPlayers = req.MaxPlayers
	}
	if req.TurnDuration > 0 {
		room.TurnDuration = req.TurnDuration
	}

	for range maxCodeAttempts {
		code, err := generateRoomCode()
		if err != nil {
			return nil, err
		}

		var count int64
		if err := s.db.Model(&models.Room{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}

		room.Code = code
		if err := s.db.Create(&room).Error; err != nil {
			return nil, err
		}
		log.Info().Str("room", code).Uint("host", hostID).Msg("room created")
		return s.GetRoomByCode(code)
	}

	return nil, errors.New("could not allocate a room code")
}

func (s *RoomService) GetRoomByCode(code string) (*models.Room, error) {
	var room models.Room
	err := s.db.Where("code = ?", NormalizeCode(code)).
		Preload("Host").
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("room_players.position")
		}).
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindRoom implements game.RoomDirectory.
func (s *RoomService) FindRoom(ctx context.Context, code string) (*game.Room, error) {
	var room models.Room
	err := s.db.WithContext(ctx).
		Where("code = ?", NormalizeCode(code)).
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("room_players.position")
		}).
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}

	out := &game.Room{
		Code:       room.Code,
		HostID:     room.HostID,
		Status:     room.Status,
		MaxPlayers: room.MaxPlayers,
		Players:    make([]game.Player, 0, len(room.Players)),
	}
	for _, p := range room.Players {
		out.Players = append(out.Players, game.Player{
			UserID: p.UserID,
			ConnID: p.SocketID,
			Name:   p.Name,
			Avatar: p.Avatar,
		})
	}
	return out, nil
}

// SaveRoom persists the roster and host of room, replacing the stored roster.
func (s *RoomService) SaveRoom(ctx context.Context, room *game.Room) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.Room
		if err := tx.Where("code = ?", NormalizeCode(room.Code)).First(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return game.ErrRoomNotFound
			}
			return err
		}

		if err := tx.Model(&stored).Update("host_id", room.HostID).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", stored.ID).Delete(&models.RoomPlayer{}).Error; err != nil {
			return err
		}
		if len(room.Players) == 0 {
			return nil
		}

		roster := make([]models.RoomPlayer, 0, len(room.Players))
		for i, p := range room.Players {
			roster = append(roster, models.RoomPlayer{
				RoomID:   stored.ID,
				UserID:   p.UserID,
				SocketID: p.ConnID,
				Name:     p.Name,
				Avatar:   p.Avatar,
				Position: i,
			})
		}
		return tx.Create(&roster).Error
	})
}

func (s *RoomService) SetStatus(ctx context.Context, code, status string) error {
	result := s.db.WithContext(ctx).Model(&models.Room{}).
		Where("code = ?", NormalizeCode(code)).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return game.ErrRoomNotFound
	}
	return nil
}

func (s *RoomService) DeleteRoom(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.Room
		if err := tx.Where("code = ?", NormalizeCode(code)).First(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Where("room_id = ?", stored.ID).Delete(&models.RoomPlayer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&stored).Error
	})
}

func generateRoomCode() (string, error) {
	code := make([]byte, roomCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		code[i] = roomCodeChars[n.Int64()]
	}
	return string(code), nil
}
