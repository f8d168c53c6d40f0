package models

import (
	"time"
)

// RoomPlayer is one roster entry. Position keeps the join order, which
// decides who inherits the host role.
type RoomPlayer struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RoomID    uint      `json:"room_id" gorm:"not null;index"`
	UserID    uint      `json:"user_id" gorm:"not null"`
	SocketID  string    `json:"socket_id"`
	Name      string    `json:"name" gorm:"not null"`
	Avatar    string    `json:"avatar"`
	Position  int       `json:"position" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
