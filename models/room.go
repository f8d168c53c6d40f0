package models

import (
	"time"
)

type Room struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Code         string    `json:"code" gorm:"uniqueIndex;size:6;not null"`
	HostID       uint      `json:"host_id" gorm:"not null"`
	Status       string    `json:"status" gorm:"not null;default:'WAITING'"` // WAITING, PLAYING, FINISHED
	MaxPlayers   int       `json:"max_players" gorm:"not null;default:8"`
	TurnDuration int       `json:"turn_duration" gorm:"not null;default:60"` // seconds
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relationships
	Host    User         `json:"host,omitempty"`
	Players []RoomPlayer `json:"players" gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}
