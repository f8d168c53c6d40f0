package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	Username       string         `json:"username" gorm:"uniqueIndex;not null"`
	Email          string         `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash   string         `json:"-" gorm:"not null"`
	Avatar         string         `json:"avatar"`
	GamesPlayed    int            `json:"games_played" gorm:"not null;default:0"`
	TasksCompleted int            `json:"tasks_completed" gorm:"not null;default:0"`
	TasksFailed    int            `json:"tasks_failed" gorm:"not null;default:0"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}
