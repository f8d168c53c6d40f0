package game

import (
	"context"
	"errors"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidVote     = errors.New("invalid vote")
)

const (
	StatusWaiting  = "WAITING"
	StatusPlaying  = "PLAYING"
	StatusFinished = "FINISHED"
)

// Player is a roster entry. ConnID is the handle of the player's current
// connection and changes on every reconnect.
type Player struct {
	UserID uint   `json:"userId"`
	ConnID string `json:"socketId,omitempty"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Room is the durable room record as seen by the game.
type Room struct {
	Code       string
	HostID     uint
	Status     string
	MaxPlayers int
	Players    []Player
}

func (r *Room) indexOf(userID uint) int {
	for i, p := range r.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// RoomDirectory is the durable store of rooms. Lookups for unknown codes
// return ErrRoomNotFound.
type RoomDirectory interface {
	FindRoom(ctx context.Context, code string) (*Room, error)
	SaveRoom(ctx context.Context, room *Room) error
	SetStatus(ctx context.Context, code, status string) error
	DeleteRoom(ctx context.Context, code string) error
}

// Broadcaster fans events out to the connections attached to a room.
type Broadcaster interface {
	Attach(code, connID string)
	Detach(code, connID string)
	Broadcast(code, event string, payload any)
	Send(connID, event string, payload any)
}

// SnapshotStore mirrors the live session for readers outside the game loop.
type SnapshotStore interface {
	Save(ctx context.Context, code string, snap Snapshot) error
	Delete(ctx context.Context, code string) error
}

// StatsRecorder keeps per-user lifetime counters.
type StatsRecorder interface {
	RecordGameStarted(ctx context.Context, userIDs []uint) error
	RecordTaskResult(ctx context.Context, userID uint, completed bool) error
}
